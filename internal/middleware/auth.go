// Package middleware provides request processing middleware for the
// fiber app. Authentication itself is external; this layer only
// validates the bearer token and exposes the role label the core
// consumes.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"rnrspay/internal/config"
	"rnrspay/internal/models"
	"rnrspay/internal/utils/response"
)

// Auth validates the bearer token and stores the claims on the request.
func Auth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GetEnv("JWT_SECRET", "rnrspay")), nil
	})
	if err != nil || !token.Valid {
		return response.Error(c, fiber.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, "invalid token claims")
	}

	c.Locals("claims", claims)
	return c.Next()
}

// RequireRole gates a route to the given role labels.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return response.Unauthorized(c)
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return response.Forbidden(c)
	}
}
