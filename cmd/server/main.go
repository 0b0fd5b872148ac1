// Package main is the entry point for the payroll service. It wires the
// store, cache, services and scheduler together and starts the HTTP
// server.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"rnrspay/internal/config"
	"rnrspay/internal/repositories"
	"rnrspay/internal/repositories/cache"
	"rnrspay/internal/routes"
	"rnrspay/internal/services/gateway"
	"rnrspay/internal/services/loan"
	"rnrspay/internal/services/payroll"
	"rnrspay/internal/services/scheduler"
)

func main() {
	config.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(config.GetEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	db, err := repositories.NewDB(repositories.DBConfigFromEnv())
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	cacheService := cache.NewCacheService(redisClient, 24*time.Hour)
	runLock := cache.NewRunLock(redisClient, config.GetDurationEnv("PAYROLL_RUN_LOCK_TTL", 2*time.Hour))

	loanRepo := repositories.NewLoanRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	employeeRepo := repositories.NewEmployeeRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	accountRepo := repositories.NewAccountRepository(db)

	// The simulated rail stands in for the bank/mobile-money providers.
	rail := gateway.NewSimulated()

	loanService := loan.NewService(loanRepo, employeeRepo, orgRepo, log)
	payrollService := payroll.NewService(
		paymentRepo,
		employeeRepo,
		accountRepo,
		loanService,
		rail,
		runLock,
		cacheService,
		payroll.Config{
			Workers:          config.GetIntEnv("PAYROLL_WORKERS", 4),
			TransferTimeout:  config.GetDurationEnv("TRANSFER_TIMEOUT", 30*time.Second),
			MaxRetryAttempts: config.GetIntEnv("PAYMENT_MAX_RETRIES", 3),
		},
		log,
	)

	sched, err := scheduler.New(payrollService, scheduler.Config{
		PayrollSpec: config.GetEnv("PAYROLL_CRON", "0 6 28 * *"),
		RetrySpec:   config.GetEnv("PAYMENT_RETRY_CRON", "0 7 * * *"),
		Timezone:    config.GetEnv("SCHEDULER_TZ", "Africa/Kigali"),
	}, log)
	if err != nil {
		log.Fatalf("failed to initialize scheduler: %v", err)
	}
	sched.Start()

	app := fiber.New()
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	routes.SetupRoutes(app, loanService, payrollService, sched)

	go func() {
		addr := ":" + config.GetEnv("PORT", "8080")
		log.Infof("starting server on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	<-sched.Stop().Done()
	if err := app.Shutdown(); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
	if err := cacheService.Close(); err != nil {
		log.Errorf("redis shutdown: %v", err)
	}
}
