package gateway

import "context"

// Gateway abstracts the external funds-transfer rail. The production
// implementation speaks to bank and mobile-money providers; everything
// in this repo only depends on this contract.
type Gateway interface {
	// Transfer attempts one transfer leg. Failures, including timeouts,
	// come back wrapping ErrTransferFailed.
	Transfer(ctx context.Context, d Descriptor) (*Receipt, error)

	// VerifyAccount checks that an account exists at the given bank.
	// Used during onboarding, kept on the same boundary.
	VerifyAccount(ctx context.Context, accountNumber, bankName string) (bool, error)
}
