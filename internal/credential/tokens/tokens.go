// Package tokens holds the pure rules of the credential chain: issuance with
// reuse, validation, and consumption prerequisites. All functions operate on
// the applicant record; callers run them under the store's row lock.
package tokens

import (
	"time"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"

	"github.com/google/uuid"
)

// Config carries the token lifetimes and the reuse window.
type Config struct {
	ContractTTL time.Duration
	WalletTTL   time.Duration
	ReuseWindow time.Duration
}

// DefaultConfig matches the onboarding link lifetimes: contract links live a
// week, wallet links a month, and an existing link is reused while it still
// has more than a day of validity left.
func DefaultConfig() Config {
	return Config{
		ContractTTL: 7 * 24 * time.Hour,
		WalletTTL:   30 * 24 * time.Hour,
		ReuseWindow: 24 * time.Hour,
	}
}

// EnsureContract guarantees the applicant holds a usable contract token,
// minting a fresh one unless the current token is unconsumed and keeps more
// than the reuse window of validity. Returns true when a new token was minted.
// A signed contract is terminal; no further contract token is issued.
func EnsureContract(a *models.Applicant, now time.Time, cfg Config) bool {
	if a.ContractSigned() {
		return false
	}
	if a.ContractToken != "" && a.ContractTokenExpiresAt.After(now.Add(cfg.ReuseWindow)) {
		return false
	}
	a.ContractToken = uuid.NewString()
	a.ContractTokenExpiresAt = now.Add(cfg.ContractTTL)
	return true
}

// EnsureWallet guarantees a usable wallet token. The contract must be signed
// first and the wallet must not be registered yet.
func EnsureWallet(a *models.Applicant, now time.Time, cfg Config) (bool, error) {
	if !a.ContractSigned() {
		return false, dErrors.New(dErrors.CodePrerequisiteNotMet, "contract must be signed before a wallet token is issued")
	}
	if a.WalletRegistered() {
		return false, dErrors.New(dErrors.CodePrerequisiteNotMet, "wallet already registered")
	}
	if a.WalletToken != "" && a.WalletTokenConsumedAt == nil && a.WalletTokenExpiresAt.After(now.Add(cfg.ReuseWindow)) {
		return false, nil
	}
	a.WalletToken = uuid.NewString()
	a.WalletTokenExpiresAt = now.Add(cfg.WalletTTL)
	a.WalletTokenConsumedAt = nil
	return true, nil
}

// ValidateContract checks the applicant's contract token without side
// effects. The caller has already located the applicant by this token.
func ValidateContract(a *models.Applicant, now time.Time) error {
	if a.ContractSigned() {
		return dErrors.New(dErrors.CodeAlreadyConsumed, "contract link already used")
	}
	if now.After(a.ContractTokenExpiresAt) {
		return dErrors.New(dErrors.CodeExpired, "contract link expired")
	}
	return nil
}

// ValidateWallet checks the applicant's wallet token without side effects.
func ValidateWallet(a *models.Applicant, now time.Time) error {
	if !a.ContractSigned() {
		return dErrors.New(dErrors.CodePrerequisiteNotMet, "contract must be signed before wallet registration")
	}
	if a.WalletRegistered() {
		return dErrors.New(dErrors.CodePrerequisiteNotMet, "wallet already registered")
	}
	if a.WalletTokenConsumedAt != nil {
		return dErrors.New(dErrors.CodeAlreadyConsumed, "wallet link already used")
	}
	if now.After(a.WalletTokenExpiresAt) {
		return dErrors.New(dErrors.CodeExpired, "wallet link expired")
	}
	return nil
}
