package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

type TokensSuite struct {
	suite.Suite
	cfg Config
	now time.Time
}

func TestTokensSuite(t *testing.T) {
	suite.Run(t, new(TokensSuite))
}

func (s *TokensSuite) SetupTest() {
	s.cfg = DefaultConfig()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func (s *TokensSuite) signedAt(t time.Time) *time.Time {
	return &t
}

func (s *TokensSuite) TestEnsureContractMintsFresh() {
	a := &models.Applicant{}
	s.True(EnsureContract(a, s.now, s.cfg))
	s.NotEmpty(a.ContractToken)
	s.Equal(s.now.Add(7*24*time.Hour), a.ContractTokenExpiresAt)
}

func (s *TokensSuite) TestEnsureContractReusesValidToken() {
	a := &models.Applicant{
		ContractToken:          "existing",
		ContractTokenExpiresAt: s.now.Add(48 * time.Hour),
	}
	s.False(EnsureContract(a, s.now, s.cfg))
	s.Equal("existing", a.ContractToken)
}

func (s *TokensSuite) TestEnsureContractReplacesNearlyExpiredToken() {
	a := &models.Applicant{
		ContractToken:          "stale",
		ContractTokenExpiresAt: s.now.Add(12 * time.Hour),
	}
	s.True(EnsureContract(a, s.now, s.cfg))
	s.NotEqual("stale", a.ContractToken)
}

func (s *TokensSuite) TestEnsureContractSkipsSignedContract() {
	a := &models.Applicant{
		ContractToken:    "used",
		ContractSignedAt: s.signedAt(s.now.Add(-time.Hour)),
	}
	s.False(EnsureContract(a, s.now, s.cfg))
	s.Equal("used", a.ContractToken)
}

func (s *TokensSuite) TestEnsureWalletRequiresSignedContract() {
	a := &models.Applicant{}
	_, err := EnsureWallet(a, s.now, s.cfg)
	s.True(dErrors.HasCode(err, dErrors.CodePrerequisiteNotMet))
	s.Empty(a.WalletToken)
}

func (s *TokensSuite) TestEnsureWalletMintsAfterSignature() {
	a := &models.Applicant{ContractSignedAt: s.signedAt(s.now)}
	minted, err := EnsureWallet(a, s.now, s.cfg)
	s.Require().NoError(err)
	s.True(minted)
	s.NotEmpty(a.WalletToken)
	s.Equal(s.now.Add(30*24*time.Hour), a.WalletTokenExpiresAt)
}

func (s *TokensSuite) TestEnsureWalletReusesValidToken() {
	a := &models.Applicant{
		ContractSignedAt:     s.signedAt(s.now),
		WalletToken:          "existing",
		WalletTokenExpiresAt: s.now.Add(10 * 24 * time.Hour),
	}
	minted, err := EnsureWallet(a, s.now, s.cfg)
	s.Require().NoError(err)
	s.False(minted)
	s.Equal("existing", a.WalletToken)
}

func (s *TokensSuite) TestEnsureWalletRejectsRegisteredWallet() {
	a := &models.Applicant{
		ContractSignedAt: s.signedAt(s.now),
		WalletAddress:    "TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6",
	}
	_, err := EnsureWallet(a, s.now, s.cfg)
	s.True(dErrors.HasCode(err, dErrors.CodePrerequisiteNotMet))
}

func (s *TokensSuite) TestValidateContract() {
	a := &models.Applicant{
		ContractToken:          "tok",
		ContractTokenExpiresAt: s.now.Add(time.Hour),
	}
	s.NoError(ValidateContract(a, s.now))

	err := ValidateContract(a, s.now.Add(2*time.Hour))
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	a.ContractSignedAt = s.signedAt(s.now)
	err = ValidateContract(a, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyConsumed))
}

func (s *TokensSuite) TestValidateWallet() {
	a := &models.Applicant{
		WalletToken:          "tok",
		WalletTokenExpiresAt: s.now.Add(time.Hour),
	}
	err := ValidateWallet(a, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodePrerequisiteNotMet), "unsigned contract blocks wallet")

	a.ContractSignedAt = s.signedAt(s.now.Add(-time.Hour))
	s.NoError(ValidateWallet(a, s.now))

	err = ValidateWallet(a, s.now.Add(2*time.Hour))
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	consumed := s.now
	a.WalletTokenConsumedAt = &consumed
	err = ValidateWallet(a, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyConsumed))

	a.WalletTokenConsumedAt = nil
	a.WalletAddress = "TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6"
	err = ValidateWallet(a, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodePrerequisiteNotMet))
}
