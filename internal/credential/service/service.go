// Package service runs the credential chain: contract link validation and
// signature, then wallet link validation and registration gated by risk
// screening.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/mssola/useragent"

	applicant "onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/applicant/store"
	"onboard-gateway/internal/audit"
	"onboard-gateway/internal/credential/tokens"
	screening "onboard-gateway/internal/screening/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

// TRON base58 address shape.
var tronAddressPattern = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)

// Screener decides whether a wallet address may be registered.
type Screener interface {
	Screen(ctx context.Context, address string) screening.Result
}

// Notifier delivers an applicant notification without blocking the caller.
type Notifier interface {
	NotifyAsync(a *applicant.Applicant, event applicant.EventKind)
}

// Evidence is the signature context recorded when a contract is signed.
type Evidence struct {
	IP        string
	UserAgent string
}

type Option func(*Service)

// WithTokenConfig overrides the credential token lifetimes.
func WithTokenConfig(cfg tokens.Config) Option {
	return func(s *Service) {
		s.tokenCfg = cfg
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service owns contract and wallet credential operations.
type Service struct {
	store    store.Store
	screener Screener
	notifier Notifier
	auditor  *audit.Publisher
	logger   *slog.Logger
	tokenCfg tokens.Config
	now      func() time.Time
}

func NewService(st store.Store, screener Screener, notifier Notifier, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:    st,
		screener: screener,
		notifier: notifier,
		auditor:  auditor,
		logger:   logger,
		tokenCfg: tokens.DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ValidateContract checks a contract link without consuming it.
func (s *Service) ValidateContract(ctx context.Context, token string) (*applicant.Applicant, error) {
	record, err := s.store.Find(ctx, store.Ref{ContractToken: token})
	if err != nil {
		return nil, err
	}
	if err := tokens.ValidateContract(record, s.now()); err != nil {
		return nil, err
	}
	return record, nil
}

// SignContract consumes the contract link, records the signature evidence,
// and issues the wallet link.
func (s *Service) SignContract(ctx context.Context, token string, evidence Evidence) (*applicant.Applicant, error) {
	now := s.now().UTC()

	record, err := s.store.Execute(ctx, store.Ref{ContractToken: token},
		func(a *applicant.Applicant) error {
			return tokens.ValidateContract(a, now)
		},
		func(a *applicant.Applicant) []*applicant.Event {
			a.ContractSignedAt = &now
			a.ContractSignedIP = evidence.IP
			a.ContractSignedUA = evidence.UserAgent
			a.ContractSignedDevice = deviceSummary(evidence.UserAgent)
			// Contract is signed, so minting cannot fail here.
			_, _ = tokens.EnsureWallet(a, now, s.tokenCfg)
			return []*applicant.Event{{
				Kind:        applicant.EventContractSigned,
				PriorStatus: a.Status,
				NewStatus:   a.Status,
				CreatedAt:   now,
			}}
		})
	if err != nil {
		return nil, err
	}

	s.auditor.Publish(ctx, audit.Entry{
		ExternalID:  record.ExternalID,
		ApplicantID: record.ID,
		Action:      audit.ActionContractSigned,
		Detail:      record.ContractSignedDevice,
	})
	s.auditor.Publish(ctx, audit.Entry{
		ExternalID:  record.ExternalID,
		ApplicantID: record.ID,
		Action:      audit.ActionWalletTokenIssued,
	})
	s.logger.Info("contract signed",
		"external_id", record.ExternalID, "ip", evidence.IP, "device", record.ContractSignedDevice)

	s.notifier.NotifyAsync(record, applicant.EventContractSigned)
	return record, nil
}

// ValidateWallet checks a wallet link without consuming it.
func (s *Service) ValidateWallet(ctx context.Context, token string) (*applicant.Applicant, error) {
	record, err := s.store.Find(ctx, store.Ref{WalletToken: token})
	if err != nil {
		return nil, err
	}
	if err := tokens.ValidateWallet(record, s.now()); err != nil {
		return nil, err
	}
	return record, nil
}

// RegisterWallet screens the address and, unless screening rejects it, stores
// the address and consumes the wallet link. A rejected address leaves the
// link usable so the applicant can submit a different wallet.
func (s *Service) RegisterWallet(ctx context.Context, token, address string) (*applicant.Applicant, screening.Result, error) {
	if !tronAddressPattern.MatchString(address) {
		return nil, screening.Result{}, dErrors.New(dErrors.CodeValidation, "address is not a valid TRC-20 wallet")
	}

	now := s.now().UTC()

	// Validate before screening so an expired link never spends a
	// screening call.
	record, err := s.store.Find(ctx, store.Ref{WalletToken: token})
	if err != nil {
		return nil, screening.Result{}, err
	}
	if err := tokens.ValidateWallet(record, now); err != nil {
		return nil, screening.Result{}, err
	}

	result := s.screener.Screen(ctx, address)
	if result.Decision == screening.DecisionRejected {
		s.auditor.Publish(ctx, audit.Entry{
			ExternalID:  record.ExternalID,
			ApplicantID: record.ID,
			Action:      audit.ActionWalletRejected,
			Detail:      result.Reason,
		})
		s.logger.Warn("wallet rejected by screening",
			"external_id", record.ExternalID, "reason", result.Reason)
		return record, result, nil
	}

	pendingReview := result.Decision == screening.DecisionManualReview
	record, err = s.store.Execute(ctx, store.Ref{WalletToken: token},
		func(a *applicant.Applicant) error {
			return tokens.ValidateWallet(a, now)
		},
		func(a *applicant.Applicant) []*applicant.Event {
			a.WalletAddress = address
			a.WalletTokenConsumedAt = &now
			a.WalletRegisteredAt = &now
			a.WalletPendingReview = pendingReview
			return []*applicant.Event{{
				Kind:        applicant.EventWalletRegistered,
				PriorStatus: a.Status,
				NewStatus:   a.Status,
				CreatedAt:   now,
			}}
		})
	if err != nil {
		return nil, screening.Result{}, err
	}

	action := audit.ActionWalletRegistered
	if pendingReview {
		action = audit.ActionWalletPendingReview
	}
	s.auditor.Publish(ctx, audit.Entry{
		ExternalID:  record.ExternalID,
		ApplicantID: record.ID,
		Action:      action,
		Detail:      result.Reason,
	})
	s.logger.Info("wallet registered",
		"external_id", record.ExternalID, "decision", result.Decision)

	s.notifier.NotifyAsync(record, applicant.EventWalletRegistered)
	return record, result, nil
}

// ResendContract re-issues the contract link for an approved applicant and
// redelivers the approval notification. Operator surface.
func (s *Service) ResendContract(ctx context.Context, ref store.Ref) (*applicant.Applicant, error) {
	now := s.now().UTC()

	record, err := s.store.Execute(ctx, ref,
		func(a *applicant.Applicant) error {
			if a.Status != applicant.StatusApproved {
				return dErrors.New(dErrors.CodePrerequisiteNotMet,
					fmt.Sprintf("applicant is %s, contract links require approval", a.Status))
			}
			if a.ContractSigned() {
				return dErrors.New(dErrors.CodeAlreadyConsumed, "contract already signed")
			}
			return nil
		},
		func(a *applicant.Applicant) []*applicant.Event {
			tokens.EnsureContract(a, now, s.tokenCfg)
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.auditor.Publish(ctx, audit.Entry{
		ExternalID:  record.ExternalID,
		ApplicantID: record.ID,
		Action:      audit.ActionContractTokenIssued,
		Actor:       "admin",
	})

	s.notifier.NotifyAsync(record, applicant.EventApplicantReviewed)
	return record, nil
}

// ResendWallet re-issues the wallet link after the contract is signed.
// Operator surface.
func (s *Service) ResendWallet(ctx context.Context, ref store.Ref) (*applicant.Applicant, error) {
	now := s.now().UTC()

	record, err := s.store.Execute(ctx, ref,
		func(a *applicant.Applicant) error {
			if !a.ContractSigned() {
				return dErrors.New(dErrors.CodePrerequisiteNotMet, "contract must be signed before a wallet link is issued")
			}
			if a.WalletRegistered() {
				return dErrors.New(dErrors.CodePrerequisiteNotMet, "wallet already registered")
			}
			return nil
		},
		func(a *applicant.Applicant) []*applicant.Event {
			_, _ = tokens.EnsureWallet(a, now, s.tokenCfg)
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.auditor.Publish(ctx, audit.Entry{
		ExternalID:  record.ExternalID,
		ApplicantID: record.ID,
		Action:      audit.ActionWalletTokenIssued,
		Actor:       "admin",
	})

	s.notifier.NotifyAsync(record, applicant.EventContractSigned)
	return record, nil
}

// deviceSummary condenses a raw user agent into a short human-readable label.
func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}
