package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"

	"github.com/google/uuid"
)

// PostgresStore persists applicants in PostgreSQL. Transition and Execute run
// inside a transaction with the applicant row locked FOR UPDATE, which is the
// serialization point for concurrent events about the same applicant.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed applicant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const applicantColumns = `
	id, external_id, provider_applicant_id, kind, status, review_answer,
	rejection_reason, level_name, name, document, email, phone,
	contract_token, contract_token_expires_at, contract_signed_at,
	contract_signed_ip, contract_signed_ua, contract_signed_device,
	wallet_token, wallet_token_expires_at, wallet_token_consumed_at,
	wallet_address, wallet_pending_review, wallet_registered_at,
	first_verification_at, last_verification_at, approved_at, rejected_at,
	created_at, updated_at`

func (s *PostgresStore) Transition(ctx context.Context, externalID string, fn TransitionFunc) (*models.Applicant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE external_id = $1 FOR UPDATE`
	record, err := scanApplicant(tx.QueryRowContext(ctx, query, externalID))
	found := true
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find applicant for transition: %w", err)
		}
		found = false
		record = &models.Applicant{ExternalID: externalID}
	}

	events, err := fn(record, found)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record.UpdatedAt = now
	if found {
		if err := updateApplicant(ctx, tx, record); err != nil {
			return nil, err
		}
	} else {
		record.ID = uuid.NewString()
		record.CreatedAt = now
		if err := insertApplicant(ctx, tx, record); err != nil {
			return nil, err
		}
	}

	if err := appendEvents(ctx, tx, record.ID, events); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Execute(ctx context.Context, ref Ref, validate func(*models.Applicant) error, mutate func(*models.Applicant) []*models.Event) (*models.Applicant, error) {
	where, arg, err := refClause(ref)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE ` + where + ` FOR UPDATE`
	record, err := scanApplicant(tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return nil, fmt.Errorf("find applicant for execute: %w", err)
	}

	if err := validate(record); err != nil {
		return nil, err
	}

	events := mutate(record)
	record.UpdatedAt = time.Now().UTC()
	if err := updateApplicant(ctx, tx, record); err != nil {
		return nil, err
	}
	if err := appendEvents(ctx, tx, record.ID, events); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Find(ctx context.Context, ref Ref) (*models.Applicant, error) {
	where, arg, err := refClause(ref)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE ` + where
	record, err := scanApplicant(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return nil, fmt.Errorf("find applicant: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, applicantID string) ([]*models.Event, error) {
	query := `
		SELECT id, applicant_id, kind, prior_status, new_status, review_answer,
		       rejection_reason, payload, created_at
		FROM applicant_events
		WHERE applicant_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, applicantID)
	if err != nil {
		return nil, fmt.Errorf("list applicant events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.ApplicantID, &e.Kind, &e.PriorStatus, &e.NewStatus,
			&e.ReviewAnswer, &e.RejectionReason, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan applicant event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicant events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) ListPendingReview(ctx context.Context) ([]*models.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE wallet_pending_review ORDER BY updated_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending review: %w", err)
	}
	defer rows.Close()

	var records []*models.Applicant
	for rows.Next() {
		record, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan applicant: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicants: %w", err)
	}
	return records, nil
}

func refClause(ref Ref) (string, any, error) {
	switch {
	case ref.ID != "":
		return "id = $1", ref.ID, nil
	case ref.ExternalID != "":
		return "external_id = $1", ref.ExternalID, nil
	case ref.Document != "":
		return "document = $1 ORDER BY updated_at DESC LIMIT 1", ref.Document, nil
	case ref.ContractToken != "":
		return "contract_token = $1", ref.ContractToken, nil
	case ref.WalletToken != "":
		return "wallet_token = $1", ref.WalletToken, nil
	default:
		return "", nil, fmt.Errorf("applicant ref is empty")
	}
}

func insertApplicant(ctx context.Context, tx *sql.Tx, a *models.Applicant) error {
	query := `
		INSERT INTO applicants (` + applicantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
	`
	_, err := tx.ExecContext(ctx, query, applicantArgs(a)...)
	if err != nil {
		return fmt.Errorf("insert applicant: %w", err)
	}
	return nil
}

func updateApplicant(ctx context.Context, tx *sql.Tx, a *models.Applicant) error {
	query := `
		UPDATE applicants SET
			provider_applicant_id = $3, kind = $4, status = $5, review_answer = $6,
			rejection_reason = $7, level_name = $8, name = $9, document = $10,
			email = $11, phone = $12,
			contract_token = $13, contract_token_expires_at = $14, contract_signed_at = $15,
			contract_signed_ip = $16, contract_signed_ua = $17, contract_signed_device = $18,
			wallet_token = $19, wallet_token_expires_at = $20, wallet_token_consumed_at = $21,
			wallet_address = $22, wallet_pending_review = $23, wallet_registered_at = $24,
			first_verification_at = $25, last_verification_at = $26,
			approved_at = $27, rejected_at = $28, created_at = $29, updated_at = $30
		WHERE id = $1 AND external_id = $2
	`
	res, err := tx.ExecContext(ctx, query, applicantArgs(a)...)
	if err != nil {
		return fmt.Errorf("update applicant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update applicant rows: %w", err)
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	return nil
}

func appendEvents(ctx context.Context, tx *sql.Tx, applicantID string, events []*models.Event) error {
	query := `
		INSERT INTO applicant_events (id, applicant_id, kind, prior_status, new_status,
		                              review_answer, rejection_reason, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, e := range events {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var payload any
		if len(e.Payload) > 0 {
			payload = []byte(e.Payload)
		}
		if _, err := tx.ExecContext(ctx, query, id, applicantID, e.Kind, e.PriorStatus,
			e.NewStatus, e.ReviewAnswer, e.RejectionReason, payload, createdAt); err != nil {
			return fmt.Errorf("append applicant event: %w", err)
		}
	}
	return nil
}

func applicantArgs(a *models.Applicant) []any {
	return []any{
		a.ID, a.ExternalID, a.ProviderApplicantID, a.Kind, a.Status, a.ReviewAnswer,
		a.RejectionReason, a.LevelName, a.Name, a.Document, a.Email, a.Phone,
		nullString(a.ContractToken), nullTime(a.ContractTokenExpiresAt), a.ContractSignedAt,
		a.ContractSignedIP, a.ContractSignedUA, a.ContractSignedDevice,
		nullString(a.WalletToken), nullTime(a.WalletTokenExpiresAt), a.WalletTokenConsumedAt,
		a.WalletAddress, a.WalletPendingReview, a.WalletRegisteredAt,
		a.FirstVerificationAt, a.LastVerificationAt, a.ApprovedAt, a.RejectedAt,
		a.CreatedAt, a.UpdatedAt,
	}
}

type applicantRow interface {
	Scan(dest ...any) error
}

func scanApplicant(row applicantRow) (*models.Applicant, error) {
	var a models.Applicant
	var contractToken, walletToken sql.NullString
	var contractExpires, walletExpires sql.NullTime
	if err := row.Scan(
		&a.ID, &a.ExternalID, &a.ProviderApplicantID, &a.Kind, &a.Status, &a.ReviewAnswer,
		&a.RejectionReason, &a.LevelName, &a.Name, &a.Document, &a.Email, &a.Phone,
		&contractToken, &contractExpires, &a.ContractSignedAt,
		&a.ContractSignedIP, &a.ContractSignedUA, &a.ContractSignedDevice,
		&walletToken, &walletExpires, &a.WalletTokenConsumedAt,
		&a.WalletAddress, &a.WalletPendingReview, &a.WalletRegisteredAt,
		&a.FirstVerificationAt, &a.LastVerificationAt, &a.ApprovedAt, &a.RejectedAt,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.ContractToken = contractToken.String
	a.WalletToken = walletToken.String
	if contractExpires.Valid {
		a.ContractTokenExpiresAt = contractExpires.Time
	}
	if walletExpires.Valid {
		a.WalletTokenExpiresAt = walletExpires.Time
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
