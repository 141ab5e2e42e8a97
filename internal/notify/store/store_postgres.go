package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"onboard-gateway/internal/notify/models"
	dErrors "onboard-gateway/pkg/domain-errors"

	"github.com/google/uuid"
)

// PostgresStore persists the delivery log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed delivery log.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deliveryColumns = `
	id, applicant_id, external_id, event, payload, status, attempts,
	last_error, created_at, delivered_at`

func (s *PostgresStore) Save(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO notification_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			delivered_at = EXCLUDED.delivered_at
	`
	_, err := s.db.ExecContext(ctx, query,
		delivery.ID, delivery.ApplicantID, delivery.ExternalID, delivery.Event,
		[]byte(delivery.Payload), delivery.Status, delivery.Attempts,
		delivery.LastError, delivery.CreatedAt, delivery.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("save delivery: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM notification_deliveries WHERE id = $1`
	delivery, err := scanDelivery(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
		}
		return nil, fmt.Errorf("find delivery: %w", err)
	}
	return delivery, nil
}

func (s *PostgresStore) ListFailed(ctx context.Context, limit int) ([]*models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM notification_deliveries
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{models.DeliveryFailed}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID string) ([]*models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM notification_deliveries
		WHERE applicant_id = $1
		ORDER BY created_at ASC
	`
	return s.list(ctx, query, applicantID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}

type deliveryRow interface {
	Scan(dest ...any) error
}

func scanDelivery(row deliveryRow) (*models.Delivery, error) {
	var d models.Delivery
	var payload []byte
	if err := row.Scan(&d.ID, &d.ApplicantID, &d.ExternalID, &d.Event, &payload,
		&d.Status, &d.Attempts, &d.LastError, &d.CreatedAt, &d.DeliveredAt); err != nil {
		return nil, err
	}
	d.Payload = payload
	return &d, nil
}
