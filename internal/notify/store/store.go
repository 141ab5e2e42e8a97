package store

import (
	"context"

	"onboard-gateway/internal/notify/models"
)

type Store interface {
	Save(ctx context.Context, delivery *models.Delivery) error
	FindByID(ctx context.Context, id string) (*models.Delivery, error)
	ListFailed(ctx context.Context, limit int) ([]*models.Delivery, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]*models.Delivery, error)
}
