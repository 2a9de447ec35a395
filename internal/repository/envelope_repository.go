package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

// EnvelopeRepository looks up biometric envelopes and the contracts grouped
// under them.
type EnvelopeRepository struct {
	db *gorm.DB
}

func NewEnvelopeRepository(db *gorm.DB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

func (r *EnvelopeRepository) ByUnicoProcessID(ctx context.Context, processID string) (*model.Envelope, error) {
	var envelope model.Envelope
	err := r.db.WithContext(ctx).Where("unico_process_id = ?", processID).First(&envelope).Error
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

func (r *EnvelopeRepository) ByConfiaProcessID(ctx context.Context, processID string) (*model.Envelope, error) {
	var envelope model.Envelope
	err := r.db.WithContext(ctx).Where("confia_process_id = ?", processID).First(&envelope).Error
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// SaveScore records the raw provider score and status on the envelope. The
// raw string is kept as delivered; the engine parses it separately.
func (r *EnvelopeRepository) SaveScore(ctx context.Context, token uuid.UUID, score string, status int) error {
	return r.db.WithContext(ctx).
		Model(&model.Envelope{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"last_score":        score,
			"last_score_status": status,
		}).Error
}

// Contracts lists every contract created under the envelope, oldest first.
func (r *EnvelopeRepository) Contracts(ctx context.Context, token uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("envelope_token = ?", token).
		Order("created_at ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}
