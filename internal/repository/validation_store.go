package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

// ValidationStore upserts validation outcomes, one record per
// (contract, rule message).
type ValidationStore struct {
	db *gorm.DB
}

func NewValidationStore(db *gorm.DB) *ValidationStore {
	return &ValidationStore{db: db}
}

// Upsert updates the existing record for (contract, rule message) in place,
// or creates one. The read and the write must share the caller's transaction
// so concurrent deliveries cannot race a duplicate past the unique index.
func (s *ValidationStore) Upsert(
	ctx context.Context,
	contractID uuid.UUID,
	ruleMessage string,
	checked bool,
	feedback string,
) (model.ValidationRecord, error) {
	var record model.ValidationRecord
	err := s.db.WithContext(ctx).
		Where("contract_id = ? AND rule_message = ?", contractID, ruleMessage).
		First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = model.ValidationRecord{
			ID:          uuid.New(),
			ContractID:  contractID,
			RuleMessage: ruleMessage,
			Checked:     checked,
			Feedback:    feedback,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return model.ValidationRecord{}, err
		}
		return record, nil
	case err != nil:
		return model.ValidationRecord{}, err
	}

	record.Checked = checked
	record.Feedback = feedback
	record.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).
		Model(&model.ValidationRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"checked":    record.Checked,
			"feedback":   record.Feedback,
			"updated_at": record.UpdatedAt,
		}).Error; err != nil {
		return model.ValidationRecord{}, err
	}
	return record, nil
}
