package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

// StatusLedger is the append-only status history of a contract. Records are
// never updated or deleted; the greatest seq is the current status.
type StatusLedger struct {
	db *gorm.DB
}

func NewStatusLedger(db *gorm.DB) *StatusLedger {
	return &StatusLedger{db: db}
}

// Append writes one immutable status record, assigning the next sequence
// number for the contract. Run it inside the same transaction as the guard
// read that justified the transition.
func (l *StatusLedger) Append(
	ctx context.Context,
	contractID uuid.UUID,
	status model.ProductStatus,
	description string,
	snapshot model.OriginalStatuses,
) (model.StatusRecord, error) {
	var nextSeq int64
	err := l.db.WithContext(ctx).Raw(`
		SELECT COALESCE(MAX(seq), 0) + 1 FROM contract_status_records WHERE contract_id = ?
	`, contractID).Scan(&nextSeq).Error
	if err != nil {
		return model.StatusRecord{}, err
	}

	record := model.StatusRecord{
		ID:          uuid.New(),
		ContractID:  contractID,
		Seq:         nextSeq,
		Status:      status,
		Description: description,
		Snapshot:    snapshot,
	}
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		return model.StatusRecord{}, err
	}
	return record, nil
}

// LastStatus returns the most recent record, or nil for an empty history.
func (l *StatusLedger) LastStatus(ctx context.Context, contractID uuid.UUID) (*model.StatusRecord, error) {
	var record model.StatusRecord
	err := l.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("seq DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LastSnapshottedStatus returns the most recent record carrying an
// original-statuses snapshot, or nil when no correction episode was ever
// opened for the contract.
func (l *StatusLedger) LastSnapshottedStatus(ctx context.Context, contractID uuid.UUID) (*model.StatusRecord, error) {
	var record model.StatusRecord
	err := l.db.WithContext(ctx).
		Where("contract_id = ? AND original_statuses IS NOT NULL", contractID).
		Order("seq DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// HasStatusIn reports whether any record of the history carries one of the
// given status codes.
func (l *StatusLedger) HasStatusIn(ctx context.Context, contractID uuid.UUID, statuses []model.ProductStatus) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&model.StatusRecord{}).
		Where("contract_id = ? AND status IN ?", contractID, statuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
