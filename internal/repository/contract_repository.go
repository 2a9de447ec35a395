package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) ByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// UpdateStatus writes the macro status of the aggregate.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContractStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ?", id).
		Update("status", status).Error
}
