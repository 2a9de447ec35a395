package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

// SubContractRepository resolves and updates the product-specific record
// attached to a contract.
type SubContractRepository struct {
	db *gorm.DB
}

func NewSubContractRepository(db *gorm.DB) *SubContractRepository {
	return &SubContractRepository{db: db}
}

// Resolve maps a contract to its product-specific record. Product types
// without one resolve to UnsupportedSubContract; that is a normal branch for
// callers, not a failure. gorm.ErrRecordNotFound means the record that should
// exist is missing.
func (r *SubContractRepository) Resolve(ctx context.Context, contract model.Contract) (model.SubContract, error) {
	switch contract.ProductType {
	case model.ProductBenefitCard, model.ProductBenefitCardRepresentative, model.ProductPayrollCard:
		var sub model.BenefitCard
		if err := r.byContract(ctx, contract.ID, &sub); err != nil {
			return nil, err
		}
		return &sub, nil
	case model.ProductComplementaryWithdrawal:
		var sub model.ComplementaryWithdrawal
		if err := r.byContract(ctx, contract.ID, &sub); err != nil {
			return nil, err
		}
		return &sub, nil
	case model.ProductPortability, model.ProductPortabilityRefinancing:
		var sub model.Portability
		if err := r.byContract(ctx, contract.ID, &sub); err != nil {
			return nil, err
		}
		return &sub, nil
	case model.ProductFreeMargin:
		var sub model.FreeMargin
		if err := r.byContract(ctx, contract.ID, &sub); err != nil {
			return nil, err
		}
		return &sub, nil
	default:
		return model.UnsupportedSubContract{ContractID: contract.ID}, nil
	}
}

func (r *SubContractRepository) byContract(ctx context.Context, contractID uuid.UUID, dest any) error {
	return r.db.WithContext(ctx).Where("contract_id = ?", contractID).First(dest).Error
}

func (r *SubContractRepository) PortabilityByProposalKey(ctx context.Context, key uuid.UUID) (*model.Portability, error) {
	var sub model.Portability
	if err := r.db.WithContext(ctx).Where("proposal_key = ?", key).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubContractRepository) RefinancingByProposalKey(ctx context.Context, key uuid.UUID) (*model.Refinancing, error) {
	var sub model.Refinancing
	if err := r.db.WithContext(ctx).Where("proposal_key = ?", key).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubContractRepository) FreeMarginByProposalKey(ctx context.Context, key uuid.UUID) (*model.FreeMargin, error) {
	var sub model.FreeMargin
	if err := r.db.WithContext(ctx).Where("proposal_key = ?", key).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateStatus writes the sub-contract status field. Nothing else on the
// record is ever touched by this core.
func (r *SubContractRepository) UpdateStatus(ctx context.Context, sub model.SubContract, status model.ProductStatus) error {
	table := ""
	switch sub.SubKind() {
	case model.SubKindPortability:
		table = model.Portability{}.TableName()
	case model.SubKindRefinancing:
		table = model.Refinancing{}.TableName()
	case model.SubKindFreeMargin:
		table = model.FreeMargin{}.TableName()
	case model.SubKindBenefitCard:
		table = model.BenefitCard{}.TableName()
	case model.SubKindComplementaryWithdrawal:
		table = model.ComplementaryWithdrawal{}.TableName()
	default:
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).
		Table(table).
		Where("id = ?", sub.RecordID()).
		Update("status", status).Error
}
