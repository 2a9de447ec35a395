package model

import (
	"time"

	"github.com/google/uuid"
)

// SubContractKind tags which product-specific table a sub-contract lives in.
type SubContractKind string

const (
	SubKindPortability             SubContractKind = "portability"
	SubKindRefinancing             SubContractKind = "refinancing"
	SubKindFreeMargin              SubContractKind = "free_margin"
	SubKindBenefitCard             SubContractKind = "benefit_card"
	SubKindComplementaryWithdrawal SubContractKind = "complementary_withdrawal"
	// SubKindUnsupported is a legitimate resolver outcome for product types
	// without a product-specific record, not an error.
	SubKindUnsupported SubContractKind = "unsupported"
)

// SubContract is the product-specific record attached one-to-one to a
// contract. Only the status field is written by this core.
type SubContract interface {
	SubKind() SubContractKind
	RecordID() uuid.UUID
	ContractRef() uuid.UUID
	StatusCode() ProductStatus
}

// UnsupportedSubContract is the resolver result for contracts whose product
// type carries no product-specific record. Callers branch on the kind; they
// must not treat it as a failure.
type UnsupportedSubContract struct {
	ContractID uuid.UUID
}

func (u UnsupportedSubContract) SubKind() SubContractKind  { return SubKindUnsupported }
func (u UnsupportedSubContract) RecordID() uuid.UUID       { return uuid.Nil }
func (u UnsupportedSubContract) ContractRef() uuid.UUID    { return u.ContractID }
func (u UnsupportedSubContract) StatusCode() ProductStatus { return 0 }

type Portability struct {
	ID             uuid.UUID     `gorm:"column:id;primaryKey"`
	ContractID     uuid.UUID     `gorm:"column:contract_id"`
	Status         ProductStatus `gorm:"column:status"`
	ProposalKey    uuid.UUID     `gorm:"column:proposal_key"`
	DebtBalance    float64       `gorm:"column:debt_balance"`
	InstallmentNum int           `gorm:"column:installment_num"`
	CreatedAt      time.Time     `gorm:"column:created_at"`
}

func (Portability) TableName() string           { return "portability_proposals" }
func (p *Portability) SubKind() SubContractKind { return SubKindPortability }
func (p *Portability) RecordID() uuid.UUID      { return p.ID }
func (p *Portability) ContractRef() uuid.UUID   { return p.ContractID }
func (p *Portability) StatusCode() ProductStatus {
	return p.Status
}

type Refinancing struct {
	ID           uuid.UUID     `gorm:"column:id;primaryKey"`
	ContractID   uuid.UUID     `gorm:"column:contract_id"`
	Status       ProductStatus `gorm:"column:status"`
	ProposalKey  uuid.UUID     `gorm:"column:proposal_key"`
	TotalAmount  float64       `gorm:"column:total_amount"`
	ChangeAmount float64       `gorm:"column:change_amount"`
	CreatedAt    time.Time     `gorm:"column:created_at"`
}

func (Refinancing) TableName() string           { return "refinancing_proposals" }
func (r *Refinancing) SubKind() SubContractKind { return SubKindRefinancing }
func (r *Refinancing) RecordID() uuid.UUID      { return r.ID }
func (r *Refinancing) ContractRef() uuid.UUID   { return r.ContractID }
func (r *Refinancing) StatusCode() ProductStatus {
	return r.Status
}

type FreeMargin struct {
	ID          uuid.UUID     `gorm:"column:id;primaryKey"`
	ContractID  uuid.UUID     `gorm:"column:contract_id"`
	Status      ProductStatus `gorm:"column:status"`
	ProposalKey uuid.UUID     `gorm:"column:proposal_key"`
	TotalAmount float64       `gorm:"column:total_amount"`
	CreatedAt   time.Time     `gorm:"column:created_at"`
}

func (FreeMargin) TableName() string           { return "free_margin_proposals" }
func (f *FreeMargin) SubKind() SubContractKind { return SubKindFreeMargin }
func (f *FreeMargin) RecordID() uuid.UUID      { return f.ID }
func (f *FreeMargin) ContractRef() uuid.UUID   { return f.ContractID }
func (f *FreeMargin) StatusCode() ProductStatus {
	return f.Status
}

type BenefitCard struct {
	ID          uuid.UUID     `gorm:"column:id;primaryKey"`
	ContractID  uuid.UUID     `gorm:"column:contract_id"`
	Status      ProductStatus `gorm:"column:status"`
	CardLimit   float64       `gorm:"column:card_limit"`
	WithdrawVal float64       `gorm:"column:withdraw_value"`
	CreatedAt   time.Time     `gorm:"column:created_at"`
}

func (BenefitCard) TableName() string           { return "benefit_cards" }
func (b *BenefitCard) SubKind() SubContractKind { return SubKindBenefitCard }
func (b *BenefitCard) RecordID() uuid.UUID      { return b.ID }
func (b *BenefitCard) ContractRef() uuid.UUID   { return b.ContractID }
func (b *BenefitCard) StatusCode() ProductStatus {
	return b.Status
}

type ComplementaryWithdrawal struct {
	ID          uuid.UUID     `gorm:"column:id;primaryKey"`
	ContractID  uuid.UUID     `gorm:"column:contract_id"`
	Status      ProductStatus `gorm:"column:status"`
	WithdrawVal float64       `gorm:"column:withdraw_value"`
	CreatedAt   time.Time     `gorm:"column:created_at"`
}

func (ComplementaryWithdrawal) TableName() string           { return "complementary_withdrawals" }
func (c *ComplementaryWithdrawal) SubKind() SubContractKind { return SubKindComplementaryWithdrawal }
func (c *ComplementaryWithdrawal) RecordID() uuid.UUID      { return c.ID }
func (c *ComplementaryWithdrawal) ContractRef() uuid.UUID   { return c.ContractID }
func (c *ComplementaryWithdrawal) StatusCode() ProductStatus {
	return c.Status
}
