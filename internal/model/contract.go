package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductType identifies which credit product a contract originates.
// Codes mirror the commercial product table.
type ProductType int16

const (
	ProductFGTS                      ProductType = 1
	ProductINSSRepresentative        ProductType = 2
	ProductBenefitCardRepresentative ProductType = 3
	ProductINSSCorban                ProductType = 5
	ProductINSS                      ProductType = 6
	ProductBenefitCard               ProductType = 7
	ProductSIAPE                     ProductType = 8
	ProductPortability               ProductType = 12
	ProductPayrollLoan               ProductType = 13
	ProductComplementaryWithdrawal   ProductType = 14
	ProductPayrollCard               ProductType = 15
	ProductFreeMargin                ProductType = 16
	ProductPortabilityRefinancing    ProductType = 17
)

// ContractStatus is the macro status of the contract aggregate.
type ContractStatus int16

const (
	ContractStatusCancelled             ContractStatus = 0
	ContractStatusTyping                ContractStatus = 1
	ContractStatusAwaitingFormalization ContractStatus = 2
	ContractStatusFormalized            ContractStatus = 3
	ContractStatusDeskReview            ContractStatus = 4
	ContractStatusEndorsement           ContractStatus = 5
	ContractStatusPaid                  ContractStatus = 6
)

// Contract is the aggregate root of an origination. The product-specific
// record (sub-contract) and the status history hang off it.
type Contract struct {
	ID            uuid.UUID      `gorm:"column:id;primaryKey"`
	EnvelopeToken uuid.UUID      `gorm:"column:envelope_token"`
	ProductType   ProductType    `gorm:"column:product_type"`
	Status        ContractStatus `gorm:"column:status"`
	Signed        bool           `gorm:"column:signed"`
	MainProposal  bool           `gorm:"column:main_proposal"`
	// CorbanDesk marks contracts whose originating affiliate reviews
	// disapprovals on its own desk instead of the formalization desk.
	CorbanDesk bool      `gorm:"column:corban_desk"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Contract) TableName() string { return "contracts" }
