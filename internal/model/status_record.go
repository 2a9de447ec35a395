package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OriginalStatuses snapshots the sub-contract statuses captured right before
// the endorsement engine opens a manual-correction episode. Only the fields
// relevant to the product family are set.
type OriginalStatuses struct {
	PortabilityStatus *ProductStatus `json:"portability_status,omitempty"`
	RefinancingStatus *ProductStatus `json:"refinancing_status,omitempty"`
	FreeMarginStatus  *ProductStatus `json:"free_margin_status,omitempty"`
}

func (o OriginalStatuses) IsZero() bool {
	return o.PortabilityStatus == nil && o.RefinancingStatus == nil && o.FreeMarginStatus == nil
}

// Value implements driver.Valuer so the snapshot lands in a JSONB column.
// A zero snapshot is stored as NULL, never as an empty object.
func (o OriginalStatuses) Value() (driver.Value, error) {
	if o.IsZero() {
		return nil, nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (o *OriginalStatuses) Scan(src any) error {
	if src == nil {
		*o = OriginalStatuses{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("unsupported snapshot source type %T", src)
	}
}

// StatusRecord is one immutable entry of a contract's status history.
// Records are only ever appended; Seq is monotonic per contract and the
// record with the greatest Seq is the contract's current status.
type StatusRecord struct {
	ID          uuid.UUID        `gorm:"column:id;primaryKey"`
	ContractID  uuid.UUID        `gorm:"column:contract_id"`
	Seq         int64            `gorm:"column:seq"`
	Status      ProductStatus    `gorm:"column:status"`
	Description string           `gorm:"column:description"`
	Snapshot    OriginalStatuses `gorm:"column:original_statuses;type:jsonb"`
	CreatedAt   time.Time        `gorm:"column:created_at"`
}

func (StatusRecord) TableName() string { return "contract_status_records" }

// ValidationRecord tracks the outcome of one validation rule for one
// contract. There is at most one record per (contract, rule message);
// re-validation updates it in place.
type ValidationRecord struct {
	ID          uuid.UUID `gorm:"column:id;primaryKey"`
	ContractID  uuid.UUID `gorm:"column:contract_id"`
	RuleMessage string    `gorm:"column:rule_message"`
	Checked     bool      `gorm:"column:checked"`
	Feedback    string    `gorm:"column:feedback"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ValidationRecord) TableName() string { return "contract_validations" }
