package model

import (
	"time"

	"github.com/google/uuid"
)

// Envelope groups the contracts created together in one typing session (for
// example applicant plus co-signer, or a portability/refinancing pair). All
// contracts in an envelope share one biometric verification process.
type Envelope struct {
	Token           uuid.UUID `gorm:"column:token;primaryKey"`
	UnicoProcessID  string    `gorm:"column:unico_process_id"`
	ConfiaProcessID string    `gorm:"column:confia_process_id"`
	// LastScore keeps the raw score exactly as delivered by the provider
	// (integer or numeric string); parsing happens in the score engine.
	LastScore       string    `gorm:"column:last_score"`
	LastScoreStatus int       `gorm:"column:last_score_status"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (Envelope) TableName() string { return "contract_envelopes" }
