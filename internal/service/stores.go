package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/credsim/origination-core/internal/model"
)

// StatusLedger is the append-only status history of a contract and the guard
// oracle for every transition decision.
type StatusLedger interface {
	Append(ctx context.Context, contractID uuid.UUID, status model.ProductStatus, description string, snapshot model.OriginalStatuses) (model.StatusRecord, error)
	LastStatus(ctx context.Context, contractID uuid.UUID) (*model.StatusRecord, error)
	LastSnapshottedStatus(ctx context.Context, contractID uuid.UUID) (*model.StatusRecord, error)
	HasStatusIn(ctx context.Context, contractID uuid.UUID, statuses []model.ProductStatus) (bool, error)
}

// ValidationStore upserts one validation outcome per (contract, rule message).
type ValidationStore interface {
	Upsert(ctx context.Context, contractID uuid.UUID, ruleMessage string, checked bool, feedback string) (model.ValidationRecord, error)
}

// SubContractStore resolves and updates product-specific records.
type SubContractStore interface {
	Resolve(ctx context.Context, contract model.Contract) (model.SubContract, error)
	PortabilityByProposalKey(ctx context.Context, key uuid.UUID) (*model.Portability, error)
	RefinancingByProposalKey(ctx context.Context, key uuid.UUID) (*model.Refinancing, error)
	FreeMarginByProposalKey(ctx context.Context, key uuid.UUID) (*model.FreeMargin, error)
	UpdateStatus(ctx context.Context, sub model.SubContract, status model.ProductStatus) error
}

// ContractStore reads and writes the contract aggregate.
type ContractStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContractStatus) error
}

// EnvelopeStore looks up biometric envelopes and their contracts.
type EnvelopeStore interface {
	ByUnicoProcessID(ctx context.Context, processID string) (*model.Envelope, error)
	ByConfiaProcessID(ctx context.Context, processID string) (*model.Envelope, error)
	SaveScore(ctx context.Context, token uuid.UUID, score string, status int) error
	Contracts(ctx context.Context, token uuid.UUID) ([]model.Contract, error)
}

// Stores bundles every persistence collaborator bound to one database
// handle. Inside UnitOfWork.Atomic the bundle is bound to the transaction,
// so guard reads and the writes they justify observe one consistent view.
type Stores struct {
	Ledger       StatusLedger
	Validations  ValidationStore
	SubContracts SubContractStore
	Contracts    ContractStore
	Envelopes    EnvelopeStore
}

// UnitOfWork is the atomic transaction boundary of the persistence
// collaborator. A returned error aborts the whole unit; nothing is
// persisted.
type UnitOfWork interface {
	Atomic(ctx context.Context, fn func(tx Stores) error) error
	// View returns stores bound to the base handle for reads that do not
	// precede a write.
	View() Stores
}

// Dispatcher enqueues background work fire-and-forget. The core never waits
// on the result.
type Dispatcher interface {
	Enqueue(jobName string, payload map[string]any)
}
