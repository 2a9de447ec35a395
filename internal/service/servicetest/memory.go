// Package servicetest provides in-memory store doubles for exercising the
// webhook engines without a database.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
	"github.com/credsim/origination-core/internal/service"
)

// MemoryStore implements every store interface plus the unit of work over
// plain maps. Atomic runs the whole unit under one lock, which gives tests
// the same read-your-writes view a transaction gives the engines.
type MemoryStore struct {
	mu sync.Mutex

	envelopes   []*model.Envelope
	contracts   map[uuid.UUID]*model.Contract
	records     map[uuid.UUID][]model.StatusRecord
	validations map[uuid.UUID]map[string]*model.ValidationRecord

	portabilities []*model.Portability
	refinancings  []*model.Refinancing
	freeMargins   []*model.FreeMargin
	benefitCards  []*model.BenefitCard
	withdrawals   []*model.ComplementaryWithdrawal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts:   make(map[uuid.UUID]*model.Contract),
		records:     make(map[uuid.UUID][]model.StatusRecord),
		validations: make(map[uuid.UUID]map[string]*model.ValidationRecord),
	}
}

func (s *MemoryStore) stores() service.Stores {
	return service.Stores{
		Ledger:       s,
		Validations:  s,
		SubContracts: s,
		Contracts:    contractStore{s},
		Envelopes:    s,
	}
}

func (s *MemoryStore) Atomic(_ context.Context, fn func(tx service.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.stores())
}

func (s *MemoryStore) View() service.Stores { return s.stores() }

// Seeding helpers. Tests hold the only reference, so no locking is needed
// before the engines run.

func (s *MemoryStore) AddEnvelope(e *model.Envelope) { s.envelopes = append(s.envelopes, e) }

func (s *MemoryStore) AddContract(c *model.Contract) { s.contracts[c.ID] = c }

func (s *MemoryStore) AddPortability(p *model.Portability) {
	s.portabilities = append(s.portabilities, p)
}

func (s *MemoryStore) AddRefinancing(r *model.Refinancing) {
	s.refinancings = append(s.refinancings, r)
}

func (s *MemoryStore) AddFreeMargin(f *model.FreeMargin) { s.freeMargins = append(s.freeMargins, f) }

func (s *MemoryStore) AddBenefitCard(b *model.BenefitCard) {
	s.benefitCards = append(s.benefitCards, b)
}

func (s *MemoryStore) AddWithdrawal(w *model.ComplementaryWithdrawal) {
	s.withdrawals = append(s.withdrawals, w)
}

func (s *MemoryStore) SeedRecord(contractID uuid.UUID, status model.ProductStatus, snapshot model.OriginalStatuses) {
	seq := int64(len(s.records[contractID]) + 1)
	s.records[contractID] = append(s.records[contractID], model.StatusRecord{
		ID:         uuid.New(),
		ContractID: contractID,
		Seq:        seq,
		Status:     status,
		Snapshot:   snapshot,
		CreatedAt:  time.Now(),
	})
}

// Inspection helpers for assertions.

func (s *MemoryStore) Records(contractID uuid.UUID) []model.StatusRecord {
	return s.records[contractID]
}

func (s *MemoryStore) LastRecord(contractID uuid.UUID) *model.StatusRecord {
	recs := s.records[contractID]
	if len(recs) == 0 {
		return nil
	}
	return &recs[len(recs)-1]
}

func (s *MemoryStore) Validation(contractID uuid.UUID, ruleMessage string) *model.ValidationRecord {
	return s.validations[contractID][ruleMessage]
}

func (s *MemoryStore) Contract(id uuid.UUID) *model.Contract { return s.contracts[id] }

func (s *MemoryStore) Envelope(token uuid.UUID) *model.Envelope {
	for _, e := range s.envelopes {
		if e.Token == token {
			return e
		}
	}
	return nil
}

// StatusLedger

func (s *MemoryStore) Append(_ context.Context, contractID uuid.UUID, status model.ProductStatus, description string, snapshot model.OriginalStatuses) (model.StatusRecord, error) {
	seq := int64(len(s.records[contractID]) + 1)
	record := model.StatusRecord{
		ID:          uuid.New(),
		ContractID:  contractID,
		Seq:         seq,
		Status:      status,
		Description: description,
		Snapshot:    snapshot,
		CreatedAt:   time.Now(),
	}
	s.records[contractID] = append(s.records[contractID], record)
	return record, nil
}

func (s *MemoryStore) LastStatus(_ context.Context, contractID uuid.UUID) (*model.StatusRecord, error) {
	recs := s.records[contractID]
	if len(recs) == 0 {
		return nil, nil
	}
	record := recs[len(recs)-1]
	return &record, nil
}

func (s *MemoryStore) LastSnapshottedStatus(_ context.Context, contractID uuid.UUID) (*model.StatusRecord, error) {
	recs := s.records[contractID]
	for i := len(recs) - 1; i >= 0; i-- {
		if !recs[i].Snapshot.IsZero() {
			record := recs[i]
			return &record, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) HasStatusIn(_ context.Context, contractID uuid.UUID, statuses []model.ProductStatus) (bool, error) {
	for _, record := range s.records[contractID] {
		for _, status := range statuses {
			if record.Status == status {
				return true, nil
			}
		}
	}
	return false, nil
}

// ValidationStore

func (s *MemoryStore) Upsert(_ context.Context, contractID uuid.UUID, ruleMessage string, checked bool, feedback string) (model.ValidationRecord, error) {
	byRule := s.validations[contractID]
	if byRule == nil {
		byRule = make(map[string]*model.ValidationRecord)
		s.validations[contractID] = byRule
	}
	record, ok := byRule[ruleMessage]
	if !ok {
		record = &model.ValidationRecord{
			ID:          uuid.New(),
			ContractID:  contractID,
			RuleMessage: ruleMessage,
			CreatedAt:   time.Now(),
		}
		byRule[ruleMessage] = record
	}
	record.Checked = checked
	record.Feedback = feedback
	record.UpdatedAt = time.Now()
	return *record, nil
}

// SubContractStore

func (s *MemoryStore) Resolve(_ context.Context, contract model.Contract) (model.SubContract, error) {
	switch contract.ProductType {
	case model.ProductBenefitCard, model.ProductBenefitCardRepresentative, model.ProductPayrollCard:
		for _, b := range s.benefitCards {
			if b.ContractID == contract.ID {
				return b, nil
			}
		}
	case model.ProductComplementaryWithdrawal:
		for _, w := range s.withdrawals {
			if w.ContractID == contract.ID {
				return w, nil
			}
		}
	case model.ProductPortability, model.ProductPortabilityRefinancing:
		for _, p := range s.portabilities {
			if p.ContractID == contract.ID {
				return p, nil
			}
		}
	case model.ProductFreeMargin:
		for _, f := range s.freeMargins {
			if f.ContractID == contract.ID {
				return f, nil
			}
		}
	default:
		return model.UnsupportedSubContract{ContractID: contract.ID}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) PortabilityByProposalKey(_ context.Context, key uuid.UUID) (*model.Portability, error) {
	for _, p := range s.portabilities {
		if p.ProposalKey == key {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) RefinancingByProposalKey(_ context.Context, key uuid.UUID) (*model.Refinancing, error) {
	for _, r := range s.refinancings {
		if r.ProposalKey == key {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) FreeMarginByProposalKey(_ context.Context, key uuid.UUID) (*model.FreeMargin, error) {
	for _, f := range s.freeMargins {
		if f.ProposalKey == key {
			return f, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) UpdateStatus(_ context.Context, sub model.SubContract, status model.ProductStatus) error {
	switch v := sub.(type) {
	case *model.Portability:
		v.Status = status
	case *model.Refinancing:
		v.Status = status
	case *model.FreeMargin:
		v.Status = status
	case *model.BenefitCard:
		v.Status = status
	case *model.ComplementaryWithdrawal:
		v.Status = status
	}
	return nil
}

// contractStore adapts MemoryStore to the contract interface. A separate
// type because UpdateStatus would collide with the sub-contract variant.
type contractStore struct{ s *MemoryStore }

func (c contractStore) ByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, ok := c.s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return contract, nil
}

func (c contractStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.ContractStatus) error {
	contract, ok := c.s.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	contract.Status = status
	return nil
}

// EnvelopeStore

func (s *MemoryStore) ByUnicoProcessID(_ context.Context, processID string) (*model.Envelope, error) {
	for _, e := range s.envelopes {
		if e.UnicoProcessID == processID {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) ByConfiaProcessID(_ context.Context, processID string) (*model.Envelope, error) {
	for _, e := range s.envelopes {
		if e.ConfiaProcessID == processID {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) SaveScore(_ context.Context, token uuid.UUID, score string, status int) error {
	for _, e := range s.envelopes {
		if e.Token == token {
			e.LastScore = score
			e.LastScoreStatus = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *MemoryStore) Contracts(_ context.Context, token uuid.UUID) ([]model.Contract, error) {
	var out []model.Contract
	for _, c := range s.contracts {
		if c.EnvelopeToken == token {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RecordingDispatcher captures enqueued jobs for assertions.
type RecordingDispatcher struct {
	mu   sync.Mutex
	Jobs []DispatchedJob
}

type DispatchedJob struct {
	Name    string
	Payload map[string]any
}

func (d *RecordingDispatcher) Enqueue(jobName string, payload map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Jobs = append(d.Jobs, DispatchedJob{Name: jobName, Payload: payload})
}
