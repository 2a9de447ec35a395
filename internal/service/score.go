package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

// Provider status codes for the biometric score webhook. Any other value is
// rejected before any write.
const (
	DivergencyStatus = 2
	SuccessStatus    = 3
)

// Half-open score bands. Together they partition [-90, 100); a boundary
// belongs to the band it opens. Values outside the union are rejected as
// invalid input.
const (
	restrictiveBandLow = -90
	disapprovedBandLow = -10
	approvedBandLow    = 50
	approvedBandHigh   = 100
)

func inRestrictiveBand(score int) bool {
	return score >= restrictiveBandLow && score < disapprovedBandLow
}

func inDisapprovedBand(score int) bool {
	return score >= disapprovedBandLow && score < approvedBandLow
}

func inApprovedBand(score int) bool {
	return score >= approvedBandLow && score < approvedBandHigh
}

// ScoreProvider selects which biometric partner sent the webhook. Both share
// the same engine; the provider picks the envelope lookup and the rule
// message.
type ScoreProvider string

const (
	ProviderUnico  ScoreProvider = "unico"
	ProviderConfia ScoreProvider = "confia"
)

func (p ScoreProvider) ruleMessage() string {
	if p == ProviderConfia {
		return "Regra Score CONFIA"
	}
	return "Regra Score UNICO"
}

func (p ScoreProvider) displayName() string {
	if p == ProviderConfia {
		return "CONFIA"
	}
	return "Unico"
}

type scoreClass int

const (
	scoreNoOp scoreClass = iota
	scoreApproved
	scoreDivergency
	scoreDisapproved
	scoreRestrictiveError
)

// ScorePayload is the decoded score webhook body.
type ScorePayload struct {
	ProcessID string
	Status    int
	// Score is nil when the provider omitted it (divergency deliveries).
	Score *int
	// RawScore keeps the value exactly as delivered for the envelope record.
	RawScore string
}

type scoreWire struct {
	Data struct {
		ID     *string `json:"id"`
		Status *int    `json:"status"`
		Score  any     `json:"score"`
	} `json:"data"`
}

// ParseScorePayload decodes and structurally validates a score webhook body.
// It fails closed: any status outside the two recognized values, or a score
// outside the three bands, rejects the whole request before any write.
func ParseScorePayload(body []byte) (ScorePayload, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var wire scoreWire
	if err := decoder.Decode(&wire); err != nil {
		return ScorePayload{}, fmt.Errorf("%w: malformed body: %v", ErrInvalidRequest, err)
	}

	if wire.Data.ID == nil || *wire.Data.ID == "" {
		return ScorePayload{}, fmt.Errorf("%w: invalid process id: does not exist", ErrInvalidRequest)
	}
	if wire.Data.Status == nil {
		return ScorePayload{}, fmt.Errorf("%w: invalid status: does not exist", ErrInvalidRequest)
	}
	status := *wire.Data.Status
	if status != DivergencyStatus && status != SuccessStatus {
		return ScorePayload{}, fmt.Errorf("%w: invalid status: %d", ErrInvalidRequest, status)
	}

	payload := ScorePayload{ProcessID: *wire.Data.ID, Status: status}

	if wire.Data.Score != nil {
		raw, score, err := coerceScore(wire.Data.Score)
		if err != nil {
			return ScorePayload{}, err
		}
		if !inRestrictiveBand(score) && !inDisapprovedBand(score) && !inApprovedBand(score) {
			return ScorePayload{}, fmt.Errorf("%w: invalid score: %d. Out of range", ErrInvalidRequest, score)
		}
		payload.Score = &score
		payload.RawScore = raw
	}
	return payload, nil
}

// coerceScore accepts an integer, a float, or a numeric string, the three
// shapes the providers have been seen sending.
func coerceScore(value any) (raw string, score int, err error) {
	switch v := value.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		return "", 0, fmt.Errorf("%w: invalid score type %T", ErrInvalidRequest, value)
	}

	if parsed, convErr := strconv.Atoi(raw); convErr == nil {
		return raw, parsed, nil
	}
	parsed, convErr := strconv.ParseFloat(raw, 64)
	if convErr != nil {
		return "", 0, fmt.Errorf("%w: invalid score: %q", ErrInvalidRequest, raw)
	}
	return raw, int(parsed), nil
}

// ScoreService interprets biometric score webhooks and applies guarded
// status transitions to every signed contract of the referenced envelope.
type ScoreService struct {
	uow      UnitOfWork
	routing  RoutingPolicy
	dispatch Dispatcher
	log      zerolog.Logger
}

func NewScoreService(uow UnitOfWork, routing RoutingPolicy, dispatch Dispatcher, log zerolog.Logger) *ScoreService {
	return &ScoreService{uow: uow, routing: routing, dispatch: dispatch, log: log}
}

// Process resolves the envelope, persists the delivered score on it and
// validates every signed contract in one atomic unit. Redelivering the same
// payload re-upserts the validation records but never re-transitions a
// contract past a checkpoint it already cleared.
func (s *ScoreService) Process(ctx context.Context, provider ScoreProvider, payload ScorePayload) error {
	envelope, err := s.findEnvelope(ctx, provider, payload.ProcessID)
	if err != nil {
		return err
	}

	var disapproved []model.Contract
	err = s.uow.Atomic(ctx, func(tx Stores) error {
		if err := tx.Envelopes.SaveScore(ctx, envelope.Token, payload.RawScore, payload.Status); err != nil {
			return err
		}
		contracts, err := tx.Envelopes.Contracts(ctx, envelope.Token)
		if err != nil {
			return err
		}
		for _, contract := range contracts {
			if !contract.Signed {
				continue
			}
			transitioned, err := s.validateContract(ctx, tx, provider, contract, payload)
			if err != nil {
				return err
			}
			if transitioned {
				disapproved = append(disapproved, contract)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, contract := range disapproved {
		s.dispatch.Enqueue("score.disapproved", map[string]any{
			"contract_id": contract.ID.String(),
			"provider":    string(provider),
		})
	}
	return nil
}

func (s *ScoreService) findEnvelope(ctx context.Context, provider ScoreProvider, processID string) (*model.Envelope, error) {
	stores := s.uow.View()
	var (
		envelope *model.Envelope
		err      error
	)
	if provider == ProviderConfia {
		envelope, err = stores.Envelopes.ByConfiaProcessID(ctx, processID)
	} else {
		envelope, err = stores.Envelopes.ByUnicoProcessID(ctx, processID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid process id: does not match any envelope", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return envelope, nil
}

func classifyScore(status, score int) scoreClass {
	switch {
	case status == SuccessStatus && inApprovedBand(score):
		return scoreApproved
	case status == DivergencyStatus:
		return scoreDivergency
	case inDisapprovedBand(score):
		return scoreDisapproved
	case inRestrictiveBand(score):
		return scoreRestrictiveError
	default:
		return scoreNoOp
	}
}

// validateContract runs the per-contract decision: validation record upsert
// plus, when the family guard allows it, one status transition. Returns
// whether a transition was applied.
func (s *ScoreService) validateContract(
	ctx context.Context,
	tx Stores,
	provider ScoreProvider,
	contract model.Contract,
	payload ScorePayload,
) (bool, error) {
	score := 0
	if payload.Score != nil {
		score = *payload.Score
	}
	class := classifyScore(payload.Status, score)

	if class == scoreApproved {
		feedback := fmt.Sprintf("SCORE APROVADO Valor: %d", score)
		_, err := tx.Validations.Upsert(ctx, contract.ID, provider.ruleMessage(), true, feedback)
		return false, err
	}
	if class == scoreNoOp {
		s.log.Warn().
			Str("contract_id", contract.ID.String()).
			Int("status", payload.Status).
			Int("score", score).
			Msg("inconsistent score classification, skipping transition")
		return false, nil
	}

	feedback := fmt.Sprintf("SCORE REPROVADO Valor: %d", score)
	if class == scoreDivergency {
		feedback = fmt.Sprintf("SCORE REPROVADO Divergencia na %s", provider.displayName())
	}
	if _, err := tx.Validations.Upsert(ctx, contract.ID, provider.ruleMessage(), false, feedback); err != nil {
		return false, err
	}

	family := familyOf(contract.ProductType)
	last, err := tx.Ledger.LastStatus(ctx, contract.ID)
	if err != nil {
		return false, err
	}
	if !family.readyToDisapprove(last) {
		return false, nil
	}

	// Terminal disapprovals freeze the contract for both engines.
	frozen, err := tx.Ledger.HasStatusIn(ctx, contract.ID, model.TerminalStatuses)
	if err != nil {
		return false, err
	}
	if frozen {
		return false, nil
	}

	transition, ok := family.transitionOnDisapprove(class, contract, s.routing)
	if !ok {
		return false, nil
	}

	if err := tx.Contracts.UpdateStatus(ctx, contract.ID, transition.contractStatus); err != nil {
		return false, err
	}
	if family.updatesSubStatus() {
		sub, err := tx.SubContracts.Resolve(ctx, contract)
		if err != nil {
			return false, err
		}
		if sub.SubKind() != model.SubKindUnsupported {
			if err := tx.SubContracts.UpdateStatus(ctx, sub, transition.subStatus); err != nil {
				return false, err
			}
		}
	}
	if _, err := tx.Ledger.Append(ctx, contract.ID, transition.subStatus, transition.description, model.OriginalStatuses{}); err != nil {
		return false, err
	}

	s.log.Info().
		Str("contract_id", contract.ID.String()).
		Int16("status", int16(transition.subStatus)).
		Str("provider", string(provider)).
		Msg("score disapproval transition applied")
	return true, nil
}
