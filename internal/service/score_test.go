package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/credsim/origination-core/internal/model"
	"github.com/credsim/origination-core/internal/service"
	"github.com/credsim/origination-core/internal/service/servicetest"
)

func scorePayload(t *testing.T, body string) service.ScorePayload {
	t.Helper()
	payload, err := service.ParseScorePayload([]byte(body))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	return payload
}

type scoreFixture struct {
	store    *servicetest.MemoryStore
	dispatch *servicetest.RecordingDispatcher
	svc      *service.ScoreService
	envelope *model.Envelope
}

func newScoreFixture(t *testing.T, routing service.RoutingPolicy) *scoreFixture {
	t.Helper()
	store := servicetest.NewMemoryStore()
	dispatch := &servicetest.RecordingDispatcher{}
	envelope := &model.Envelope{
		Token:           uuid.New(),
		UnicoProcessID:  "proc-unico-1",
		ConfiaProcessID: "proc-confia-1",
	}
	store.AddEnvelope(envelope)
	return &scoreFixture{
		store:    store,
		dispatch: dispatch,
		svc:      service.NewScoreService(store, routing, dispatch, zerolog.Nop()),
		envelope: envelope,
	}
}

func (f *scoreFixture) addContract(productType model.ProductType, mutate ...func(*model.Contract)) *model.Contract {
	contract := &model.Contract{
		ID:            uuid.New(),
		EnvelopeToken: f.envelope.Token,
		ProductType:   productType,
		Status:        model.ContractStatusFormalized,
		Signed:        true,
		CreatedAt:     time.Now(),
	}
	for _, m := range mutate {
		m(contract)
	}
	f.store.AddContract(contract)
	return contract
}

func TestParseScorePayload(t *testing.T) {
	t.Run("integer score", func(t *testing.T) {
		payload := scorePayload(t, `{"data":{"id":"proc","status":3,"score":75}}`)
		if payload.Score == nil || *payload.Score != 75 {
			t.Fatalf("score = %v, want 75", payload.Score)
		}
		if payload.RawScore != "75" {
			t.Fatalf("raw score = %q, want 75", payload.RawScore)
		}
	})

	t.Run("numeric string score", func(t *testing.T) {
		payload := scorePayload(t, `{"data":{"id":"proc","status":3,"score":"64"}}`)
		if payload.Score == nil || *payload.Score != 64 {
			t.Fatalf("score = %v, want 64", payload.Score)
		}
	})

	t.Run("float string is truncated", func(t *testing.T) {
		payload := scorePayload(t, `{"data":{"id":"proc","status":3,"score":"79.5"}}`)
		if payload.Score == nil || *payload.Score != 79 {
			t.Fatalf("score = %v, want 79", payload.Score)
		}
	})

	t.Run("absent score", func(t *testing.T) {
		payload := scorePayload(t, `{"data":{"id":"proc","status":2}}`)
		if payload.Score != nil {
			t.Fatalf("score = %v, want nil", payload.Score)
		}
	})

	t.Run("missing process id", func(t *testing.T) {
		_, err := service.ParseScorePayload([]byte(`{"data":{"status":3,"score":75}}`))
		if !errors.Is(err, service.ErrInvalidRequest) {
			t.Fatalf("err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("missing status", func(t *testing.T) {
		_, err := service.ParseScorePayload([]byte(`{"data":{"id":"proc","score":75}}`))
		if !errors.Is(err, service.ErrInvalidRequest) {
			t.Fatalf("err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := service.ParseScorePayload([]byte(`{"data":{"id":"proc","status":5,"score":75}}`))
		if !errors.Is(err, service.ErrInvalidRequest) {
			t.Fatalf("err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("non numeric score", func(t *testing.T) {
		_, err := service.ParseScorePayload([]byte(`{"data":{"id":"proc","status":3,"score":"high"}}`))
		if !errors.Is(err, service.ErrInvalidRequest) {
			t.Fatalf("err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("band boundaries", func(t *testing.T) {
		for score := -90; score < 100; score++ {
			body := fmt.Sprintf(`{"data":{"id":"proc","status":3,"score":%d}}`, score)
			if _, err := service.ParseScorePayload([]byte(body)); err != nil {
				t.Fatalf("score %d rejected: %v", score, err)
			}
		}
		for _, score := range []int{-91, 100, 250} {
			body := fmt.Sprintf(`{"data":{"id":"proc","status":3,"score":%d}}`, score)
			if _, err := service.ParseScorePayload([]byte(body)); !errors.Is(err, service.ErrInvalidRequest) {
				t.Fatalf("score %d accepted, want ErrInvalidRequest", score)
			}
		}
	})
}

func TestScoreApproved(t *testing.T) {
	f := newScoreFixture(t, service.RoutingPolicy{})
	contract := f.addContract(model.ProductBenefitCard)

	payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":75}}`)
	if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
		t.Fatalf("process: %v", err)
	}

	validation := f.store.Validation(contract.ID, "Regra Score UNICO")
	if validation == nil || !validation.Checked {
		t.Fatalf("validation = %+v, want checked", validation)
	}
	if validation.Feedback != "SCORE APROVADO Valor: 75" {
		t.Fatalf("feedback = %q", validation.Feedback)
	}
	if got := f.store.Contract(contract.ID).Status; got != model.ContractStatusFormalized {
		t.Fatalf("contract status = %d, want unchanged", got)
	}
	if recs := f.store.Records(contract.ID); len(recs) != 0 {
		t.Fatalf("records = %d, want none", len(recs))
	}
	if len(f.dispatch.Jobs) != 0 {
		t.Fatalf("jobs = %d, want none", len(f.dispatch.Jobs))
	}
	if f.store.Envelope(f.envelope.Token).LastScore != "75" {
		t.Fatalf("envelope score = %q, want 75", f.store.Envelope(f.envelope.Token).LastScore)
	}
}

func TestScoreDisapprovedBenefitCard(t *testing.T) {
	t.Run("routes to formalization desk", func(t *testing.T) {
		f := newScoreFixture(t, service.RoutingPolicy{})
		contract := f.addContract(model.ProductBenefitCard)
		card := &model.BenefitCard{ID: uuid.New(), ContractID: contract.ID, Status: model.ProductStatusTyping}
		f.store.AddBenefitCard(card)

		payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":30}}`)
		if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
			t.Fatalf("process: %v", err)
		}

		validation := f.store.Validation(contract.ID, "Regra Score UNICO")
		if validation == nil || validation.Checked {
			t.Fatalf("validation = %+v, want unchecked", validation)
		}
		if validation.Feedback != "SCORE REPROVADO Valor: 30" {
			t.Fatalf("feedback = %q", validation.Feedback)
		}
		if got := f.store.Contract(contract.ID).Status; got != model.ContractStatusDeskReview {
			t.Fatalf("contract status = %d, want desk review", got)
		}
		last := f.store.LastRecord(contract.ID)
		if last == nil || last.Status != model.ProductStatusFormalizationDeskCheck {
			t.Fatalf("last record = %+v, want formalization desk check", last)
		}
		if !last.Snapshot.IsZero() {
			t.Fatalf("score transitions must not carry a snapshot")
		}
		if card.Status != model.ProductStatusFormalizationDeskCheck {
			t.Fatalf("card status = %d, want formalization desk check", card.Status)
		}
		if len(f.dispatch.Jobs) != 1 || f.dispatch.Jobs[0].Name != "score.disapproved" {
			t.Fatalf("jobs = %+v, want one score.disapproved", f.dispatch.Jobs)
		}
	})

	t.Run("routes to corban desk when enabled", func(t *testing.T) {
		f := newScoreFixture(t, service.RoutingPolicy{CorbanDeskEnabled: true})
		contract := f.addContract(model.ProductPayrollCard, func(c *model.Contract) { c.CorbanDesk = true })
		f.store.AddBenefitCard(&model.BenefitCard{ID: uuid.New(), ContractID: contract.ID})

		payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":0}}`)
		if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
			t.Fatalf("process: %v", err)
		}
		last := f.store.LastRecord(contract.ID)
		if last == nil || last.Status != model.ProductStatusCorbanDeskCheck {
			t.Fatalf("last record = %+v, want corban desk check", last)
		}
	})

	t.Run("redelivery does not stack reviews", func(t *testing.T) {
		f := newScoreFixture(t, service.RoutingPolicy{})
		contract := f.addContract(model.ProductComplementaryWithdrawal)
		f.store.AddWithdrawal(&model.ComplementaryWithdrawal{ID: uuid.New(), ContractID: contract.ID})

		payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":30}}`)
		for i := 0; i < 2; i++ {
			if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
				t.Fatalf("process %d: %v", i, err)
			}
		}
		if recs := f.store.Records(contract.ID); len(recs) != 1 {
			t.Fatalf("records = %d, want 1", len(recs))
		}
		if len(f.dispatch.Jobs) != 1 {
			t.Fatalf("jobs = %d, want 1", len(f.dispatch.Jobs))
		}
	})
}

func TestScoreDivergencyPortability(t *testing.T) {
	f := newScoreFixture(t, service.RoutingPolicy{})
	contract := f.addContract(model.ProductPortability)
	port := &model.Portability{ID: uuid.New(), ContractID: contract.ID, Status: model.ProductStatusAwaitingEndorsement}
	f.store.AddPortability(port)

	payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":2}}`)
	if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
		t.Fatalf("process: %v", err)
	}

	validation := f.store.Validation(contract.ID, "Regra Score UNICO")
	if validation == nil || validation.Feedback != "SCORE REPROVADO Divergencia na Unico" {
		t.Fatalf("validation = %+v", validation)
	}
	if got := f.store.Contract(contract.ID).Status; got != model.ContractStatusCancelled {
		t.Fatalf("contract status = %d, want cancelled", got)
	}
	last := f.store.LastRecord(contract.ID)
	if last == nil || last.Status != model.ProductStatusRejectedInternalPolicy {
		t.Fatalf("last record = %+v, want rejected internal policy", last)
	}
	if last.Description != "Recusada por politíca interna (SF) - Biometria facial" {
		t.Fatalf("description = %q", last.Description)
	}
	if port.Status != model.ProductStatusRejectedInternalPolicy {
		t.Fatalf("portability status = %d", port.Status)
	}

	// Redelivery stops at the guard.
	if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if recs := f.store.Records(contract.ID); len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
}

func TestScoreRestrictive(t *testing.T) {
	t.Run("portability goes to corban desk", func(t *testing.T) {
		f := newScoreFixture(t, service.RoutingPolicy{})
		contract := f.addContract(model.ProductPortability)
		f.store.AddPortability(&model.Portability{ID: uuid.New(), ContractID: contract.ID})

		payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":-50}}`)
		if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
			t.Fatalf("process: %v", err)
		}
		if got := f.store.Contract(contract.ID).Status; got != model.ContractStatusDeskReview {
			t.Fatalf("contract status = %d, want desk review", got)
		}
		last := f.store.LastRecord(contract.ID)
		if last == nil || last.Status != model.ProductStatusCorbanDeskCheck {
			t.Fatalf("last record = %+v, want corban desk check", last)
		}
		if last.Description != "SCORE da UNICO abaixo do aceito" {
			t.Fatalf("description = %q", last.Description)
		}
	})

	t.Run("benefit card is finalized rejected and frozen", func(t *testing.T) {
		f := newScoreFixture(t, service.RoutingPolicy{})
		contract := f.addContract(model.ProductBenefitCard)
		f.store.AddBenefitCard(&model.BenefitCard{ID: uuid.New(), ContractID: contract.ID})

		payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":-50}}`)
		if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
			t.Fatalf("process: %v", err)
		}
		if got := f.store.Contract(contract.ID).Status; got != model.ContractStatusCancelled {
			t.Fatalf("contract status = %d, want cancelled", got)
		}
		last := f.store.LastRecord(contract.ID)
		if last == nil || last.Status != model.ProductStatusFinalizedRejected {
			t.Fatalf("last record = %+v, want finalized rejected", last)
		}

		// The terminal status freezes the contract against any later delivery.
		if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
			t.Fatalf("redelivery: %v", err)
		}
		if recs := f.store.Records(contract.ID); len(recs) != 1 {
			t.Fatalf("records = %d, want 1", len(recs))
		}
	})
}

func TestScorePassiveFamilies(t *testing.T) {
	f := newScoreFixture(t, service.RoutingPolicy{})
	contract := f.addContract(model.ProductFGTS)

	payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":30}}`)
	if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
		t.Fatalf("process: %v", err)
	}

	if validation := f.store.Validation(contract.ID, "Regra Score UNICO"); validation == nil || validation.Checked {
		t.Fatalf("validation = %+v, want unchecked record", validation)
	}
	if recs := f.store.Records(contract.ID); len(recs) != 0 {
		t.Fatalf("records = %d, want none", len(recs))
	}
	if got := f.store.Contract(contract.ID).Status; got != model.ContractStatusFormalized {
		t.Fatalf("contract status = %d, want unchanged", got)
	}
}

func TestScoreSkipsUnsignedContracts(t *testing.T) {
	f := newScoreFixture(t, service.RoutingPolicy{})
	contract := f.addContract(model.ProductBenefitCard, func(c *model.Contract) { c.Signed = false })

	payload := scorePayload(t, `{"data":{"id":"proc-unico-1","status":3,"score":30}}`)
	if err := f.svc.Process(context.Background(), service.ProviderUnico, payload); err != nil {
		t.Fatalf("process: %v", err)
	}
	if validation := f.store.Validation(contract.ID, "Regra Score UNICO"); validation != nil {
		t.Fatalf("validation = %+v, want none", validation)
	}
}

func TestScoreEnvelopeNotFound(t *testing.T) {
	f := newScoreFixture(t, service.RoutingPolicy{})
	payload := scorePayload(t, `{"data":{"id":"unknown","status":3,"score":75}}`)
	err := f.svc.Process(context.Background(), service.ProviderUnico, payload)
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestScoreConfiaProvider(t *testing.T) {
	f := newScoreFixture(t, service.RoutingPolicy{})
	contract := f.addContract(model.ProductPortability)
	f.store.AddPortability(&model.Portability{ID: uuid.New(), ContractID: contract.ID})

	payload := scorePayload(t, `{"data":{"id":"proc-confia-1","status":2}}`)
	if err := f.svc.Process(context.Background(), service.ProviderConfia, payload); err != nil {
		t.Fatalf("process: %v", err)
	}

	validation := f.store.Validation(contract.ID, "Regra Score CONFIA")
	if validation == nil {
		t.Fatal("validation record missing for confia rule")
	}
	if validation.Feedback != "SCORE REPROVADO Divergencia na CONFIA" {
		t.Fatalf("feedback = %q", validation.Feedback)
	}
}
