package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httphandler "github.com/credsim/origination-core/internal/http"
	"github.com/credsim/origination-core/internal/model"
	"github.com/credsim/origination-core/internal/service"
	"github.com/credsim/origination-core/internal/service/servicetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type webFixture struct {
	store  *servicetest.MemoryStore
	router *gin.Engine
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	store := servicetest.NewMemoryStore()
	dispatch := &servicetest.RecordingDispatcher{}
	log := zerolog.Nop()

	scores := service.NewScoreService(store, service.RoutingPolicy{}, dispatch, log)
	endorsements := service.NewEndorsementService(store, dispatch, log)
	handler := httphandler.NewHandler(scores, endorsements, log)
	return &webFixture{store: store, router: httphandler.NewRouter(handler, "test")}
}

func (f *webFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	f := newWebFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
}

func TestScoreWebhook(t *testing.T) {
	seed := func(t *testing.T, f *webFixture) *model.Contract {
		t.Helper()
		envelope := &model.Envelope{Token: uuid.New(), UnicoProcessID: "proc-1"}
		f.store.AddEnvelope(envelope)
		contract := &model.Contract{
			ID:            uuid.New(),
			EnvelopeToken: envelope.Token,
			ProductType:   model.ProductBenefitCard,
			Status:        model.ContractStatusFormalized,
			Signed:        true,
		}
		f.store.AddContract(contract)
		return contract
	}

	t.Run("approved score returns success body", func(t *testing.T) {
		f := newWebFixture(t)
		contract := seed(t, f)

		recorder := f.post(t, "/api/webhooks/unico/score", `{"data":{"id":"proc-1","status":3,"score":80}}`)
		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
		}
		body := decodeBody(t, recorder)
		if body["Sucesso"] != "Score dos Contratos Validados Com sucesso." {
			t.Fatalf("body = %v", body)
		}
		if validation := f.store.Validation(contract.ID, "Regra Score UNICO"); validation == nil || !validation.Checked {
			t.Fatalf("validation = %+v", validation)
		}
	})

	t.Run("invalid status is a bad request", func(t *testing.T) {
		f := newWebFixture(t)
		seed(t, f)

		recorder := f.post(t, "/api/webhooks/unico/score", `{"data":{"id":"proc-1","status":9,"score":80}}`)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
		if _, ok := decodeBody(t, recorder)["Erro"]; !ok {
			t.Fatalf("body = %s, want Erro key", recorder.Body.String())
		}
	})

	t.Run("unknown process id is not found", func(t *testing.T) {
		f := newWebFixture(t)
		recorder := f.post(t, "/api/webhooks/confia/score", `{"data":{"id":"ghost","status":3,"score":80}}`)
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", recorder.Code)
		}
	})
}

func TestEndorsementWebhook(t *testing.T) {
	seed := func(t *testing.T, f *webFixture) (uuid.UUID, *model.FreeMargin) {
		t.Helper()
		contract := &model.Contract{
			ID:          uuid.New(),
			ProductType: model.ProductFreeMargin,
			Status:      model.ContractStatusEndorsement,
			Signed:      true,
		}
		f.store.AddContract(contract)
		key := uuid.New()
		margin := &model.FreeMargin{
			ID: uuid.New(), ContractID: contract.ID,
			ProposalKey: key, Status: model.ProductStatusAwaitingEndorsement,
		}
		f.store.AddFreeMargin(margin)
		return key, margin
	}

	pendencyBody := func(key uuid.UUID) string {
		return fmt.Sprintf(`{
			"webhook_type": "credit_operation.collateral",
			"key": %q,
			"status": "pending",
			"data": {"collateral_data": {"reservation_method": "new_credit", "last_response": {"errors": [{"enumerator": "invalid_bank_code", "description": "d", "title": "t"}]}}}
		}`, key)
	}

	t.Run("pendency opens a correction episode", func(t *testing.T) {
		f := newWebFixture(t)
		key, margin := seed(t, f)

		recorder := f.post(t, "/api/webhooks/qitech/endorsement", pendencyBody(key))
		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
		}
		if margin.Status != model.ProductStatusEndorsementCorrection {
			t.Fatalf("margin status = %d, want correction", margin.Status)
		}
	})

	t.Run("transfer webhook with proposal_key opens a correction", func(t *testing.T) {
		f := newWebFixture(t)
		contract := &model.Contract{
			ID:          uuid.New(),
			ProductType: model.ProductPortability,
			Status:      model.ContractStatusEndorsement,
			Signed:      true,
		}
		f.store.AddContract(contract)
		key := uuid.New()
		port := &model.Portability{
			ID: uuid.New(), ContractID: contract.ID,
			ProposalKey: key, Status: model.ProductStatusAwaitingEndorsement,
		}
		f.store.AddPortability(port)

		body := fmt.Sprintf(`{
			"webhook_type": "credit_transfer.proposal.collateral",
			"proposal_key": %q,
			"status": "pending",
			"event_datetime": "2024-05-20T14:35:00Z",
			"data": {"collateral_data": {"last_response": {"errors": [{"enumerator": "wrong_benefit_number_on_portability", "description": "d", "title": "t"}]}}}
		}`, key)
		recorder := f.post(t, "/api/webhooks/qitech/endorsement", body)
		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
		}
		if port.Status != model.ProductStatusEndorsementCorrection {
			t.Fatalf("portability status = %d, want correction", port.Status)
		}
	})

	t.Run("jwt enveloped body is decoded", func(t *testing.T) {
		f := newWebFixture(t)
		key, margin := seed(t, f)

		var claims jwt.MapClaims
		if err := json.Unmarshal([]byte(pendencyBody(key)), &claims); err != nil {
			t.Fatalf("build claims: %v", err)
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("partner-secret"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}

		recorder := f.post(t, "/api/webhooks/qitech/endorsement", fmt.Sprintf(`{"encoded_body": %q}`, token))
		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
		}
		if margin.Status != model.ProductStatusEndorsementCorrection {
			t.Fatalf("margin status = %d, want correction", margin.Status)
		}
	})

	t.Run("schema error reports fields by path", func(t *testing.T) {
		f := newWebFixture(t)
		recorder := f.post(t, "/api/webhooks/qitech/endorsement", `{"key": "nope"}`)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
		body := decodeBody(t, recorder)
		erro, ok := body["erro"].(map[string]any)
		if !ok {
			t.Fatalf("body = %v", body)
		}
		message, _ := erro["message"].(string)
		if !strings.Contains(message, "wrong format") {
			t.Fatalf("message = %q", message)
		}
		if _, ok := erro["errors"].(map[string]any); !ok {
			t.Fatalf("errors = %v", erro["errors"])
		}
	})

	t.Run("unknown proposal is not found", func(t *testing.T) {
		f := newWebFixture(t)
		recorder := f.post(t, "/api/webhooks/qitech/endorsement", pendencyBody(uuid.New()))
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", recorder.Code)
		}
		if decodeBody(t, recorder)["erro"] != "Proposta não encontrada" {
			t.Fatalf("body = %s", recorder.Body.String())
		}
	})

	t.Run("code outside the allow list is a bad request", func(t *testing.T) {
		f := newWebFixture(t)
		key, _ := seed(t, f)
		body := strings.Replace(pendencyBody(key), "invalid_bank_code", "processing_payroll", 1)
		recorder := f.post(t, "/api/webhooks/qitech/endorsement", body)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
	})

	t.Run("open episode redelivery conflicts", func(t *testing.T) {
		f := newWebFixture(t)
		key, _ := seed(t, f)
		if recorder := f.post(t, "/api/webhooks/qitech/endorsement", pendencyBody(key)); recorder.Code != http.StatusOK {
			t.Fatalf("first delivery status = %d", recorder.Code)
		}
		recorder := f.post(t, "/api/webhooks/qitech/endorsement", pendencyBody(key))
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
		if decodeBody(t, recorder)["erro"] == nil {
			t.Fatalf("body = %s, want erro key", recorder.Body.String())
		}
	})
}
