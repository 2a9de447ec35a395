package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/credsim/origination-core/internal/service"
)

type Handler struct {
	scores       *service.ScoreService
	endorsements *service.EndorsementService
	log          zerolog.Logger
}

func NewHandler(scores *service.ScoreService, endorsements *service.EndorsementService, log zerolog.Logger) *Handler {
	return &Handler{scores: scores, endorsements: endorsements, log: log}
}

func (h *Handler) Register(router *gin.Engine) {
	router.GET("/healthz", h.health)

	webhooks := router.Group("/api/webhooks")
	webhooks.POST("/unico/score", h.unicoScore)
	webhooks.POST("/confia/score", h.confiaScore)
	webhooks.POST("/qitech/endorsement", h.qitechEndorsement)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) unicoScore(c *gin.Context) {
	h.score(c, service.ProviderUnico)
}

func (h *Handler) confiaScore(c *gin.Context) {
	h.score(c, service.ProviderConfia)
}

func (h *Handler) score(c *gin.Context, provider service.ScoreProvider) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"Erro": "corpo da requisição ilegível"})
		return
	}

	payload, err := service.ParseScorePayload(body)
	if err != nil {
		h.handleScoreError(c, err)
		return
	}

	if err := h.scores.Process(c.Request.Context(), provider, payload); err != nil {
		h.handleScoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"Sucesso": "Score dos Contratos Validados Com sucesso."})
}

func (h *Handler) handleScoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"Erro": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"Erro": err.Error()})
	default:
		h.log.Error().Err(err).Msg("score webhook failed")
		c.JSON(http.StatusInternalServerError, gin.H{"Erro": "Não foi possível encontrar o contrato."})
	}
}

func (h *Handler) qitechEndorsement(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"erro": "corpo da requisição ilegível"})
		return
	}

	body, err = decodeEnvelopedBody(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"erro": err.Error()})
		return
	}

	payload, err := service.ParseEndorsementPayload(body)
	if err != nil {
		h.handleEndorsementError(c, err)
		return
	}

	if err := h.endorsements.Process(c.Request.Context(), payload); err != nil {
		h.handleEndorsementError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sucesso": "Webhook processado com sucesso."})
}

func (h *Handler) handleEndorsementError(c *gin.Context, err error) {
	var schemaErr *service.SchemaError
	if errors.As(err, &schemaErr) {
		c.JSON(http.StatusBadRequest, gin.H{"erro": gin.H{
			"message": fmt.Sprintf("Payload of %s in the wrong format", schemaErr.Family),
			"errors":  schemaErr.Fields,
		}})
		return
	}
	var notValid *service.ProposalNotValidError
	if errors.As(err, &notValid) {
		c.JSON(http.StatusBadRequest, gin.H{"erro": notValid.Error()})
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"erro": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"erro": "Proposta não encontrada"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"erro": err.Error()})
	default:
		h.log.Error().Err(err).Msg("endorsement webhook failed")
		c.JSON(http.StatusInternalServerError, gin.H{"erro": "erro interno"})
	}
}

// decodeEnvelopedBody unwraps the partner's optional JWT envelope. The token
// is decoded without signature verification; the claims are the real webhook
// body. Plain JSON bodies pass through untouched.
func decodeEnvelopedBody(body []byte) ([]byte, error) {
	var envelope struct {
		EncodedBody string `json:"encoded_body"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.EncodedBody == "" {
		return body, nil
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(envelope.EncodedBody, claims); err != nil {
		return nil, fmt.Errorf("encoded_body inválido: %w", err)
	}
	decoded, err := json.Marshal(claims)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
