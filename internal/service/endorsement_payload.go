package service

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Webhook types delivered on the endorsement pendency route.
const (
	WebhookCreditOperation = "credit_operation.collateral"
	WebhookCreditTransfer  = "credit_transfer.proposal.collateral"
)

// Reservation methods that split credit_operation webhooks into families.
const (
	ReservationNewCredit   = "new_credit"
	ReservationRefinancing = "refinancing"
)

// EndorsementFamily identifies which strategy handles a pendency webhook.
type EndorsementFamily string

const (
	FamilyFreeMargin  EndorsementFamily = "free margin endorsement"
	FamilyRefinancing EndorsementFamily = "refinancing endorsement"
	FamilyPortability EndorsementFamily = "portability endorsement"
)

// EndorsementPayload is the decoded pendency webhook. Only the first reported
// error drives the decision; the rest of the batch is ignored.
type EndorsementPayload struct {
	WebhookType       string
	ProposalKey       uuid.UUID
	ReservationMethod string
	ErrorCode         string
	ErrorDescription  string
}

// The operation webhook carries the proposal id as "key"; the transfer
// webhook names the same field "proposal_key". Both spellings are accepted.
type endorsementWire struct {
	WebhookType *string              `json:"webhook_type"`
	Key         *string              `json:"key"`
	ProposalKey *string              `json:"proposal_key"`
	Status      *string              `json:"status"`
	Data        *endorsementWireData `json:"data"`
}

type endorsementWireData struct {
	CollateralData *collateralWire `json:"collateral_data"`
}

type collateralWire struct {
	ReservationMethod *string           `json:"reservation_method"`
	LastResponse      *lastResponseWire `json:"last_response"`
}

type lastResponseWire struct {
	Errors []collateralErrorWire `json:"errors"`
}

type collateralErrorWire struct {
	Enumerator  *string `json:"enumerator"`
	Description string  `json:"description"`
	Title       string  `json:"title"`
}

// fieldErrors accumulates schema problems keyed by payload path, nested the
// way the partner sees the document.
type fieldErrors map[string]any

func (f fieldErrors) set(msg string, path ...string) {
	node := map[string]any(f)
	for _, key := range path[:len(path)-1] {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[key] = child
		}
		node = child
	}
	node[path[len(path)-1]] = msg
}

// ParseEndorsementPayload decodes and schema-validates a pendency webhook
// body. All field problems are collected into one SchemaError instead of
// failing on the first.
func ParseEndorsementPayload(body []byte) (EndorsementPayload, error) {
	var wire endorsementWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return EndorsementPayload{}, &SchemaError{
			Family: "endorsement",
			Fields: fieldErrors{"body": fmt.Sprintf("invalid json: %v", err)},
		}
	}

	fields := fieldErrors{}
	payload := EndorsementPayload{}

	switch {
	case wire.WebhookType == nil:
		fields.set("field required", "webhook_type")
	case *wire.WebhookType != WebhookCreditOperation && *wire.WebhookType != WebhookCreditTransfer:
		fields.set(fmt.Sprintf("unexpected value %q", *wire.WebhookType), "webhook_type")
	default:
		payload.WebhookType = *wire.WebhookType
	}

	rawKey, keyField := wire.Key, "key"
	if rawKey == nil && wire.ProposalKey != nil {
		rawKey, keyField = wire.ProposalKey, "proposal_key"
	}
	if rawKey == nil {
		if payload.WebhookType == WebhookCreditTransfer {
			keyField = "proposal_key"
		}
		fields.set("field required", keyField)
	} else if key, err := uuid.Parse(*rawKey); err != nil {
		fields.set("value is not a valid uuid", keyField)
	} else {
		payload.ProposalKey = key
	}

	var collateral *collateralWire
	if wire.Data != nil {
		collateral = wire.Data.CollateralData
	}
	if collateral == nil {
		fields.set("field required", "data", "collateral_data")
	} else {
		if payload.WebhookType == WebhookCreditOperation {
			switch {
			case collateral.ReservationMethod == nil:
				fields.set("field required", "data", "collateral_data", "reservation_method")
			case *collateral.ReservationMethod != ReservationNewCredit && *collateral.ReservationMethod != ReservationRefinancing:
				fields.set(fmt.Sprintf("unexpected value %q", *collateral.ReservationMethod), "data", "collateral_data", "reservation_method")
			default:
				payload.ReservationMethod = *collateral.ReservationMethod
			}
		} else if collateral.ReservationMethod != nil {
			payload.ReservationMethod = *collateral.ReservationMethod
		}

		switch {
		case collateral.LastResponse == nil:
			fields.set("field required", "data", "collateral_data", "last_response")
		case len(collateral.LastResponse.Errors) == 0:
			fields.set("at least one error is required", "data", "collateral_data", "last_response", "errors")
		case collateral.LastResponse.Errors[0].Enumerator == nil:
			fields.set("field required", "data", "collateral_data", "last_response", "errors", "enumerator")
		default:
			payload.ErrorCode = *collateral.LastResponse.Errors[0].Enumerator
			payload.ErrorDescription = collateral.LastResponse.Errors[0].Description
		}
	}

	if len(fields) > 0 {
		family := "endorsement"
		if f, err := familyForWebhook(payload.WebhookType, payload.ReservationMethod); err == nil {
			family = string(f)
		}
		return EndorsementPayload{}, &SchemaError{Family: family, Fields: fields}
	}
	return payload, nil
}

// familyForWebhook dispatches a webhook to its strategy family.
func familyForWebhook(webhookType, reservationMethod string) (EndorsementFamily, error) {
	switch webhookType {
	case WebhookCreditOperation:
		switch reservationMethod {
		case ReservationNewCredit:
			return FamilyFreeMargin, nil
		case ReservationRefinancing:
			return FamilyRefinancing, nil
		}
		return "", fmt.Errorf("%w: unsupported reservation method %q", ErrInvalidRequest, reservationMethod)
	case WebhookCreditTransfer:
		return FamilyPortability, nil
	}
	return "", fmt.Errorf("%w: unsupported webhook type %q", ErrInvalidRequest, webhookType)
}
