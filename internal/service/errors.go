package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks payloads that are malformed or out of the
	// accepted domain. Raised before any write.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks envelopes, contracts or proposals that cannot be
	// resolved from the payload.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks deliveries that collide with an open
	// manual-correction episode or a mismatched precondition.
	ErrConflict = errors.New("conflict")
)

// SchemaError reports a structurally invalid endorsement payload. Fields is
// the field-keyed report surfaced to the partner, nested by payload path.
type SchemaError struct {
	Family string
	Fields map[string]any
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("payload of %s in the wrong format", e.Family)
}

// ProposalNotValidError carries an endorsement error code outside the
// recoverable allow-list. It is surfaced distinctly so callers can route the
// webhook through a non-automatic path.
type ProposalNotValidError struct {
	Family string
	Code   string
}

func (e *ProposalNotValidError) Error() string {
	return fmt.Sprintf("%s proposal status %s not valid", e.Family, e.Code)
}

// UnsupportedPendencyError marks a recoverable code with no mapped pendency
// reason. The orchestration boundary downgrades it to a logged warning and
// acknowledges the webhook, since a partner retry would not change the
// outcome.
type UnsupportedPendencyError struct {
	Code string
}

func (e *UnsupportedPendencyError) Error() string {
	return fmt.Sprintf("pending reason %q is not valid for internal treatment", e.Code)
}
