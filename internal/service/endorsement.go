package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/credsim/origination-core/internal/model"
)

// recoverableCodes is the closed allow-list of partner error enumerators that
// open a manual-correction episode. Everything else is not valid for internal
// treatment. The misspelled margin code is the exact enumerator the partner
// sends.
var recoverableCodes = map[string]struct{}{
	"invalid_disbursement_account":        {},
	"first_name_mismatch":                 {},
	"invalid_state":                       {},
	"invalid_bank_code":                   {},
	"wrong_benefit_number_on_portability": {},
	"consignable_margin_excceded":         {},
}

// pendencyReasons maps recoverable codes to the short label shown to the
// correction desk.
var pendencyReasons = map[string]string{
	"invalid_disbursement_account":        "Dados Bancários",
	"first_name_mismatch":                 "Nome do Cliente",
	"invalid_state":                       "UF",
	"invalid_bank_code":                   "Número do Banco",
	"wrong_benefit_number_on_portability": "Número do Benefício",
	"consignable_margin_excceded":         "Margem Excedida",
}

func pendencyReasonFor(code string) (string, error) {
	reason, ok := pendencyReasons[code]
	if !ok {
		return "", &UnsupportedPendencyError{Code: code}
	}
	return reason, nil
}

// EndorsementService turns partner pendency webhooks into manual-correction
// episodes: it snapshots the proposal statuses, moves the proposal into
// correction and appends one status record carrying the snapshot.
type EndorsementService struct {
	uow      UnitOfWork
	dispatch Dispatcher
	log      zerolog.Logger
}

func NewEndorsementService(uow UnitOfWork, dispatch Dispatcher, log zerolog.Logger) *EndorsementService {
	return &EndorsementService{uow: uow, dispatch: dispatch, log: log}
}

// pendencyOutcome is what a strategy decided inside the transaction, used for
// post-commit dispatch.
type pendencyOutcome struct {
	applied    bool
	contractID uuid.UUID
	reason     string
}

// Process dispatches a pendency webhook to its family strategy and runs it in
// one atomic unit. A code outside the allow-list fails the whole delivery; a
// recoverable code with no mapped reason is logged and acknowledged, since a
// partner retry would not change the outcome.
func (s *EndorsementService) Process(ctx context.Context, payload EndorsementPayload) error {
	family, err := familyForWebhook(payload.WebhookType, payload.ReservationMethod)
	if err != nil {
		return err
	}

	if _, ok := recoverableCodes[payload.ErrorCode]; !ok {
		return &ProposalNotValidError{Family: string(family), Code: payload.ErrorCode}
	}
	reason, err := pendencyReasonFor(payload.ErrorCode)
	if err != nil {
		var unsupported *UnsupportedPendencyError
		if errors.As(err, &unsupported) {
			s.log.Warn().
				Str("family", string(family)).
				Str("code", unsupported.Code).
				Msg("pendency code has no mapped reason, acknowledging without treatment")
			return nil
		}
		return err
	}

	var outcome pendencyOutcome
	err = s.uow.Atomic(ctx, func(tx Stores) error {
		switch family {
		case FamilyFreeMargin:
			outcome, err = s.pendFreeMargin(ctx, tx, payload.ProposalKey, reason)
		case FamilyRefinancing:
			outcome, err = s.pendRefinancing(ctx, tx, payload.ProposalKey, reason)
		case FamilyPortability:
			outcome, err = s.pendPortability(ctx, tx, payload.ProposalKey, reason)
		}
		return err
	})
	if err != nil {
		return err
	}

	if outcome.applied {
		s.dispatch.Enqueue("endorsement.pending-notice", map[string]any{
			"contract_id": outcome.contractID.String(),
			"family":      string(family),
			"reason":      outcome.reason,
		})
	}
	return nil
}

// pendFreeMargin opens a correction episode on a free margin proposal. The
// proposal must still be awaiting endorsement.
func (s *EndorsementService) pendFreeMargin(ctx context.Context, tx Stores, key uuid.UUID, reason string) (pendencyOutcome, error) {
	sub, err := tx.SubContracts.FreeMarginByProposalKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pendencyOutcome{}, fmt.Errorf("%w: free margin proposal %s", ErrNotFound, key)
	}
	if err != nil {
		return pendencyOutcome{}, err
	}

	skip, err := s.commonGuards(ctx, tx, sub.ContractID, sub.Status == model.ProductStatusEndorsementCorrection)
	if err != nil || skip {
		return pendencyOutcome{}, err
	}
	if sub.Status != model.ProductStatusAwaitingEndorsement {
		return pendencyOutcome{}, fmt.Errorf("%w: free margin proposal %s is not awaiting endorsement", ErrConflict, key)
	}

	snapshot := model.OriginalStatuses{FreeMarginStatus: statusPtr(sub.Status)}
	if err := tx.SubContracts.UpdateStatus(ctx, sub, model.ProductStatusEndorsementCorrection); err != nil {
		return pendencyOutcome{}, err
	}
	if _, err := tx.Ledger.Append(ctx, sub.ContractID, model.ProductStatusEndorsementCorrection, reason, snapshot); err != nil {
		return pendencyOutcome{}, err
	}
	return pendencyOutcome{applied: true, contractID: sub.ContractID, reason: reason}, nil
}

// pendPortability opens a correction episode on a portability proposal.
func (s *EndorsementService) pendPortability(ctx context.Context, tx Stores, key uuid.UUID, reason string) (pendencyOutcome, error) {
	sub, err := tx.SubContracts.PortabilityByProposalKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pendencyOutcome{}, fmt.Errorf("%w: portability proposal %s", ErrNotFound, key)
	}
	if err != nil {
		return pendencyOutcome{}, err
	}

	skip, err := s.commonGuards(ctx, tx, sub.ContractID, sub.Status == model.ProductStatusEndorsementCorrection)
	if err != nil || skip {
		return pendencyOutcome{}, err
	}
	if sub.Status != model.ProductStatusAwaitingEndorsement {
		return pendencyOutcome{}, fmt.Errorf("%w: portability proposal %s is not awaiting endorsement", ErrConflict, key)
	}

	snapshot := model.OriginalStatuses{PortabilityStatus: statusPtr(sub.Status)}
	if err := tx.SubContracts.UpdateStatus(ctx, sub, model.ProductStatusEndorsementCorrection); err != nil {
		return pendencyOutcome{}, err
	}
	if _, err := tx.Ledger.Append(ctx, sub.ContractID, model.ProductStatusEndorsementCorrection, reason, snapshot); err != nil {
		return pendencyOutcome{}, err
	}
	return pendencyOutcome{applied: true, contractID: sub.ContractID, reason: reason}, nil
}

// pendRefinancing opens a correction episode on a portability-refinancing
// pair. The snapshot records both statuses but only the refinancing proposal
// is moved into correction; the portability leg keeps whatever stage of the
// two-step endorsement it reached.
func (s *EndorsementService) pendRefinancing(ctx context.Context, tx Stores, key uuid.UUID, reason string) (pendencyOutcome, error) {
	refin, err := tx.SubContracts.RefinancingByProposalKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pendencyOutcome{}, fmt.Errorf("%w: refinancing proposal %s", ErrNotFound, key)
	}
	if err != nil {
		return pendencyOutcome{}, err
	}
	contract, err := tx.Contracts.ByID(ctx, refin.ContractID)
	if err != nil {
		return pendencyOutcome{}, err
	}
	sub, err := tx.SubContracts.Resolve(ctx, *contract)
	if err != nil {
		return pendencyOutcome{}, err
	}
	port, ok := sub.(*model.Portability)
	if !ok {
		return pendencyOutcome{}, fmt.Errorf("%w: contract %s has no portability leg", ErrNotFound, refin.ContractID)
	}

	frozen, err := tx.Ledger.HasStatusIn(ctx, refin.ContractID, model.TerminalStatuses)
	if err != nil {
		return pendencyOutcome{}, err
	}
	if frozen {
		s.log.Info().
			Str("contract_id", refin.ContractID.String()).
			Msg("pendency for terminally rejected contract ignored")
		return pendencyOutcome{}, nil
	}

	snap, err := tx.Ledger.LastSnapshottedStatus(ctx, refin.ContractID)
	if err != nil {
		return pendencyOutcome{}, err
	}
	if snap != nil && snap.Status == model.ProductStatusEndorsementCorrection {
		bothCorrecting := port.Status == model.ProductStatusEndorsementCorrection &&
			refin.Status == model.ProductStatusEndorsementCorrection
		if bothCorrecting {
			return pendencyOutcome{}, fmt.Errorf("%w: correction episode already open for contract %s", ErrConflict, refin.ContractID)
		}
		// A correction was opened but the statuses have since diverged,
		// meaning the desk is mid-fix. Acknowledge without a second episode.
		s.log.Info().
			Str("contract_id", refin.ContractID.String()).
			Msg("correction episode in progress, pendency redelivery skipped")
		return pendencyOutcome{}, nil
	}

	firstStage := port.Status == model.ProductStatusAwaitingEndorsement &&
		refin.Status == model.ProductStatusAwaitingPortFinish
	secondStage := port.Status == model.ProductStatusIntFinished &&
		refin.Status == model.ProductStatusAwaitingRefinEndorse
	if !firstStage && !secondStage {
		return pendencyOutcome{}, fmt.Errorf("%w: refinancing pair for contract %s is not awaiting endorsement", ErrConflict, refin.ContractID)
	}

	snapshot := model.OriginalStatuses{
		PortabilityStatus: statusPtr(port.Status),
		RefinancingStatus: statusPtr(refin.Status),
	}
	if err := tx.SubContracts.UpdateStatus(ctx, refin, model.ProductStatusEndorsementCorrection); err != nil {
		return pendencyOutcome{}, err
	}
	if _, err := tx.Ledger.Append(ctx, refin.ContractID, model.ProductStatusEndorsementCorrection, reason, snapshot); err != nil {
		return pendencyOutcome{}, err
	}
	return pendencyOutcome{applied: true, contractID: refin.ContractID, reason: reason}, nil
}

// commonGuards runs the two guards shared by the single-proposal strategies:
// terminally rejected contracts swallow the webhook, and an already open
// correction episode makes the redelivery a conflict. Returns skip=true when
// the webhook should be acknowledged without any write.
func (s *EndorsementService) commonGuards(ctx context.Context, tx Stores, contractID uuid.UUID, subCorrecting bool) (bool, error) {
	frozen, err := tx.Ledger.HasStatusIn(ctx, contractID, model.TerminalStatuses)
	if err != nil {
		return false, err
	}
	if frozen {
		s.log.Info().
			Str("contract_id", contractID.String()).
			Msg("pendency for terminally rejected contract ignored")
		return true, nil
	}

	snap, err := tx.Ledger.LastSnapshottedStatus(ctx, contractID)
	if err != nil {
		return false, err
	}
	if snap != nil && snap.Status == model.ProductStatusEndorsementCorrection && subCorrecting {
		return false, fmt.Errorf("%w: correction episode already open for contract %s", ErrConflict, contractID)
	}
	return false, nil
}

func statusPtr(s model.ProductStatus) *model.ProductStatus { return &s }
