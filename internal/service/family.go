package service

import (
	"github.com/credsim/origination-core/internal/model"
)

// RoutingPolicy decides where a disapproved benefit-card contract is
// reviewed. It is threaded in at construction instead of read from global
// settings.
type RoutingPolicy struct {
	CorbanDeskEnabled bool
}

// RouteToCorbanDesk reports whether the contract's disapproval review goes
// to the corban desk rather than the formalization desk.
func (p RoutingPolicy) RouteToCorbanDesk(contract model.Contract) bool {
	return p.CorbanDeskEnabled && contract.CorbanDesk
}

// productFamily is a closed union over the guard-rule sets of the score
// engine. One variant per family replaces the per-product branching of the
// legacy flow; each variant answers readiness and picks the disapproval
// transition.
type productFamily interface {
	// readyToDisapprove is the per-family guard: it looks only at the last
	// status record and never fails.
	readyToDisapprove(last *model.StatusRecord) bool
	// transitionOnDisapprove maps a disapproval class to the transition to
	// apply, or ok=false when the family takes no transition for the class.
	transitionOnDisapprove(class scoreClass, contract model.Contract, routing RoutingPolicy) (disapproveTransition, bool)
	// updatesSubStatus reports whether the family keeps its sub-contract
	// status in lockstep with ledger transitions.
	updatesSubStatus() bool
}

type disapproveTransition struct {
	contractStatus model.ContractStatus
	subStatus      model.ProductStatus
	description    string
}

// familyOf classifies a product type. Families outside the two rule sets get
// validation records only, never transitions.
func familyOf(productType model.ProductType) productFamily {
	switch productType {
	case model.ProductBenefitCard,
		model.ProductBenefitCardRepresentative,
		model.ProductPayrollCard,
		model.ProductComplementaryWithdrawal:
		return benefitCardFamily{}
	case model.ProductPortability:
		return portabilityFamily{}
	case model.ProductPortabilityRefinancing:
		return passiveFamily{subStatus: true}
	default:
		return passiveFamily{}
	}
}

type benefitCardFamily struct{}

func (benefitCardFamily) readyToDisapprove(last *model.StatusRecord) bool {
	if last == nil {
		return true
	}
	switch last.Status {
	case model.ProductStatusCorbanDeskCheck, model.ProductStatusFormalizationDeskCheck:
		return false
	}
	return true
}

func (benefitCardFamily) transitionOnDisapprove(class scoreClass, contract model.Contract, routing RoutingPolicy) (disapproveTransition, bool) {
	switch class {
	case scoreDisapproved, scoreDivergency:
		subStatus := model.ProductStatusFormalizationDeskCheck
		if routing.RouteToCorbanDesk(contract) {
			subStatus = model.ProductStatusCorbanDeskCheck
		}
		return disapproveTransition{
			contractStatus: model.ContractStatusDeskReview,
			subStatus:      subStatus,
		}, true
	case scoreRestrictiveError:
		return disapproveTransition{
			contractStatus: model.ContractStatusCancelled,
			subStatus:      model.ProductStatusFinalizedRejected,
		}, true
	}
	return disapproveTransition{}, false
}

func (benefitCardFamily) updatesSubStatus() bool { return true }

type portabilityFamily struct{}

func (portabilityFamily) readyToDisapprove(last *model.StatusRecord) bool {
	if last == nil {
		return true
	}
	switch last.Status {
	case model.ProductStatusCorbanDeskCheck,
		model.ProductStatusRejectedInternalPolicy,
		model.ProductStatusRejected:
		return false
	}
	return true
}

func (portabilityFamily) transitionOnDisapprove(class scoreClass, contract model.Contract, routing RoutingPolicy) (disapproveTransition, bool) {
	switch class {
	case scoreDisapproved, scoreDivergency:
		return disapproveTransition{
			contractStatus: model.ContractStatusCancelled,
			subStatus:      model.ProductStatusRejectedInternalPolicy,
			description:    "Recusada por politíca interna (SF) - Biometria facial",
		}, true
	case scoreRestrictiveError:
		return disapproveTransition{
			contractStatus: model.ContractStatusDeskReview,
			subStatus:      model.ProductStatusCorbanDeskCheck,
			description:    "SCORE da UNICO abaixo do aceito",
		}, true
	}
	return disapproveTransition{}, false
}

func (portabilityFamily) updatesSubStatus() bool { return true }

// passiveFamily covers product types the score engine never transitions:
// the guard is permanently "not ready" and only validation records are
// written.
type passiveFamily struct {
	subStatus bool
}

func (passiveFamily) readyToDisapprove(*model.StatusRecord) bool { return false }

func (passiveFamily) transitionOnDisapprove(scoreClass, model.Contract, RoutingPolicy) (disapproveTransition, bool) {
	return disapproveTransition{}, false
}

func (f passiveFamily) updatesSubStatus() bool { return f.subStatus }
