package model

// ProductStatus is the fine-grained status carried by a sub-contract and by
// status history records. It is a separate enum space from ContractStatus
// even where the spellings overlap.
type ProductStatus int16

const (
	ProductStatusTyping                 ProductStatus = 10
	ProductStatusCorbanDeskCheck        ProductStatus = 20
	ProductStatusFormalizationDeskCheck ProductStatus = 21
	ProductStatusAwaitingEndorsement    ProductStatus = 30 // INT - aguarda averbação
	ProductStatusEndorsementCorrection  ProductStatus = 31 // INT - ajuste averbação
	ProductStatusIntFinished            ProductStatus = 32
	ProductStatusAwaitingPortFinish     ProductStatus = 33
	ProductStatusAwaitingRefinEndorse   ProductStatus = 34
	ProductStatusAwaitingRefinDisburse  ProductStatus = 35
	ProductStatusEndorsementApproved    ProductStatus = 36

	ProductStatusRejected                   ProductStatus = 40
	ProductStatusFinalizedRejected          ProductStatus = 41
	ProductStatusRejectedInternalPolicy     ProductStatus = 42
	ProductStatusEndorsementRefused         ProductStatus = 43
	ProductStatusRejectedCorbanDesk         ProductStatus = 44
	ProductStatusRejectedFormalizationDesk  ProductStatus = 45
	ProductStatusRejectedPaymentReturned    ProductStatus = 46
	ProductStatusRejectedFormalizationCheck ProductStatus = 47
	ProductStatusRejectedDeskReview         ProductStatus = 48
)

// TerminalStatuses is the frozen terminal-disapproval set: a contract whose
// history contains any of these never receives another transition from the
// score or endorsement engines.
var TerminalStatuses = []ProductStatus{
	ProductStatusFinalizedRejected,
	ProductStatusRejectedFormalizationDesk,
	ProductStatusEndorsementRefused,
	ProductStatusRejectedInternalPolicy,
	ProductStatusRejectedCorbanDesk,
	ProductStatusRejectedFormalizationCheck,
	ProductStatusRejectedPaymentReturned,
	ProductStatusRejected,
	ProductStatusRejectedDeskReview,
}
