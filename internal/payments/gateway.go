package payments

import "errors"

// ErrChargeNotFound is returned by VerifyCharge when the gateway has not yet
// registered the reference. Callers may retry once after a short delay; any
// further retry is the caller's responsibility.
var ErrChargeNotFound = errors.New("charge reference not found on gateway")

// ChargeResult is the gateway's view of a collection attempt.
type ChargeResult struct {
	Reference string            `json:"reference"`
	Status    string            `json:"status"` // "success", "failed", "abandoned"
	Amount    float64           `json:"amount"`
	Metadata  map[string]string `json:"metadata"`
}

// TransferResult is the gateway's acknowledgement of an outbound payout.
type TransferResult struct {
	Success           bool   `json:"success"`
	TransferReference string `json:"transfer_reference"`
}

// Bank is one entry of the gateway's bank directory.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Gateway is the payment collaborator the ledger depends on. Inbound
// collection (charge) and outbound disbursement (transfer) both go through
// here; the ledger never sees wire formats.
type Gateway interface {
	InitializeCharge(amount float64, email, reference string, metadata map[string]string) (checkoutURL string, err error)
	VerifyCharge(reference string) (*ChargeResult, error)
	Disburse(amount float64, bankCode, accountNumber, narration string) (*TransferResult, error)
	ListBanks() ([]Bank, error)
}
