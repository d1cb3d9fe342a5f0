package ledger

import "errors"

// Error taxonomy for every ledger operation. Callers branch with errors.Is;
// wrapped messages carry the detail (expected vs sent amount, which member
// is missing an account, and so on).
var (
	ErrNotFound                    = errors.New("record not found")
	ErrForbidden                   = errors.New("caller is not permitted")
	ErrNoActiveCycle               = errors.New("group has no active cycle")
	ErrAlreadyContributed          = errors.New("member has already contributed this round")
	ErrDuplicatePayment            = errors.New("payment reference already used")
	ErrValidation                  = errors.New("validation failed")
	ErrNoPayoutAccount             = errors.New("recipient has no linked payout account")
	ErrInsufficientApprovedMembers = errors.New("not enough approved members")
	ErrExternalService             = errors.New("external service failure")
	ErrConflict                    = errors.New("conflicting ledger state")
)
