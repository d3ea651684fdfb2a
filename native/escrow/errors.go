package escrow

import "errors"

var (
	ErrNilState  = errors.New("escrow: state not configured")
	ErrNilLedger = errors.New("escrow: ledger not configured")

	// Validation errors: the request is malformed and no state changed.
	ErrOfferMismatch      = errors.New("escrow: offer does not match payment reference")
	ErrOfferExpired       = errors.New("escrow: offer expired")
	ErrPaymentExpired     = errors.New("escrow: payment expired")
	ErrAcceptanceMismatch = errors.New("escrow: acceptance does not reference payment")
	ErrConflictMismatch   = errors.New("escrow: conflict does not reference payment")
	ErrVerdictMismatch    = errors.New("escrow: verdict does not reference payment")
	ErrInvalidVerdictSum  = errors.New("escrow: verdict basis points must sum to 10000")
	ErrInvalidDestination = errors.New("escrow: invalid payment destination")
	ErrInsufficientValue  = errors.New("escrow: attached value below total due")

	// Authorization errors.
	ErrInvalidAcceptanceIssuer = errors.New("escrow: acceptance issuer is not the payer")
	ErrInvalidConflictIssuer   = errors.New("escrow: conflict issuer is neither payer nor payee")
	ErrInvalidVerdictIssuer    = errors.New("escrow: verdict issuer is not a judge")
	ErrPaused                  = errors.New("escrow: module paused")

	// State conflicts: the payment exists but is in an incompatible state.
	ErrPaymentAlreadyInitiated = errors.New("escrow: payment already initiated")
	ErrPaymentNotFound         = errors.New("escrow: payment not found")
	ErrPaymentAlreadyClaimed   = errors.New("escrow: payment already claimed")
	ErrPaymentInConflict       = errors.New("escrow: payment in conflict")
	ErrPaymentNotInConflict    = errors.New("escrow: payment not in conflict")
	ErrPaymentAlreadyResolved  = errors.New("escrow: payment already resolved")
	ErrVestingNotReached       = errors.New("escrow: vesting deadline not reached, acceptance needed")
)
