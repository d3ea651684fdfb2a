package lottery

import "errors"

var (
	ErrNilState  = errors.New("lottery: state not configured")
	ErrNilLedger = errors.New("lottery: ledger not configured")
	ErrNilEscrow = errors.New("lottery: escrow engine not configured")
	ErrNoRandom  = errors.New("lottery: randomness producer not configured")

	// Validation errors.
	ErrInvalidTicketCount = errors.New("lottery: ticket count must be positive")
	ErrInvalidTicketPrice = errors.New("lottery: ticket price must be positive")
	ErrInvalidFee         = errors.New("lottery: fee basis points out of range")
	ErrInsufficientValue  = errors.New("lottery: attached value below ticket total")

	// Prize offer validation for pay.
	ErrOfferNotWinner       = errors.New("lottery: offer issuer is not the winner")
	ErrOfferProductMismatch = errors.New("lottery: offer product does not match lottery")
	ErrOfferAssetMismatch   = errors.New("lottery: offer asset does not match lottery")
	ErrOfferPriceMismatch   = errors.New("lottery: offer price does not match prize")
	ErrOfferShipmentNotZero = errors.New("lottery: offer shipment price must be zero")

	// Authorization errors.
	ErrNotAdmin = errors.New("lottery: not organizer or admin")

	// State conflicts.
	ErrNotFound         = errors.New("lottery: lottery not found")
	ErrAlreadyFilled    = errors.New("lottery: already filled")
	ErrNotFilled        = errors.New("lottery: not filled")
	ErrAlreadyDrawn     = errors.New("lottery: already drawn")
	ErrNotDrawn         = errors.New("lottery: not drawn")
	ErrAlreadyPaid      = errors.New("lottery: already paid")
	ErrCancelled        = errors.New("lottery: cancelled")
	ErrNotCancelled     = errors.New("lottery: not cancelled")
	ErrWordPending      = errors.New("lottery: random word not delivered yet")
	ErrWinnerResolved   = errors.New("lottery: winner already resolved")
	ErrWinnerUnresolved = errors.New("lottery: winner not resolved")
	ErrTicketNotFound   = errors.New("lottery: ticket not found")
	ErrNotTicketOwner   = errors.New("lottery: caller does not own ticket")
	ErrAlreadyRedeemed  = errors.New("lottery: already redeemed")
	ErrUnknownRandomRef = errors.New("lottery: unknown randomness request")
)
