package escrow

import (
	"math/big"

	"deelit/native/bank"
)

// AcceptanceStatus tags how a claim was authorized.
type AcceptanceStatus uint8

const (
	// AcceptanceNone marks an unclaimed payment.
	AcceptanceNone AcceptanceStatus = iota
	// AcceptanceSigned marks a claim authorized by a payer-signed acceptance.
	AcceptanceSigned
	// AcceptanceAuto marks a claim authorized by the elapsed vesting period.
	AcceptanceAuto
)

// AcceptanceState is an explicit tagged value instead of a hash slot doubling
// as a sentinel, so an auto-claim can never collide with a genuine signed
// acceptance hash.
type AcceptanceState struct {
	Status AcceptanceStatus `json:"status"`
	Hash   [32]byte         `json:"hash"`
}

// Claimed reports whether the payment was claimed, by signature or by time.
func (a AcceptanceState) Claimed() bool {
	return a.Status != AcceptanceNone
}

// PaymentRecord is created exactly once per payment key on the first
// successful pay and tracks the escrowed amount through its lifecycle.
type PaymentRecord struct {
	Key        [32]byte        `json:"key"`
	Payer      [20]byte        `json:"payer"`
	Amount     *big.Int        `json:"amount"`
	Asset      bank.Asset      `json:"asset"`
	Vesting    int64           `json:"vesting"`
	Acceptance AcceptanceState `json:"acceptance"`
	Conflict   [32]byte        `json:"conflict"`
	Verdict    [32]byte        `json:"verdict"`
}

// Clone returns a deep copy so callers can mutate safely.
func (r *PaymentRecord) Clone() *PaymentRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Claimed reports whether the record reached the claimed terminal state.
func (r *PaymentRecord) Claimed() bool {
	return r.Acceptance.Claimed()
}

// Disputed reports whether a conflict was declared on the record.
func (r *PaymentRecord) Disputed() bool {
	return r.Conflict != ([32]byte{})
}

// Resolved reports whether a declared conflict received a verdict.
func (r *PaymentRecord) Resolved() bool {
	return r.Verdict != ([32]byte{})
}

// InOpenConflict reports whether a conflict is declared and not yet resolved.
func (r *PaymentRecord) InOpenConflict() bool {
	return r.Disputed() && !r.Resolved()
}
