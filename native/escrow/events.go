package escrow

import (
	"encoding/hex"
	"strconv"

	"deelit/core/types"
)

const (
	EventTypePaymentInitiated  = "payment.initiated"
	EventTypePaymentClaimed    = "payment.claimed"
	EventTypePaymentConflicted = "payment.conflicted"
	EventTypePaymentResolved   = "payment.resolved"
)

// NewInitiatedEvent returns the canonical payload for a freshly escrowed
// payment.
func NewInitiatedEvent(r *PaymentRecord) *types.Event {
	return newPaymentEvent(EventTypePaymentInitiated, r)
}

// NewClaimedEvent returns the payload emitted when escrowed funds are released
// to the payee, whether by signed acceptance or by elapsed vesting.
func NewClaimedEvent(r *PaymentRecord) *types.Event {
	evt := newPaymentEvent(EventTypePaymentClaimed, r)
	if r != nil && r.Acceptance.Status == AcceptanceAuto {
		evt.Attributes["auto"] = "true"
	}
	return evt
}

// NewConflictedEvent returns the payload emitted when a dispute opens.
func NewConflictedEvent(r *PaymentRecord) *types.Event {
	return newPaymentEvent(EventTypePaymentConflicted, r)
}

// NewResolvedEvent returns the payload emitted when a judge verdict settles a
// dispute.
func NewResolvedEvent(r *PaymentRecord, payerBp, payeeBp uint16) *types.Event {
	evt := newPaymentEvent(EventTypePaymentResolved, r)
	evt.Attributes["payerBp"] = strconv.FormatUint(uint64(payerBp), 10)
	evt.Attributes["payeeBp"] = strconv.FormatUint(uint64(payeeBp), 10)
	return evt
}

func newPaymentEvent(eventType string, r *PaymentRecord) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["payment"] = hex.EncodeToString(r.Key[:])
	attrs["payer"] = hex.EncodeToString(r.Payer[:])
	attrs["asset"] = hex.EncodeToString(r.Asset[:])
	if r.Amount != nil {
		attrs["amount"] = r.Amount.String()
	}
	attrs["vesting"] = strconv.FormatInt(r.Vesting, 10)
	if r.Disputed() {
		attrs["conflict"] = hex.EncodeToString(r.Conflict[:])
	}
	if r.Resolved() {
		attrs["verdict"] = hex.EncodeToString(r.Verdict[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
