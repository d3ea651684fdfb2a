package lottery

import (
	"encoding/hex"
	"strconv"

	"deelit/core/types"
)

const (
	EventTypeCreated        = "lottery.created"
	EventTypeParticipated   = "lottery.participated"
	EventTypeDrawn          = "lottery.drawn"
	EventTypeWinnerResolved = "lottery.winner_resolved"
	EventTypePaid           = "lottery.paid"
	EventTypeCancelled      = "lottery.cancelled"
	EventTypeRedeemed       = "lottery.redeemed"
)

// NewCreatedEvent announces a lottery's canonical identity for off-band
// reference. Creation stores nothing.
func NewCreatedEvent(key [32]byte, organizer [20]byte) *types.Event {
	return &types.Event{Type: EventTypeCreated, Attributes: map[string]string{
		"lottery":   hex.EncodeToString(key[:]),
		"organizer": hex.EncodeToString(organizer[:]),
	}}
}

// NewParticipatedEvent reports a minted ticket.
func NewParticipatedEvent(t *Ticket) *types.Event {
	attrs := make(map[string]string)
	if t != nil {
		attrs["lottery"] = hex.EncodeToString(t.LotteryKey[:])
		attrs["ticket"] = strconv.FormatUint(t.Number, 10)
		attrs["owner"] = hex.EncodeToString(t.Owner[:])
	}
	return &types.Event{Type: EventTypeParticipated, Attributes: attrs}
}

// NewDrawnEvent reports the draw. With an async producer the winner may still
// be unresolved at this point.
func NewDrawnEvent(r *Record) *types.Event {
	return newLotteryEvent(EventTypeDrawn, r)
}

// NewWinnerResolvedEvent reports the computed winning ticket.
func NewWinnerResolvedEvent(r *Record) *types.Event {
	return newLotteryEvent(EventTypeWinnerResolved, r)
}

// NewPaidEvent reports the escrowed prize payout.
func NewPaidEvent(r *Record) *types.Event {
	return newLotteryEvent(EventTypePaid, r)
}

// NewCancelledEvent reports cancellation; tickets become redeemable.
func NewCancelledEvent(r *Record) *types.Event {
	return newLotteryEvent(EventTypeCancelled, r)
}

// NewRedeemedEvent reports a refunded ticket.
func NewRedeemedEvent(t *Ticket) *types.Event {
	attrs := make(map[string]string)
	if t != nil {
		attrs["lottery"] = hex.EncodeToString(t.LotteryKey[:])
		attrs["ticket"] = strconv.FormatUint(t.Number, 10)
		attrs["owner"] = hex.EncodeToString(t.Owner[:])
	}
	return &types.Event{Type: EventTypeRedeemed, Attributes: attrs}
}

func newLotteryEvent(eventType string, r *Record) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["lottery"] = hex.EncodeToString(r.Key[:])
	attrs["status"] = r.Status.String()
	attrs["ticketsSold"] = strconv.FormatUint(r.TicketsSold, 10)
	if r.WinnerResolved() {
		attrs["winner"] = hex.EncodeToString(r.Winner[:])
		attrs["winnerTicket"] = strconv.FormatUint(r.WinnerTicket, 10)
	}
	if r.RandomRef != "" {
		attrs["randomRef"] = r.RandomRef
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
