package lottery

import (
	"math/big"

	"github.com/holiman/uint256"

	"deelit/native/bank"
	"deelit/native/fees"
	"deelit/native/typeddata"
)

// Lottery is the organizer-published definition. Its signing hash is the
// lottery key; the struct itself is never stored, only derived state.
type Lottery struct {
	From           [20]byte
	NbTickets      uint64
	TicketPrice    *big.Int
	ProductHash    [32]byte
	Asset          bank.Asset
	Fee            fees.Fee
	ProtocolFee    fees.Fee
	ExpirationTime int64
}

// Types is the lottery signing schema, with the Fee struct hashed recursively.
var Types = typeddata.MustSchema(
	typeddata.Type{Name: "Lottery", Fields: []typeddata.Field{
		{Name: "from_address", Kind: typeddata.KindAddress},
		{Name: "product_hash", Kind: typeddata.KindBytes32},
		{Name: "nb_tickets", Kind: typeddata.KindUint256},
		{Name: "ticket_price", Kind: typeddata.KindUint256},
		{Name: "token_address", Kind: typeddata.KindAddress},
		{Name: "fee", Kind: typeddata.KindStruct, StructType: "Fee"},
		{Name: "protocol_fee", Kind: typeddata.KindStruct, StructType: "Fee"},
		{Name: "expiration_time", Kind: typeddata.KindUint256},
	}},
	typeddata.Type{Name: "Fee", Fields: []typeddata.Field{
		{Name: "recipient", Kind: typeddata.KindAddress},
		{Name: "amount_bp", Kind: typeddata.KindUint48},
	}},
)

func feeValues(f fees.Fee) typeddata.Values {
	return typeddata.Values{
		"recipient": f.Recipient,
		"amount_bp": uint64(f.AmountBp),
	}
}

func (l *Lottery) values() typeddata.Values {
	price := l.TicketPrice
	if price == nil {
		price = big.NewInt(0)
	}
	return typeddata.Values{
		"from_address":    l.From,
		"product_hash":    l.ProductHash,
		"nb_tickets":      l.NbTickets,
		"ticket_price":    price,
		"token_address":   [20]byte(l.Asset),
		"fee":             feeValues(l.Fee),
		"protocol_fee":    feeValues(l.ProtocolFee),
		"expiration_time": l.ExpirationTime,
	}
}

// StructHash returns the schema-plus-values digest of the lottery.
func (l *Lottery) StructHash() ([32]byte, error) {
	return Types.Hash("Lottery", l.values())
}

// SigningHash returns the lottery key.
func (l *Lottery) SigningHash(domain typeddata.Domain) ([32]byte, error) {
	structHash, err := l.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return typeddata.SigningHash(domain, structHash), nil
}

// ProtocolFeeAmount is the protocol levy on a single ticket price, before
// cumulative rounding.
func (l *Lottery) ProtocolFeeAmount() *big.Int {
	return l.ProtocolFee.Apply(l.TicketPrice)
}

// FeeAmount is the lottery (organizer) levy collected per ticket.
func (l *Lottery) FeeAmount() *big.Int {
	return l.Fee.Apply(l.TicketPrice)
}

// protocolFeeShare is the protocol levy collected with ticket n (1-based).
// It is the difference of cumulative floors, so after n tickets the pot
// holds exactly floor(n*price*bp/10000): the levy the escrow engine will
// charge on the full prize.
func (l *Lottery) protocolFeeShare(n uint64) *big.Int {
	cumulative := func(k uint64) *big.Int {
		sold := new(big.Int).Mul(l.TicketPrice, new(big.Int).SetUint64(k))
		return l.ProtocolFee.Apply(sold)
	}
	return new(big.Int).Sub(cumulative(n), cumulative(n-1))
}

// TicketCost is the amount ticket n sells for: price plus organizer levy
// plus the cumulative protocol levy share. It can exceed TicketTotal by at
// most one base unit.
func (l *Lottery) TicketCost(n uint64) *big.Int {
	cost := new(big.Int).Add(l.TicketPrice, l.FeeAmount())
	return cost.Add(cost, l.protocolFeeShare(n))
}

// TicketTotal quotes the per-ticket price before cumulative rounding: ticket
// price plus both single-ticket levies.
func (l *Lottery) TicketTotal() *big.Int {
	total := new(big.Int).Set(l.TicketPrice)
	total.Add(total, l.ProtocolFeeAmount())
	return total.Add(total, l.FeeAmount())
}

// Prize is the escrowed payout: ticket price times number of tickets.
func (l *Lottery) Prize() *big.Int {
	return new(big.Int).Mul(l.TicketPrice, new(big.Int).SetUint64(l.NbTickets))
}

// Status is the lottery lifecycle state.
type Status uint8

const (
	StatusNone Status = iota
	StatusOpen
	StatusDrawn
	StatusPaid
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusOpen:
		return "open"
	case StatusDrawn:
		return "drawn"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Record is the derived lottery state stored under the lottery key.
type Record struct {
	Key           [32]byte     `json:"key"`
	Status        Status       `json:"status"`
	TicketsSold   uint64       `json:"ticketsSold"`
	Winner        [20]byte     `json:"winner"`
	WinnerTicket  uint64       `json:"winnerTicket"`
	RandomRef     string       `json:"randomRef,omitempty"`
	Word          *uint256.Int `json:"word,omitempty"`
	WordDelivered bool         `json:"wordDelivered"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Word != nil {
		clone.Word = r.Word.Clone()
	}
	return &clone
}

// WinnerResolved reports whether the winning ticket has been computed.
func (r *Record) WinnerResolved() bool {
	return r.WinnerTicket != 0
}

// Ticket is minted once per paid participation. Tickets are never
// transferable; they exist to gate refunds after cancellation.
type Ticket struct {
	LotteryKey [32]byte `json:"lotteryKey"`
	Number     uint64   `json:"number"`
	Owner      [20]byte `json:"owner"`
	Paid       *big.Int `json:"paid"`
	Redeemed   bool     `json:"redeemed"`
}
