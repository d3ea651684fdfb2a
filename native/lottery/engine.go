package lottery

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"deelit/core/events"
	"deelit/core/types"
	"deelit/native/access"
	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/random"
	"deelit/native/typeddata"
)

type engineState interface {
	LotteryPut(*Record) error
	LotteryGet(key [32]byte) (*Record, bool, error)
	TicketPut(*Ticket) error
	TicketGet(key [32]byte, number uint64) (*Ticket, bool, error)
	RandomRefPut(ref string, key [32]byte) error
	RandomRefGet(ref string) ([32]byte, bool, error)
}

type lotteryEvent struct {
	evt *types.Event
}

func (e lotteryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e lotteryEvent) Event() *types.Event { return e.evt }

// Engine owns the lottery lifecycle. It holds ticket funds and both levies in
// a pot account until the lottery settles: the prize and the protocol levy
// flow through the escrow engine on pay, the organizer levy is released
// alongside, and cancellations refund per ticket. The escrow dependency is
// one-directional; escrow knows nothing about lotteries.
type Engine struct {
	state        engineState
	ledger       *bank.Ledger
	escrow       *escrow.Engine
	producer     random.Producer
	syncProducer random.SyncProducer
	access       access.Authority
	emitter      events.Emitter
	domain       typeddata.Domain
	pot          [20]byte
	randomVault  [20]byte
	nowFn        func() int64
}

// NewEngine creates a lottery engine bound to its own signing domain.
func NewEngine(domain typeddata.Domain) *Engine {
	return &Engine{
		domain:  domain,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

func (e *Engine) SetState(state engineState)         { e.state = state }
func (e *Engine) SetLedger(ledger *bank.Ledger)      { e.ledger = ledger }
func (e *Engine) SetEscrow(engine *escrow.Engine)    { e.escrow = engine }
func (e *Engine) SetAccess(auth access.Authority)    { e.access = auth }
func (e *Engine) SetPot(pot [20]byte)                { e.pot = pot }
func (e *Engine) SetProducer(p random.Producer)      { e.producer = p }
func (e *Engine) SetSyncProducer(p random.SyncProducer) { e.syncProducer = p }

// SetRandomVault names the account credited with randomness request fees.
func (e *Engine) SetRandomVault(vault [20]byte) { e.randomVault = vault }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Domain returns the lottery signing domain.
func (e *Engine) Domain() typeddata.Domain { return e.domain }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(lotteryEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func validateLottery(l *Lottery) error {
	if l.NbTickets == 0 {
		return ErrInvalidTicketCount
	}
	if l.TicketPrice == nil || l.TicketPrice.Sign() <= 0 {
		return ErrInvalidTicketPrice
	}
	if !l.Fee.Valid() || !l.ProtocolFee.Valid() {
		return ErrInvalidFee
	}
	return nil
}

func (e *Engine) key(l *Lottery) ([32]byte, error) {
	return l.SigningHash(e.domain)
}

func (e *Engine) loadRecord(key [32]byte) (*Record, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	record, ok, err := e.state.LotteryGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

// Create validates the definition and emits the lottery's canonical identity.
// No state is stored and no balance moves; the lifecycle starts with the
// first participation.
func (e *Engine) Create(l *Lottery) ([32]byte, error) {
	if err := validateLottery(l); err != nil {
		return [32]byte{}, err
	}
	key, err := e.key(l)
	if err != nil {
		return [32]byte{}, err
	}
	e.emit(NewCreatedEvent(key, l.From))
	return key, nil
}

// Participate collects the full ticket total (price plus both levies) into
// the pot and mints the next sequential ticket for the caller. One identity
// may hold any number of tickets.
func (e *Engine) Participate(caller [20]byte, l *Lottery, value *big.Int) (*Ticket, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	if err := validateLottery(l); err != nil {
		return nil, err
	}
	key, err := e.key(l)
	if err != nil {
		return nil, err
	}
	record, ok, err := e.state.LotteryGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = &Record{Key: key}
	}
	switch record.Status {
	case StatusNone, StatusOpen:
	case StatusCancelled:
		return nil, ErrCancelled
	default:
		return nil, ErrAlreadyFilled
	}
	if record.TicketsSold >= l.NbTickets {
		return nil, ErrAlreadyFilled
	}

	number := record.TicketsSold + 1
	cost := l.TicketCost(number)
	if l.Asset.IsNative() {
		if value != nil && value.Cmp(cost) < 0 {
			return nil, ErrInsufficientValue
		}
		if err := e.ledger.Transfer(caller, e.pot, l.Asset, cost); err != nil {
			return nil, err
		}
	} else {
		spender := e.domain.VerifyingContract
		if err := e.ledger.TransferFrom(spender, caller, e.pot, l.Asset, cost); err != nil {
			return nil, err
		}
	}

	ticket := &Ticket{LotteryKey: key, Number: number, Owner: caller, Paid: cost}
	if err := e.state.TicketPut(ticket); err != nil {
		return nil, err
	}
	record.TicketsSold++
	record.Status = StatusOpen
	if err := e.state.LotteryPut(record); err != nil {
		return nil, err
	}
	e.emit(NewParticipatedEvent(ticket))
	cp := *ticket
	return &cp, nil
}

// Draw starts winner selection on a filled lottery. With a synchronous
// producer the winner resolves immediately; with an asynchronous one the
// caller pays the producer's request price and the lottery enters a
// Drawn-but-unresolved sub-state until the word arrives and ResolveWinner is
// called. A second draw fails in either mode.
func (e *Engine) Draw(caller [20]byte, l *Lottery, randomFee *big.Int) (*Record, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if err := validateLottery(l); err != nil {
		return nil, err
	}
	key, err := e.key(l)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case StatusOpen:
	case StatusCancelled:
		return nil, ErrCancelled
	default:
		return nil, ErrAlreadyDrawn
	}
	if record.TicketsSold < l.NbTickets {
		return nil, ErrNotFilled
	}

	if e.syncProducer != nil {
		word, err := e.syncProducer.RequestWordNow()
		if err != nil {
			return nil, err
		}
		record.Status = StatusDrawn
		record.Word = word.Clone()
		record.WordDelivered = true
		if err := e.resolve(record, l); err != nil {
			return nil, err
		}
		if err := e.state.LotteryPut(record); err != nil {
			return nil, err
		}
		e.emit(NewDrawnEvent(record))
		e.emit(NewWinnerResolvedEvent(record))
		return record.Clone(), nil
	}

	if e.producer == nil {
		return nil, ErrNoRandom
	}
	// The request price is checked before money moves; a paid caller never
	// sees RequestWord reject the fee afterwards.
	if price := e.producer.Price(); price != nil && price.Sign() > 0 {
		if randomFee == nil || randomFee.Cmp(price) < 0 {
			return nil, random.ErrInsufficientFee
		}
		if e.ledger == nil {
			return nil, ErrNilLedger
		}
		if err := e.ledger.Transfer(caller, e.randomVault, bank.NativeAsset, randomFee); err != nil {
			return nil, err
		}
	}
	ref, err := e.producer.RequestWord(randomFee)
	if err != nil {
		return nil, err
	}
	record.Status = StatusDrawn
	record.RandomRef = ref
	if err := e.state.RandomRefPut(ref, key); err != nil {
		return nil, err
	}
	if err := e.state.LotteryPut(record); err != nil {
		return nil, err
	}
	e.emit(NewDrawnEvent(record))
	return record.Clone(), nil
}

// DeliverWord is the producer-facing callback for asynchronous randomness. It
// implements random.Consumer: the word is persisted against the requesting
// lottery and ResolveWinner becomes available.
func (e *Engine) DeliverWord(ref string, word *uint256.Int) error {
	if e.state == nil {
		return ErrNilState
	}
	key, ok, err := e.state.RandomRefGet(ref)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownRandomRef
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return err
	}
	if record.RandomRef != ref {
		return ErrUnknownRandomRef
	}
	record.Word = word.Clone()
	record.WordDelivered = true
	return e.state.LotteryPut(record)
}

// ResolveWinner computes the winning ticket from the delivered word. The
// computation is deterministic: ticket number = word mod nbTickets + 1.
func (e *Engine) ResolveWinner(l *Lottery) (*Record, error) {
	key, err := e.key(l)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusDrawn {
		return nil, ErrNotDrawn
	}
	if record.WinnerResolved() {
		return nil, ErrWinnerResolved
	}
	if !record.WordDelivered {
		return nil, ErrWordPending
	}
	if err := e.resolve(record, l); err != nil {
		return nil, err
	}
	if err := e.state.LotteryPut(record); err != nil {
		return nil, err
	}
	e.emit(NewWinnerResolvedEvent(record))
	return record.Clone(), nil
}

func (e *Engine) resolve(record *Record, l *Lottery) error {
	mod := new(uint256.Int).Mod(record.Word, uint256.NewInt(l.NbTickets))
	record.WinnerTicket = mod.Uint64() + 1
	ticket, ok, err := e.state.TicketGet(record.Key, record.WinnerTicket)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTicketNotFound
	}
	record.Winner = ticket.Owner
	return nil
}

// Pay escrows the prize for the resolved winner through the escrow engine.
// The offer must name the winner, the lottery product and asset, carry the
// exact prize as price and no shipment cost. The pot funds the escrow payment
// (prize plus protocol fee) and the organizer levy is released at the same
// time.
func (e *Engine) Pay(l *Lottery, tx *escrow.Transaction, paymentSig []byte) (*Record, error) {
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	if e.escrow == nil {
		return nil, ErrNilEscrow
	}
	key, err := e.key(l)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case StatusDrawn:
	case StatusPaid:
		return nil, ErrAlreadyPaid
	case StatusCancelled:
		return nil, ErrCancelled
	default:
		return nil, ErrNotDrawn
	}
	if !record.WinnerResolved() {
		return nil, ErrWinnerUnresolved
	}
	if tx.Offer.From != record.Winner {
		return nil, ErrOfferNotWinner
	}
	if tx.Offer.ProductHash != l.ProductHash {
		return nil, ErrOfferProductMismatch
	}
	if tx.Offer.Asset != l.Asset {
		return nil, ErrOfferAssetMismatch
	}
	if tx.Offer.Price == nil || tx.Offer.Price.Cmp(l.Prize()) != 0 {
		return nil, ErrOfferPriceMismatch
	}
	if tx.Offer.ShipmentPrice != nil && tx.Offer.ShipmentPrice.Sign() != 0 {
		return nil, ErrOfferShipmentNotZero
	}
	// The escrow payment cannot be retried once its record exists, so the pot
	// must already cover the escrowed amount and the organizer levy.
	due := new(big.Int).Add(tx.Offer.Total(), e.escrowFee(tx))
	organizerTotal := new(big.Int).Mul(l.FeeAmount(), new(big.Int).SetUint64(l.NbTickets))
	pot, err := e.ledger.Balance(e.pot, l.Asset)
	if err != nil {
		return nil, err
	}
	if pot.Cmp(new(big.Int).Add(due, organizerTotal)) < 0 {
		return nil, bank.ErrInsufficientBalance
	}
	if !l.Asset.IsNative() {
		// The pot spends tokens through the escrow engine's allowance path.
		if err := e.ledger.Approve(e.pot, e.escrow.Domain().VerifyingContract, l.Asset, due); err != nil {
			return nil, err
		}
	}
	if _, err := e.escrow.Pay(e.pot, tx, paymentSig, nil); err != nil {
		return nil, err
	}
	// Release the accumulated organizer levy now that the prize is escrowed.
	if organizerTotal.Sign() > 0 {
		if err := e.ledger.Transfer(e.pot, l.Fee.Recipient, l.Asset, organizerTotal); err != nil {
			return nil, err
		}
	}
	record.Status = StatusPaid
	if err := e.state.LotteryPut(record); err != nil {
		return nil, err
	}
	e.emit(NewPaidEvent(record))
	return record.Clone(), nil
}

func (e *Engine) escrowFee(tx *escrow.Transaction) *big.Int {
	return e.escrow.ProtocolFee().Apply(tx.Offer.Total())
}

// Cancel closes the lottery before it is drawn. The organizer or a lottery
// admin may cancel at any time; once the expiration time has passed and the
// lottery is still undrawn, anyone may.
func (e *Engine) Cancel(caller [20]byte, l *Lottery) (*Record, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	key, err := e.key(l)
	if err != nil {
		return nil, err
	}
	record, ok, err := e.state.LotteryGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = &Record{Key: key}
	}
	switch record.Status {
	case StatusNone, StatusOpen:
	case StatusCancelled:
		return record.Clone(), nil
	default:
		return nil, ErrAlreadyDrawn
	}
	authorized := caller == l.From
	if !authorized && e.access != nil && e.access.IsAuthorized(caller, access.RoleLotteryAdmin) {
		authorized = true
	}
	if !authorized && l.ExpirationTime > 0 && e.now() >= l.ExpirationTime {
		authorized = true
	}
	if !authorized {
		return nil, ErrNotAdmin
	}
	record.Status = StatusCancelled
	if err := e.state.LotteryPut(record); err != nil {
		return nil, err
	}
	e.emit(NewCancelledEvent(record))
	return record.Clone(), nil
}

// Redeem refunds one ticket of a cancelled lottery to its owner: ticket price
// plus both levies, exactly once per ticket.
func (e *Engine) Redeem(caller [20]byte, l *Lottery, ticketNumber uint64) (*Ticket, error) {
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	key, err := e.key(l)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusCancelled {
		return nil, ErrNotCancelled
	}
	ticket, ok, err := e.state.TicketGet(key, ticketNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTicketNotFound
	}
	if ticket.Owner != caller {
		return nil, ErrNotTicketOwner
	}
	if ticket.Redeemed {
		return nil, ErrAlreadyRedeemed
	}
	if err := e.ledger.Transfer(e.pot, ticket.Owner, l.Asset, ticket.Paid); err != nil {
		return nil, err
	}
	ticket.Redeemed = true
	if err := e.state.TicketPut(ticket); err != nil {
		return nil, err
	}
	e.emit(NewRedeemedEvent(ticket))
	cp := *ticket
	return &cp, nil
}

// Status returns the derived state for a lottery key.
func (e *Engine) Status(key [32]byte) (*Record, error) {
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// TicketOwner returns the owner of a ticket, if it exists.
func (e *Engine) TicketOwner(key [32]byte, number uint64) ([20]byte, bool, error) {
	if e.state == nil {
		return [20]byte{}, false, ErrNilState
	}
	ticket, ok, err := e.state.TicketGet(key, number)
	if err != nil || !ok {
		return [20]byte{}, ok, err
	}
	return ticket.Owner, true, nil
}
