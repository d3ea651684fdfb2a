package escrow

import (
	"math/big"
	"time"

	"deelit/core/events"
	"deelit/core/types"
	"deelit/native/access"
	"deelit/native/bank"
	"deelit/native/fees"
	"deelit/native/signature"
	"deelit/native/typeddata"
)

// PauseModule is the pause toggle consulted before moving funds. Disputes can
// still be declared and resolved while the module is paused.
const PauseModule = "escrow"

type engineState interface {
	PaymentPut(*PaymentRecord) error
	PaymentGet(key [32]byte) (*PaymentRecord, bool, error)
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns the payment lifecycle: pay, claim, claim-with-acceptance,
// conflict and resolve. External collaborators (state, ledger, signature
// authorization, access authority) are injected so tests can substitute fakes.
type Engine struct {
	state       engineState
	ledger      *bank.Ledger
	auth        *signature.Authorizer
	access      access.PauseAuthority
	emitter     events.Emitter
	domain      typeddata.Domain
	protocolFee fees.Fee
	vault       [20]byte
	nowFn       func() int64
}

// NewEngine creates an escrow engine bound to a signing domain, with a no-op
// emitter. Collaborators are wired via the setters below.
func NewEngine(domain typeddata.Domain) *Engine {
	return &Engine{
		domain:  domain,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset transfer layer.
func (e *Engine) SetLedger(ledger *bank.Ledger) { e.ledger = ledger }

// SetAuthorizer configures signature authorization.
func (e *Engine) SetAuthorizer(auth *signature.Authorizer) { e.auth = auth }

// SetAccess configures the access authority used to gate judge verdicts and
// honor pause toggles. A nil authority disables both checks.
func (e *Engine) SetAccess(authority access.PauseAuthority) { e.access = authority }

// SetProtocolFee configures the protocol fee applied on pay.
func (e *Engine) SetProtocolFee(fee fees.Fee) { e.protocolFee = fee }

// SetVault configures the escrow custody account.
func (e *Engine) SetVault(vault [20]byte) { e.vault = vault }

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

// Domain returns the signing domain the engine verifies against.
func (e *Engine) Domain() typeddata.Domain { return e.domain }

// Vault returns the escrow custody account.
func (e *Engine) Vault() [20]byte { return e.vault }

// ProtocolFee returns the fee applied on pay.
func (e *Engine) ProtocolFee() fees.Fee { return e.protocolFee }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) paused() bool {
	return e.access != nil && e.access.Paused(PauseModule)
}

func (e *Engine) authorize(digest [32]byte, sig []byte, claimed, caller [20]byte) error {
	if e.auth == nil {
		return signature.NewAuthorizer(nil).Authorize(digest, sig, claimed, caller)
	}
	return e.auth.Authorize(digest, sig, claimed, caller)
}

// paymentKey validates the offer/payment pairing and returns the payment key.
func (e *Engine) paymentKey(tx *Transaction) ([32]byte, error) {
	offerHash, err := tx.Offer.SigningHash(e.domain)
	if err != nil {
		return [32]byte{}, err
	}
	if offerHash != tx.Payment.OfferHash {
		return [32]byte{}, ErrOfferMismatch
	}
	return tx.Payment.SigningHash(e.domain)
}

func destination(p *Payment) ([20]byte, error) {
	var dest [20]byte
	if len(p.Destination) != 20 {
		return dest, ErrInvalidDestination
	}
	copy(dest[:], p.Destination)
	return dest, nil
}

func (e *Engine) loadRecord(key [32]byte) (*PaymentRecord, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	record, ok, err := e.state.PaymentGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return record, nil
}

// Pay validates the offer/payment pairing, checks expirations, verifies the
// payee requested the payment, collects the total due plus protocol fee from
// the caller and creates the payment record. For native payments the caller
// may attach a value; anything beyond the total due stays with the caller, so
// excess is never captured. A nil value means "exactly what is due".
func (e *Engine) Pay(caller [20]byte, tx *Transaction, paymentSig []byte, value *big.Int) (*PaymentRecord, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	if e.paused() {
		return nil, ErrPaused
	}
	key, err := e.paymentKey(tx)
	if err != nil {
		return nil, err
	}
	// Expirations are absolute and mandatory: a zero expiration lies in the
	// past and is rejected like any other elapsed deadline.
	now := e.now()
	if now > tx.Offer.ExpirationTime {
		return nil, ErrOfferExpired
	}
	if now > tx.Payment.ExpirationTime {
		return nil, ErrPaymentExpired
	}
	if _, ok, err := e.state.PaymentGet(key); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPaymentAlreadyInitiated
	}
	// The payee is the payment requester: its signature over the payment key
	// proves the request is genuine.
	if err := e.authorize(key, paymentSig, tx.Payment.From, caller); err != nil {
		return nil, err
	}

	total := tx.Offer.Total()
	fee := e.protocolFee.Apply(total)
	due := new(big.Int).Add(total, fee)

	// The payer is debited once for the full amount due. The vault then
	// forwards the protocol levy out of funds it already holds, so a payer
	// short of the fee aborts before anything moves.
	asset := tx.Offer.Asset
	if asset.IsNative() {
		if value != nil && value.Cmp(due) < 0 {
			return nil, ErrInsufficientValue
		}
		if err := e.ledger.Transfer(caller, e.vault, asset, due); err != nil {
			return nil, err
		}
	} else {
		spender := e.domain.VerifyingContract
		if err := e.ledger.TransferFrom(spender, caller, e.vault, asset, due); err != nil {
			return nil, err
		}
	}
	if fee.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, e.protocolFee.Recipient, asset, fee); err != nil {
			return nil, err
		}
	}

	record := &PaymentRecord{
		Key:     key,
		Payer:   tx.Offer.From,
		Amount:  total,
		Asset:   asset,
		Vesting: now + tx.Payment.VestingPeriod,
	}
	if err := e.state.PaymentPut(record); err != nil {
		return nil, err
	}
	e.emit(NewInitiatedEvent(record))
	return record.Clone(), nil
}

// checkClaimable rejects claims on records already claimed, disputed or
// resolved.
func checkClaimable(record *PaymentRecord) error {
	if record.Claimed() {
		return ErrPaymentAlreadyClaimed
	}
	if record.Resolved() {
		return ErrPaymentAlreadyResolved
	}
	if record.InOpenConflict() {
		return ErrPaymentInConflict
	}
	return nil
}

func (e *Engine) release(record *PaymentRecord, tx *Transaction) error {
	payee, err := destination(&tx.Payment)
	if err != nil {
		return err
	}
	return e.ledger.Transfer(e.vault, payee, record.Asset, record.Amount)
}

// ClaimAccepted releases the escrowed amount to the payee on the strength of
// a payer-signed acceptance. Anyone may submit the claim; the acceptance
// signature is what authorizes it. When the caller is the payer the signature
// may be empty.
func (e *Engine) ClaimAccepted(caller [20]byte, tx *Transaction, acceptance *Acceptance, acceptanceSig []byte) (*PaymentRecord, error) {
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	if e.paused() {
		return nil, ErrPaused
	}
	key, err := e.paymentKey(tx)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	if err := checkClaimable(record); err != nil {
		return nil, err
	}
	if acceptance.PaymentHash != key {
		return nil, ErrAcceptanceMismatch
	}
	if acceptance.From != record.Payer {
		return nil, ErrInvalidAcceptanceIssuer
	}
	acceptanceHash, err := acceptance.SigningHash(e.domain)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(acceptanceHash, acceptanceSig, acceptance.From, caller); err != nil {
		return nil, err
	}
	if err := e.release(record, tx); err != nil {
		return nil, err
	}
	record.Acceptance = AcceptanceState{Status: AcceptanceSigned, Hash: acceptanceHash}
	if err := e.state.PaymentPut(record); err != nil {
		return nil, err
	}
	e.emit(NewClaimedEvent(record))
	return record.Clone(), nil
}

// Claim releases the escrowed amount to the payee once the vesting deadline
// has elapsed, without any acceptance signature. The record is marked with the
// auto-acceptance tag instead of a hash.
func (e *Engine) Claim(caller [20]byte, tx *Transaction) (*PaymentRecord, error) {
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	if e.paused() {
		return nil, ErrPaused
	}
	key, err := e.paymentKey(tx)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	if err := checkClaimable(record); err != nil {
		return nil, err
	}
	if e.now() < record.Vesting {
		return nil, ErrVestingNotReached
	}
	if err := e.release(record, tx); err != nil {
		return nil, err
	}
	record.Acceptance = AcceptanceState{Status: AcceptanceAuto}
	if err := e.state.PaymentPut(record); err != nil {
		return nil, err
	}
	e.emit(NewClaimedEvent(record))
	return record.Clone(), nil
}

// DeclareConflict opens a dispute on an unclaimed payment. The conflict issuer
// must be the payer or the payee; an empty signature is accepted when the
// issuer is the caller.
func (e *Engine) DeclareConflict(caller [20]byte, tx *Transaction, conflict *Conflict, conflictSig []byte) (*PaymentRecord, error) {
	key, err := e.paymentKey(tx)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	if record.Claimed() {
		return nil, ErrPaymentAlreadyClaimed
	}
	if record.Disputed() {
		return nil, ErrPaymentInConflict
	}
	if conflict.PaymentHash != key {
		return nil, ErrConflictMismatch
	}
	if conflict.From != record.Payer && conflict.From != tx.Payment.From {
		return nil, ErrInvalidConflictIssuer
	}
	conflictHash, err := conflict.SigningHash(e.domain)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(conflictHash, conflictSig, conflict.From, caller); err != nil {
		return nil, err
	}
	record.Conflict = conflictHash
	if err := e.state.PaymentPut(record); err != nil {
		return nil, err
	}
	e.emit(NewConflictedEvent(record))
	return record.Clone(), nil
}

// Resolve settles an open conflict with a judge verdict. The held amount is
// split by basis points: the payer share is refunded, the payee share is
// released to the payment destination. The protocol fee collected at pay time
// is not returned.
func (e *Engine) Resolve(caller [20]byte, tx *Transaction, verdict *Verdict, verdictSig []byte) (*PaymentRecord, error) {
	if e.ledger == nil {
		return nil, ErrNilLedger
	}
	key, err := e.paymentKey(tx)
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	if !record.Disputed() {
		return nil, ErrPaymentNotInConflict
	}
	if record.Resolved() {
		return nil, ErrPaymentAlreadyResolved
	}
	if verdict.PaymentHash != key {
		return nil, ErrVerdictMismatch
	}
	if uint32(verdict.PayerBp)+uint32(verdict.PayeeBp) != fees.MaxBp {
		return nil, ErrInvalidVerdictSum
	}
	if e.access == nil || !e.access.IsAuthorized(verdict.From, access.RoleJudge) {
		return nil, ErrInvalidVerdictIssuer
	}
	verdictHash, err := verdict.SigningHash(e.domain)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(verdictHash, verdictSig, verdict.From, caller); err != nil {
		return nil, err
	}

	payee, err := destination(&tx.Payment)
	if err != nil {
		return nil, err
	}
	// Both legs of the split must succeed or neither may run; the vault is
	// checked for the full held amount before the first transfer.
	held, err := e.ledger.Balance(e.vault, record.Asset)
	if err != nil {
		return nil, err
	}
	if held.Cmp(record.Amount) < 0 {
		return nil, bank.ErrInsufficientBalance
	}
	payerShare := fees.Calculate(record.Amount, uint32(verdict.PayerBp))
	payeeShare := new(big.Int).Sub(record.Amount, payerShare)
	if payerShare.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, record.Payer, record.Asset, payerShare); err != nil {
			return nil, err
		}
	}
	if payeeShare.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, payee, record.Asset, payeeShare); err != nil {
			return nil, err
		}
	}
	record.Verdict = verdictHash
	if err := e.state.PaymentPut(record); err != nil {
		return nil, err
	}
	e.emit(NewResolvedEvent(record, verdict.PayerBp, verdict.PayeeBp))
	return record.Clone(), nil
}

// Payment returns the stored record for a payment key.
func (e *Engine) Payment(key [32]byte) (*PaymentRecord, error) {
	record, err := e.loadRecord(key)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}
