package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientFee = errors.New("random: insufficient request fee")
	ErrUnknownRequest  = errors.New("random: unknown request")
)

// Producer supplies unpredictable 256-bit words through an asynchronous
// request/fulfill exchange. RequestWord may charge a fee; the delivered word
// arrives later through the consumer callback.
type Producer interface {
	Price() *big.Int
	RequestWord(payment *big.Int) (string, error)
}

// SyncProducer returns a word in the same call, for hosts that can provide
// randomness synchronously.
type SyncProducer interface {
	RequestWordNow() (*uint256.Int, error)
}

// Consumer receives asynchronously delivered words. The producer (or the
// wiring around it) invokes DeliverWord once per fulfilled request.
type Consumer interface {
	DeliverWord(ref string, word *uint256.Int) error
}

// Request tracks one pending or fulfilled randomness request.
type Request struct {
	Ref       string
	Paid      *big.Int
	Fulfilled bool
	Word      *uint256.Int
}

// MockProducer is a controllable producer: requests are recorded and words
// are released on demand via Fulfill. It drives both engine tests and local
// development wiring.
type MockProducer struct {
	mu       sync.Mutex
	price    *big.Int
	requests map[string]*Request
	consumer Consumer
}

func NewMockProducer(price *big.Int) *MockProducer {
	if price == nil {
		price = big.NewInt(0)
	}
	return &MockProducer{
		price:    new(big.Int).Set(price),
		requests: make(map[string]*Request),
	}
}

// SetConsumer binds the callback receiving fulfilled words.
func (p *MockProducer) SetConsumer(c Consumer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumer = c
}

// Price returns the fee charged per request.
func (p *MockProducer) Price() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.price)
}

// RequestWord registers a request and returns its reference. The payment must
// cover the configured price.
func (p *MockProducer) RequestWord(payment *big.Int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.price.Sign() > 0 {
		if payment == nil || payment.Cmp(p.price) < 0 {
			return "", ErrInsufficientFee
		}
	}
	ref := uuid.NewString()
	paid := big.NewInt(0)
	if payment != nil {
		paid = new(big.Int).Set(payment)
	}
	p.requests[ref] = &Request{Ref: ref, Paid: paid}
	return ref, nil
}

// Fulfill releases the word for a pending request and pushes it to the bound
// consumer.
func (p *MockProducer) Fulfill(ref string, word *uint256.Int) error {
	p.mu.Lock()
	req, ok := p.requests[ref]
	if !ok {
		p.mu.Unlock()
		return ErrUnknownRequest
	}
	req.Fulfilled = true
	req.Word = word.Clone()
	consumer := p.consumer
	p.mu.Unlock()
	if consumer == nil {
		return nil
	}
	if err := consumer.DeliverWord(ref, word.Clone()); err != nil {
		return fmt.Errorf("random: deliver word: %w", err)
	}
	return nil
}

// Status returns the recorded request, if any.
func (p *MockProducer) Status(ref string) (*Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.requests[ref]
	if !ok {
		return nil, false
	}
	cp := *req
	if req.Word != nil {
		cp.Word = req.Word.Clone()
	}
	cp.Paid = new(big.Int).Set(req.Paid)
	return &cp, true
}

// CryptoProducer draws words from the operating system CSPRNG synchronously.
type CryptoProducer struct{}

// RequestWordNow implements SyncProducer.
func (CryptoProducer) RequestWordNow() (*uint256.Int, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("random: read entropy: %w", err)
	}
	return new(uint256.Int).SetBytes(buf[:]), nil
}
