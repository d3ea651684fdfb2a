package random

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

type recordingConsumer struct {
	refs  []string
	words []*uint256.Int
}

func (c *recordingConsumer) DeliverWord(ref string, word *uint256.Int) error {
	c.refs = append(c.refs, ref)
	c.words = append(c.words, word)
	return nil
}

func TestMockProducerRequestAndFulfill(t *testing.T) {
	producer := NewMockProducer(big.NewInt(0))
	consumer := &recordingConsumer{}
	producer.SetConsumer(consumer)

	ref, err := producer.RequestWord(nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if ref == "" {
		t.Fatalf("empty request reference")
	}
	req, ok := producer.Status(ref)
	if !ok || req.Fulfilled {
		t.Fatalf("expected pending request")
	}

	word := uint256.NewInt(99)
	if err := producer.Fulfill(ref, word); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if len(consumer.refs) != 1 || consumer.refs[0] != ref {
		t.Fatalf("consumer did not receive the word")
	}
	if consumer.words[0].Cmp(word) != 0 {
		t.Fatalf("delivered word mismatch")
	}
	req, _ = producer.Status(ref)
	if !req.Fulfilled || req.Word.Cmp(word) != 0 {
		t.Fatalf("request not marked fulfilled")
	}
}

func TestMockProducerChargesPrice(t *testing.T) {
	producer := NewMockProducer(big.NewInt(10))
	if got := producer.Price(); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("price = %s, want 10", got)
	}
	if _, err := producer.RequestWord(nil); !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("expected ErrInsufficientFee for nil payment, got %v", err)
	}
	if _, err := producer.RequestWord(big.NewInt(9)); !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("expected ErrInsufficientFee for short payment, got %v", err)
	}
	if _, err := producer.RequestWord(big.NewInt(10)); err != nil {
		t.Fatalf("request at price: %v", err)
	}
}

func TestMockProducerUnknownRef(t *testing.T) {
	producer := NewMockProducer(nil)
	if err := producer.Fulfill("ghost", uint256.NewInt(1)); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}
	if _, ok := producer.Status("ghost"); ok {
		t.Fatalf("status must not report unknown refs")
	}
}

func TestCryptoProducerDrawsDistinctWords(t *testing.T) {
	producer := CryptoProducer{}
	a, err := producer.RequestWordNow()
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	b, err := producer.RequestWordNow()
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	// 256-bit collisions do not happen by accident.
	if a.Cmp(b) == 0 {
		t.Fatalf("two draws produced the same word")
	}
}
