package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/lottery"
	"deelit/storage"
)

const (
	prefixPayment   = "payments/"
	prefixLottery   = "lotteries/"
	prefixTicket    = "tickets/"
	prefixRandomRef = "randomrefs/"
	prefixBalance   = "balances/"
	prefixAllowance = "allowances/"
)

// Manager persists protocol state as JSON documents in a key-value store. It
// implements the state interfaces of the escrow engine, the lottery engine
// and the bank ledger.
type Manager struct {
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) putJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), raw)
}

func (m *Manager) getJSON(key string, out interface{}) (bool, error) {
	raw, err := m.db.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

// --- escrow state ---

func paymentKey(key [32]byte) string {
	return prefixPayment + hex.EncodeToString(key[:])
}

func (m *Manager) PaymentPut(record *escrow.PaymentRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil payment record")
	}
	return m.putJSON(paymentKey(record.Key), record)
}

func (m *Manager) PaymentGet(key [32]byte) (*escrow.PaymentRecord, bool, error) {
	record := new(escrow.PaymentRecord)
	ok, err := m.getJSON(paymentKey(key), record)
	if !ok || err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// --- lottery state ---

func lotteryKey(key [32]byte) string {
	return prefixLottery + hex.EncodeToString(key[:])
}

func ticketKey(key [32]byte, number uint64) string {
	return prefixTicket + hex.EncodeToString(key[:]) + "/" + strconv.FormatUint(number, 10)
}

func (m *Manager) LotteryPut(record *lottery.Record) error {
	if record == nil {
		return fmt.Errorf("state: nil lottery record")
	}
	return m.putJSON(lotteryKey(record.Key), record)
}

func (m *Manager) LotteryGet(key [32]byte) (*lottery.Record, bool, error) {
	record := new(lottery.Record)
	ok, err := m.getJSON(lotteryKey(key), record)
	if !ok || err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func (m *Manager) TicketPut(ticket *lottery.Ticket) error {
	if ticket == nil {
		return fmt.Errorf("state: nil ticket")
	}
	return m.putJSON(ticketKey(ticket.LotteryKey, ticket.Number), ticket)
}

func (m *Manager) TicketGet(key [32]byte, number uint64) (*lottery.Ticket, bool, error) {
	ticket := new(lottery.Ticket)
	ok, err := m.getJSON(ticketKey(key, number), ticket)
	if !ok || err != nil {
		return nil, false, err
	}
	return ticket, true, nil
}

func (m *Manager) RandomRefPut(ref string, key [32]byte) error {
	return m.db.Put([]byte(prefixRandomRef+ref), key[:])
}

func (m *Manager) RandomRefGet(ref string) ([32]byte, bool, error) {
	var key [32]byte
	raw, err := m.db.Get([]byte(prefixRandomRef + ref))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return key, false, nil
	}
	if err != nil {
		return key, false, err
	}
	if len(raw) != len(key) {
		return key, false, fmt.Errorf("state: malformed random ref mapping")
	}
	copy(key[:], raw)
	return key, true, nil
}

// --- bank state ---

func balanceKey(addr [20]byte, asset bank.Asset) string {
	return prefixBalance + hex.EncodeToString(addr[:]) + "/" + hex.EncodeToString(asset[:])
}

func allowanceKey(owner, spender [20]byte, asset bank.Asset) string {
	return prefixAllowance + hex.EncodeToString(owner[:]) + "/" +
		hex.EncodeToString(spender[:]) + "/" + hex.EncodeToString(asset[:])
}

func (m *Manager) putAmount(key string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		err := m.db.Delete([]byte(key))
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	return m.db.Put([]byte(key), []byte(amount.String()))
}

func (m *Manager) getAmount(key string) (*big.Int, error) {
	raw, err := m.db.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: malformed amount at %s", key)
	}
	return amount, nil
}

func (m *Manager) BalanceGet(addr [20]byte, asset bank.Asset) (*big.Int, error) {
	return m.getAmount(balanceKey(addr, asset))
}

func (m *Manager) BalancePut(addr [20]byte, asset bank.Asset, amount *big.Int) error {
	return m.putAmount(balanceKey(addr, asset), amount)
}

func (m *Manager) AllowanceGet(owner, spender [20]byte, asset bank.Asset) (*big.Int, error) {
	return m.getAmount(allowanceKey(owner, spender, asset))
}

func (m *Manager) AllowancePut(owner, spender [20]byte, asset bank.Asset, amount *big.Int) error {
	return m.putAmount(allowanceKey(owner, spender, asset), amount)
}
