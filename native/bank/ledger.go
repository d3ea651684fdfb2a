package bank

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrNilState              = errors.New("bank: state not configured")
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
)

// Asset identifies a transferable asset class. The zero value is the native
// asset; any other value addresses one fungible-token ledger.
type Asset [20]byte

// NativeAsset is the zero asset reference.
var NativeAsset = Asset{}

// IsNative reports whether the asset is the native one.
func (a Asset) IsNative() bool {
	return a == NativeAsset
}

// State is the persistence surface the ledger needs. Balances and allowances
// are stored per (account, asset) and (owner, spender, asset) respectively.
type State interface {
	BalanceGet(addr [20]byte, asset Asset) (*big.Int, error)
	BalancePut(addr [20]byte, asset Asset, amount *big.Int) error
	AllowanceGet(owner, spender [20]byte, asset Asset) (*big.Int, error)
	AllowancePut(owner, spender [20]byte, asset Asset, amount *big.Int) error
}

// Ledger moves native and token balances between accounts. Every transfer is
// all-or-nothing: a failed balance or allowance check leaves no partial state.
type Ledger struct {
	state State
}

func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

func normalizeAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("bank: negative transfer amount")
	}
	return new(big.Int).Set(amount), nil
}

// Balance returns the current balance for (addr, asset).
func (l *Ledger) Balance(addr [20]byte, asset Asset) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	bal, err := l.state.BalanceGet(addr, asset)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

// Mint credits an account out of thin air. Used for genesis seeding and tests.
func (l *Ledger) Mint(addr [20]byte, asset Asset, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	if amt.Sign() == 0 {
		return nil
	}
	bal, err := l.Balance(addr, asset)
	if err != nil {
		return err
	}
	return l.state.BalancePut(addr, asset, new(big.Int).Add(bal, amt))
}

// Transfer moves amount from one account to another. Zero-amount transfers
// succeed without touching state.
func (l *Ledger) Transfer(from, to [20]byte, asset Asset, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromBal, err := l.Balance(from, asset)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := l.Balance(to, asset)
	if err != nil {
		return err
	}
	if err := l.state.BalancePut(from, asset, new(big.Int).Sub(fromBal, amt)); err != nil {
		return err
	}
	return l.state.BalancePut(to, asset, new(big.Int).Add(toBal, amt))
}

// Approve sets the allowance a spender may pull from owner for a token asset.
func (l *Ledger) Approve(owner, spender [20]byte, asset Asset, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	return l.state.AllowancePut(owner, spender, asset, amt)
}

// Allowance returns the remaining allowance for (owner, spender, asset).
func (l *Ledger) Allowance(owner, spender [20]byte, asset Asset) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	al, err := l.state.AllowanceGet(owner, spender, asset)
	if err != nil {
		return nil, err
	}
	if al == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(al), nil
}

// TransferFrom moves token funds from owner to target on behalf of spender,
// consuming allowance. Native-asset transfers never go through allowances;
// callers hand native value over directly via Transfer.
func (l *Ledger) TransferFrom(spender, owner, to [20]byte, asset Asset, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	if amt.Sign() == 0 {
		return nil
	}
	if asset.IsNative() {
		return fmt.Errorf("bank: native asset has no allowance path")
	}
	allowance, err := l.Allowance(owner, spender, asset)
	if err != nil {
		return err
	}
	if allowance.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(owner, to, asset, amt); err != nil {
		return err
	}
	return l.state.AllowancePut(owner, spender, asset, new(big.Int).Sub(allowance, amt))
}
