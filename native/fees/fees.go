package fees

import "math/big"

// MaxBp is the basis-point denominator: 10000 bp = 100%.
const MaxBp uint32 = 10_000

// Fee describes a basis-point levy routed to a recipient account. Validation
// of AmountBp happens where a Fee enters the system from an untrusted caller,
// not in the arithmetic below.
type Fee struct {
	Recipient [20]byte `json:"recipient"`
	AmountBp  uint32   `json:"amountBp"`
}

// Valid reports whether the configured rate stays within the 100% bound.
func (f Fee) Valid() bool {
	return f.AmountBp <= MaxBp
}

// Calculate returns floor(amount * bp / 10000). The arithmetic runs on big.Int
// so realistic amounts cannot overflow the accumulator. A nil or non-positive
// amount and a zero rate both yield zero.
func Calculate(amount *big.Int, bp uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bp == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(bp)))
	return fee.Div(fee, big.NewInt(int64(MaxBp)))
}

// Apply returns the fee for amount at the configured rate.
func (f Fee) Apply(amount *big.Int) *big.Int {
	return Calculate(amount, f.AmountBp)
}
