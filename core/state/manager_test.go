package state

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/lottery"
	"deelit/storage"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestPaymentRoundTrip(t *testing.T) {
	m := newManager(t)

	_, ok, err := m.PaymentGet([32]byte{0x01})
	require.NoError(t, err)
	require.False(t, ok)

	record := &escrow.PaymentRecord{
		Key:     [32]byte{0x01},
		Payer:   [20]byte{0x02},
		Amount:  big.NewInt(1100),
		Vesting: 1_700_003_600,
		Acceptance: escrow.AcceptanceState{
			Status: escrow.AcceptanceSigned,
			Hash:   [32]byte{0x03},
		},
		Conflict: [32]byte{0x04},
	}
	require.NoError(t, m.PaymentPut(record))

	loaded, ok, err := m.PaymentGet(record.Key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.Payer, loaded.Payer)
	require.Zero(t, record.Amount.Cmp(loaded.Amount))
	require.Equal(t, record.Acceptance, loaded.Acceptance)
	require.Equal(t, record.Conflict, loaded.Conflict)
	require.True(t, loaded.InOpenConflict())
}

func TestLotteryAndTicketRoundTrip(t *testing.T) {
	m := newManager(t)

	record := &lottery.Record{
		Key:           [32]byte{0x0a},
		Status:        lottery.StatusDrawn,
		TicketsSold:   3,
		Winner:        [20]byte{0x0b},
		WinnerTicket:  2,
		RandomRef:     "req-1",
		Word:          uint256.NewInt(77),
		WordDelivered: true,
	}
	require.NoError(t, m.LotteryPut(record))

	loaded, ok, err := m.LotteryGet(record.Key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.Status, loaded.Status)
	require.Equal(t, record.WinnerTicket, loaded.WinnerTicket)
	require.Zero(t, record.Word.Cmp(loaded.Word))
	require.True(t, loaded.WordDelivered)

	ticket := &lottery.Ticket{LotteryKey: record.Key, Number: 2, Owner: [20]byte{0x0b}, Paid: big.NewInt(1300)}
	require.NoError(t, m.TicketPut(ticket))
	loadedTicket, ok, err := m.TicketGet(record.Key, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ticket.Owner, loadedTicket.Owner)
	require.Zero(t, ticket.Paid.Cmp(loadedTicket.Paid))

	// Tickets are scoped per lottery.
	_, ok, err = m.TicketGet([32]byte{0xff}, 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRandomRefRoundTrip(t *testing.T) {
	m := newManager(t)

	_, ok, err := m.RandomRefGet("missing")
	require.NoError(t, err)
	require.False(t, ok)

	key := [32]byte{0x11}
	require.NoError(t, m.RandomRefPut("req-9", key))
	loaded, ok, err := m.RandomRefGet("req-9")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, key, loaded)
}

func TestBalanceStorage(t *testing.T) {
	m := newManager(t)
	addr := [20]byte{0x21}
	asset := bank.Asset{0x22}

	bal, err := m.BalanceGet(addr, asset)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())

	require.NoError(t, m.BalancePut(addr, asset, big.NewInt(500)))
	bal, err = m.BalanceGet(addr, asset)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(500)))

	// Native and token balances live in separate buckets.
	native, err := m.BalanceGet(addr, bank.NativeAsset)
	require.NoError(t, err)
	require.Zero(t, native.Sign())

	// Writing zero clears the key.
	require.NoError(t, m.BalancePut(addr, asset, big.NewInt(0)))
	bal, err = m.BalanceGet(addr, asset)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
}

func TestAllowanceStorage(t *testing.T) {
	m := newManager(t)
	owner := [20]byte{0x31}
	spender := [20]byte{0x32}
	asset := bank.Asset{0x33}

	require.NoError(t, m.AllowancePut(owner, spender, asset, big.NewInt(42)))
	al, err := m.AllowanceGet(owner, spender, asset)
	require.NoError(t, err)
	require.Zero(t, al.Cmp(big.NewInt(42)))

	// Direction matters.
	reverse, err := m.AllowanceGet(spender, owner, asset)
	require.NoError(t, err)
	require.Zero(t, reverse.Sign())
}
