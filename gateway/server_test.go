package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"deelit/core/state"
	"deelit/crypto"
	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/fees"
	"deelit/native/lottery"
	"deelit/native/signature"
	"deelit/native/typeddata"
	"deelit/storage"
)

const testNow int64 = 1_700_000_000

type gatewayEnv struct {
	server    *httptest.Server
	escrowEng *escrow.Engine
	ledger    *bank.Ledger

	payer *crypto.PrivateKey
	payee *crypto.PrivateKey
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	ledger := bank.NewLedger(manager)

	escrowEng := escrow.NewEngine(typeddata.Domain{
		Name:              "deelit.net",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: [20]byte{0xde, 0xe1},
	})
	escrowEng.SetState(manager)
	escrowEng.SetLedger(ledger)
	escrowEng.SetAuthorizer(signature.NewAuthorizer(signature.NewRegistry()))
	escrowEng.SetVault([20]byte{0xee, 0x01})
	escrowEng.SetProtocolFee(fees.Fee{Recipient: [20]byte{0xee, 0x02}, AmountBp: 1000})
	escrowEng.SetNowFunc(func() int64 { return testNow })

	lotteryEng := lottery.NewEngine(typeddata.Domain{
		Name:              "deelit.net",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: [20]byte{0xde, 0xe2},
	})
	lotteryEng.SetState(manager)
	lotteryEng.SetLedger(ledger)
	lotteryEng.SetEscrow(escrowEng)
	lotteryEng.SetNowFunc(func() int64 { return testNow })

	payer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	payee, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	srv := NewServer(slog.Default(), escrowEng, lotteryEng, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &gatewayEnv{
		server:    ts,
		escrowEng: escrowEng,
		ledger:    ledger,
		payer:     payer,
		payee:     payee,
	}
}

func (env *gatewayEnv) post(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(env.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealthz(t *testing.T) {
	env := newGatewayEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEscrowPayAndQuery(t *testing.T) {
	env := newGatewayEnv(t)

	payerAddr := env.payer.PubKey().Address()
	payeeAddr := env.payee.PubKey().Address()
	require.NoError(t, env.ledger.Mint(payerAddr.Raw(), bank.NativeAsset, big.NewInt(10_000)))

	offer := escrow.Offer{
		From:           payerAddr.Raw(),
		ProductHash:    [32]byte{0x01},
		Price:          big.NewInt(1000),
		CurrencyCode:   "EUR",
		ChainID:        big.NewInt(1),
		ShipmentHash:   [32]byte{0x02},
		ShipmentPrice:  big.NewInt(100),
		ExpirationTime: testNow + 86_400,
		Salt:           big.NewInt(7),
	}
	offerHash, err := offer.SigningHash(env.escrowEng.Domain())
	require.NoError(t, err)
	payment := escrow.Payment{
		From:           payeeAddr.Raw(),
		Destination:    payeeAddr.Bytes(),
		OfferHash:      offerHash,
		ExpirationTime: testNow + 86_400,
		VestingPeriod:  3600,
	}
	key, err := payment.SigningHash(env.escrowEng.Domain())
	require.NoError(t, err)
	sig, err := env.payee.Sign(key)
	require.NoError(t, err)

	payload := map[string]any{
		"caller": payerAddr.String(),
		"transaction": map[string]any{
			"offer": map[string]any{
				"from":            payerAddr.String(),
				"product_hash":    "0x" + hex.EncodeToString(offer.ProductHash[:]),
				"price":           "1000",
				"currency_code":   "EUR",
				"chain_id":        1,
				"shipment_hash":   "0x" + hex.EncodeToString(offer.ShipmentHash[:]),
				"shipment_price":  "100",
				"expiration_time": testNow + 86_400,
				"salt":            "7",
			},
			"payment": map[string]any{
				"from":            payeeAddr.String(),
				"destination":     "0x" + hex.EncodeToString(payeeAddr.Bytes()),
				"expiration_time": testNow + 86_400,
				"vesting_period":  3600,
			},
		},
		"signature": "0x" + hex.EncodeToString(sig),
	}

	resp, body := env.post(t, "/v1/escrow/pay", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	require.Equal(t, "1100", body["amount"])
	require.Equal(t, payerAddr.String(), body["payer"])
	require.Equal(t, "none", body["acceptance"])

	// Replays conflict with the stored record.
	resp, _ = env.post(t, "/v1/escrow/pay", payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	getResp, err := http.Get(env.server.URL + "/v1/escrow/payments/0x" + hex.EncodeToString(key[:]))
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestEscrowPayRejectsMispairedOfferHash(t *testing.T) {
	env := newGatewayEnv(t)
	payerAddr := env.payer.PubKey().Address()
	payeeAddr := env.payee.PubKey().Address()
	require.NoError(t, env.ledger.Mint(payerAddr.Raw(), bank.NativeAsset, big.NewInt(10_000)))

	wrongHash := make([]byte, 32)
	wrongHash[0] = 0xff
	payload := map[string]any{
		"caller": payerAddr.String(),
		"transaction": map[string]any{
			"offer": map[string]any{
				"from":            payerAddr.String(),
				"product_hash":    "0x" + hex.EncodeToString(make([]byte, 32)),
				"price":           "1000",
				"currency_code":   "EUR",
				"chain_id":        1,
				"shipment_hash":   "0x" + hex.EncodeToString(make([]byte, 32)),
				"shipment_price":  "0",
				"expiration_time": testNow + 86_400,
				"salt":            "1",
			},
			"payment": map[string]any{
				"from":            payeeAddr.String(),
				"destination":     "0x" + hex.EncodeToString(payeeAddr.Bytes()),
				"offer_hash":      "0x" + hex.EncodeToString(wrongHash),
				"expiration_time": testNow + 86_400,
				"vesting_period":  3600,
			},
		},
		"signature": "0x" + hex.EncodeToString(make([]byte, 65)),
	}

	// A supplied offer hash is passed through untouched, so the engine sees
	// the mispairing instead of a recomputed hash masking it.
	resp, body := env.post(t, "/v1/escrow/pay", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %v", body)
}

func TestEscrowPaymentNotFound(t *testing.T) {
	env := newGatewayEnv(t)
	resp, err := http.Get(env.server.URL + "/v1/escrow/payments/0x" + hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedRequestIsBadRequest(t *testing.T) {
	env := newGatewayEnv(t)
	resp, err := http.Post(env.server.URL+"/v1/escrow/pay", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLotteryCreateReturnsKey(t *testing.T) {
	env := newGatewayEnv(t)
	organizer := env.payer.PubKey().Address()
	recipient := env.payee.PubKey().Address()

	payload := map[string]any{
		"lottery": map[string]any{
			"from":                   organizer.String(),
			"nb_tickets":             3,
			"ticket_price":           "1000",
			"product_hash":           "0x" + hex.EncodeToString(make([]byte, 32)),
			"fee_recipient":          recipient.String(),
			"fee_bp":                 2000,
			"protocol_fee_recipient": recipient.String(),
			"protocol_fee_bp":        1000,
			"expiration_time":        0,
		},
	}
	resp, body := env.post(t, "/v1/lottery/create", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	require.Contains(t, body, "key")

	// A zero ticket count is a validation failure.
	payload["lottery"].(map[string]any)["nb_tickets"] = 0
	resp, _ = env.post(t, "/v1/lottery/create", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
