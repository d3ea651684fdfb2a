package gateway

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"deelit/crypto"
	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/fees"
	"deelit/native/lottery"
)

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("gateway: decode request: %w", err)
	}
	return nil
}

func parseAddress(field, value string) ([20]byte, error) {
	if value == "" {
		return [20]byte{}, fmt.Errorf("gateway: %s is required", field)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("gateway: %s: %w", field, err)
	}
	return addr.Raw(), nil
}

func parseOptionalAddress(field, value string) ([20]byte, error) {
	if value == "" {
		return [20]byte{}, nil
	}
	return parseAddress(field, value)
}

func parseHash(field, value string) ([32]byte, error) {
	raw, err := parseHex(field, value)
	if err != nil {
		return [32]byte{}, err
	}
	if len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("gateway: %s must be 32 bytes", field)
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}

func parseHex(field, value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(value, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: invalid hex", field)
	}
	return raw, nil
}

func parseSignature(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return parseHex("signature", value)
}

func parseAmount(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("gateway: %s is required", field)
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("gateway: %s must be a non-negative decimal", field)
	}
	return amount, nil
}

func parseOptionalAmount(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	return parseAmount(field, value)
}

func formatHash(hash [32]byte) string {
	return "0x" + hex.EncodeToString(hash[:])
}

func formatAddress(addr [20]byte) string {
	return crypto.AddressFromRaw(addr).String()
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// offerPayload mirrors the struct-hash field order of the offer type.
type offerPayload struct {
	From           string `json:"from"`
	ProductHash    string `json:"product_hash"`
	Price          string `json:"price"`
	CurrencyCode   string `json:"currency_code"`
	ChainID        int64  `json:"chain_id"`
	Asset          string `json:"asset,omitempty"`
	ShipmentHash   string `json:"shipment_hash"`
	ShipmentPrice  string `json:"shipment_price"`
	ExpirationTime int64  `json:"expiration_time"`
	Salt           string `json:"salt"`
}

func (p offerPayload) toOffer() (escrow.Offer, error) {
	var offer escrow.Offer
	from, err := parseAddress("offer.from", p.From)
	if err != nil {
		return offer, err
	}
	productHash, err := parseHash("offer.product_hash", p.ProductHash)
	if err != nil {
		return offer, err
	}
	price, err := parseAmount("offer.price", p.Price)
	if err != nil {
		return offer, err
	}
	asset, err := parseOptionalAddress("offer.asset", p.Asset)
	if err != nil {
		return offer, err
	}
	shipmentHash, err := parseHash("offer.shipment_hash", p.ShipmentHash)
	if err != nil {
		return offer, err
	}
	shipmentPrice, err := parseAmount("offer.shipment_price", p.ShipmentPrice)
	if err != nil {
		return offer, err
	}
	salt, err := parseOptionalAmount("offer.salt", p.Salt)
	if err != nil {
		return offer, err
	}
	offer = escrow.Offer{
		From:           from,
		ProductHash:    productHash,
		Price:          price,
		CurrencyCode:   p.CurrencyCode,
		ChainID:        big.NewInt(p.ChainID),
		Asset:          bank.Asset(asset),
		ShipmentHash:   shipmentHash,
		ShipmentPrice:  shipmentPrice,
		ExpirationTime: p.ExpirationTime,
		Salt:           salt,
	}
	return offer, nil
}

type paymentPayload struct {
	From           string `json:"from"`
	Destination    string `json:"destination"`
	OfferHash      string `json:"offer_hash,omitempty"`
	ExpirationTime int64  `json:"expiration_time"`
	VestingPeriod  int64  `json:"vesting_period"`
}

type transactionPayload struct {
	Payment paymentPayload `json:"payment"`
	Offer   offerPayload   `json:"offer"`
}

func (p transactionPayload) toTransaction() (escrow.Transaction, error) {
	var tx escrow.Transaction
	offer, err := p.Offer.toOffer()
	if err != nil {
		return tx, err
	}
	from, err := parseAddress("payment.from", p.Payment.From)
	if err != nil {
		return tx, err
	}
	destination, err := parseHex("payment.destination", p.Payment.Destination)
	if err != nil {
		return tx, err
	}
	var offerHash [32]byte
	if p.Payment.OfferHash != "" {
		offerHash, err = parseHash("payment.offer_hash", p.Payment.OfferHash)
		if err != nil {
			return tx, err
		}
	}
	tx = escrow.Transaction{
		Payment: escrow.Payment{
			From:           from,
			Destination:    destination,
			OfferHash:      offerHash,
			ExpirationTime: p.Payment.ExpirationTime,
			VestingPeriod:  p.Payment.VestingPeriod,
		},
		Offer: offer,
	}
	return tx, nil
}

type lotteryPayload struct {
	From           string `json:"from"`
	NbTickets      uint64 `json:"nb_tickets"`
	TicketPrice    string `json:"ticket_price"`
	ProductHash    string `json:"product_hash"`
	Asset          string `json:"asset,omitempty"`
	FeeRecipient   string `json:"fee_recipient"`
	FeeBp          uint32 `json:"fee_bp"`
	ProtoRecipient string `json:"protocol_fee_recipient"`
	ProtoBp        uint32 `json:"protocol_fee_bp"`
	ExpirationTime int64  `json:"expiration_time"`
}

func (p lotteryPayload) toLottery() (lottery.Lottery, error) {
	var lot lottery.Lottery
	from, err := parseAddress("lottery.from", p.From)
	if err != nil {
		return lot, err
	}
	price, err := parseAmount("lottery.ticket_price", p.TicketPrice)
	if err != nil {
		return lot, err
	}
	productHash, err := parseHash("lottery.product_hash", p.ProductHash)
	if err != nil {
		return lot, err
	}
	asset, err := parseOptionalAddress("lottery.asset", p.Asset)
	if err != nil {
		return lot, err
	}
	feeRecipient, err := parseAddress("lottery.fee_recipient", p.FeeRecipient)
	if err != nil {
		return lot, err
	}
	protoRecipient, err := parseAddress("lottery.protocol_fee_recipient", p.ProtoRecipient)
	if err != nil {
		return lot, err
	}
	lot = lottery.Lottery{
		From:           from,
		NbTickets:      p.NbTickets,
		TicketPrice:    price,
		ProductHash:    productHash,
		Asset:          bank.Asset(asset),
		Fee:            fees.Fee{Recipient: feeRecipient, AmountBp: p.FeeBp},
		ProtocolFee:    fees.Fee{Recipient: protoRecipient, AmountBp: p.ProtoBp},
		ExpirationTime: p.ExpirationTime,
	}
	return lot, nil
}
