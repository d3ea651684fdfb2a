package escrow

import (
	"math/big"

	"deelit/native/bank"
	"deelit/native/typeddata"
)

// Offer is an off-band signed commercial offer. Offers are never stored; a
// Payment references one by its signing hash.
type Offer struct {
	From           [20]byte
	ProductHash    [32]byte
	Price          *big.Int
	CurrencyCode   string
	ChainID        *big.Int
	Asset          bank.Asset
	ShipmentHash   [32]byte
	ShipmentPrice  *big.Int
	ExpirationTime int64
	Salt           *big.Int
}

// Payment is a payee-signed payment request. Its signing hash is the payment
// key under which all escrow state is stored. From is the payee (the
// requester); Destination carries the payee's receiving account in an opaque
// encoding to allow non-native address formats.
type Payment struct {
	From           [20]byte
	Destination    []byte
	OfferHash      [32]byte
	ExpirationTime int64
	VestingPeriod  int64
}

// Transaction pairs an offer with the payment request that references it.
type Transaction struct {
	Offer   Offer
	Payment Payment
}

// Acceptance is the payer's authorization to release escrowed funds.
type Acceptance struct {
	From        [20]byte
	PaymentHash [32]byte
}

// Conflict opens a dispute on a payment. From must be the payer or the payee.
type Conflict struct {
	From        [20]byte
	PaymentHash [32]byte
}

// Verdict resolves a dispute by splitting the held amount. PayerBp is the
// share refunded to the payer and PayeeBp the share released to the payee;
// the two must sum to 10000.
type Verdict struct {
	From        [20]byte
	PaymentHash [32]byte
	PayerBp     uint16
	PayeeBp     uint16
}

// Types is the versioned signing schema shared with off-band signers. It is
// part of the protocol compatibility surface: changing a field requires a
// version bump in the signing domain.
var Types = typeddata.MustSchema(
	typeddata.Type{Name: "Offer", Fields: []typeddata.Field{
		{Name: "from_address", Kind: typeddata.KindAddress},
		{Name: "product_hash", Kind: typeddata.KindBytes32},
		{Name: "price", Kind: typeddata.KindUint256},
		{Name: "currency_code", Kind: typeddata.KindString},
		{Name: "chain_id", Kind: typeddata.KindUint256},
		{Name: "token_address", Kind: typeddata.KindAddress},
		{Name: "shipment_hash", Kind: typeddata.KindBytes32},
		{Name: "shipment_price", Kind: typeddata.KindUint256},
		{Name: "expiration_time", Kind: typeddata.KindUint256},
		{Name: "salt", Kind: typeddata.KindUint256},
	}},
	typeddata.Type{Name: "Payment", Fields: []typeddata.Field{
		{Name: "from_address", Kind: typeddata.KindAddress},
		{Name: "destination_address", Kind: typeddata.KindBytes},
		{Name: "offer_hash", Kind: typeddata.KindBytes32},
		{Name: "expiration_time", Kind: typeddata.KindUint256},
		{Name: "vesting_period", Kind: typeddata.KindUint256},
	}},
	typeddata.Type{Name: "Acceptance", Fields: []typeddata.Field{
		{Name: "from_address", Kind: typeddata.KindAddress},
		{Name: "payment_hash", Kind: typeddata.KindBytes32},
	}},
	typeddata.Type{Name: "Conflict", Fields: []typeddata.Field{
		{Name: "from_address", Kind: typeddata.KindAddress},
		{Name: "payment_hash", Kind: typeddata.KindBytes32},
	}},
	typeddata.Type{Name: "Verdict", Fields: []typeddata.Field{
		{Name: "from_address", Kind: typeddata.KindAddress},
		{Name: "payment_hash", Kind: typeddata.KindBytes32},
		{Name: "payer_bp", Kind: typeddata.KindUint16},
		{Name: "payee_bp", Kind: typeddata.KindUint16},
	}},
)

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func (o *Offer) values() typeddata.Values {
	return typeddata.Values{
		"from_address":    o.From,
		"product_hash":    o.ProductHash,
		"price":           bigOrZero(o.Price),
		"currency_code":   o.CurrencyCode,
		"chain_id":        bigOrZero(o.ChainID),
		"token_address":   [20]byte(o.Asset),
		"shipment_hash":   o.ShipmentHash,
		"shipment_price":  bigOrZero(o.ShipmentPrice),
		"expiration_time": o.ExpirationTime,
		"salt":            bigOrZero(o.Salt),
	}
}

// StructHash returns the schema-plus-values digest of the offer.
func (o *Offer) StructHash() ([32]byte, error) {
	return Types.Hash("Offer", o.values())
}

// SigningHash returns the domain-separated digest signers commit to. It also
// serves as the offer reference inside a Payment.
func (o *Offer) SigningHash(domain typeddata.Domain) ([32]byte, error) {
	structHash, err := o.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return typeddata.SigningHash(domain, structHash), nil
}

// Total returns price plus shipment price, the amount held in escrow.
func (o *Offer) Total() *big.Int {
	return new(big.Int).Add(bigOrZero(o.Price), bigOrZero(o.ShipmentPrice))
}

func (p *Payment) values() typeddata.Values {
	dest := p.Destination
	if dest == nil {
		dest = []byte{}
	}
	return typeddata.Values{
		"from_address":        p.From,
		"destination_address": dest,
		"offer_hash":          p.OfferHash,
		"expiration_time":     p.ExpirationTime,
		"vesting_period":      p.VestingPeriod,
	}
}

func (p *Payment) StructHash() ([32]byte, error) {
	return Types.Hash("Payment", p.values())
}

// SigningHash returns the payment key.
func (p *Payment) SigningHash(domain typeddata.Domain) ([32]byte, error) {
	structHash, err := p.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return typeddata.SigningHash(domain, structHash), nil
}

func (a *Acceptance) StructHash() ([32]byte, error) {
	return Types.Hash("Acceptance", typeddata.Values{
		"from_address": a.From,
		"payment_hash": a.PaymentHash,
	})
}

func (a *Acceptance) SigningHash(domain typeddata.Domain) ([32]byte, error) {
	structHash, err := a.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return typeddata.SigningHash(domain, structHash), nil
}

func (c *Conflict) StructHash() ([32]byte, error) {
	return Types.Hash("Conflict", typeddata.Values{
		"from_address": c.From,
		"payment_hash": c.PaymentHash,
	})
}

func (c *Conflict) SigningHash(domain typeddata.Domain) ([32]byte, error) {
	structHash, err := c.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return typeddata.SigningHash(domain, structHash), nil
}

func (v *Verdict) StructHash() ([32]byte, error) {
	return Types.Hash("Verdict", typeddata.Values{
		"from_address": v.From,
		"payment_hash": v.PaymentHash,
		"payer_bp":     uint64(v.PayerBp),
		"payee_bp":     uint64(v.PayeeBp),
	})
}

func (v *Verdict) SigningHash(domain typeddata.Domain) ([32]byte, error) {
	structHash, err := v.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return typeddata.SigningHash(domain, structHash), nil
}
