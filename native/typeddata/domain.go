package typeddata

import "math/big"

// Domain binds signing payloads to one protocol deployment. Hashing the same
// message under a different name, version, chain or verifying instance yields
// a different signing hash, which is what prevents cross-instance replay.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract [20]byte
}

var domainSchema = MustSchema(Type{
	Name: "EIP712Domain",
	Fields: []Field{
		{Name: "name", Kind: KindString},
		{Name: "version", Kind: KindString},
		{Name: "chainId", Kind: KindUint256},
		{Name: "verifyingContract", Kind: KindAddress},
	},
})

// Separator returns the domain separator digest.
func (d Domain) Separator() [32]byte {
	chainID := d.ChainID
	if chainID == nil {
		chainID = big.NewInt(0)
	}
	h, err := domainSchema.Hash("EIP712Domain", Values{
		"name":              d.Name,
		"version":           d.Version,
		"chainId":           chainID,
		"verifyingContract": d.VerifyingContract,
	})
	if err != nil {
		// The domain schema is static; a failure here is a programming error.
		panic(err)
	}
	return h
}

// SigningHash combines the domain separator with a struct hash into the final
// digest a signer commits to: keccak256(0x19 || 0x01 || separator || structHash).
func SigningHash(domain Domain, structHash [32]byte) [32]byte {
	sep := domain.Separator()
	payload := make([]byte, 0, 2+32+32)
	payload = append(payload, 0x19, 0x01)
	payload = append(payload, sep[:]...)
	payload = append(payload, structHash[:]...)
	return keccak(payload)
}
