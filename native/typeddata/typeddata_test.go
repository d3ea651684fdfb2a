package typeddata

import (
	"math/big"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestEncodeTypeOrdersDependenciesAlphabetically(t *testing.T) {
	schema := MustSchema(
		Type{Name: "Outer", Fields: []Field{
			{Name: "owner", Kind: KindAddress},
			{Name: "second", Kind: KindStruct, StructType: "Zebra"},
			{Name: "first", Kind: KindStruct, StructType: "Apple"},
		}},
		Type{Name: "Zebra", Fields: []Field{{Name: "z", Kind: KindUint256}}},
		Type{Name: "Apple", Fields: []Field{{Name: "a", Kind: KindUint256}}},
	)
	encoded, err := schema.EncodeType("Outer")
	if err != nil {
		t.Fatalf("encode type: %v", err)
	}
	want := "Outer(address owner,Zebra second,Apple first)Apple(uint256 a)Zebra(uint256 z)"
	if encoded != want {
		t.Fatalf("encoded type = %q, want %q", encoded, want)
	}

	if _, err := schema.EncodeType("Missing"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestHashMatchesManualEncoding(t *testing.T) {
	schema := MustSchema(Type{Name: "Mail", Fields: []Field{
		{Name: "from", Kind: KindAddress},
		{Name: "amount", Kind: KindUint256},
		{Name: "note", Kind: KindString},
	}})

	from := [20]byte{0x01, 0x02}
	amount := big.NewInt(123456)
	note := "hello"

	got, err := schema.Hash("Mail", Values{"from": from, "amount": amount, "note": note})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	typeHash := ethcrypto.Keccak256([]byte("Mail(address from,uint256 amount,string note)"))
	var addrSlot, amountSlot [32]byte
	copy(addrSlot[12:], from[:])
	amount.FillBytes(amountSlot[:])
	noteSlot := ethcrypto.Keccak256([]byte(note))

	enc := append([]byte{}, typeHash...)
	enc = append(enc, addrSlot[:]...)
	enc = append(enc, amountSlot[:]...)
	enc = append(enc, noteSlot...)
	var want [32]byte
	copy(want[:], ethcrypto.Keccak256(enc))

	if got != want {
		t.Fatalf("struct hash does not match the manual encoding")
	}
}

func TestHashNestedStruct(t *testing.T) {
	schema := MustSchema(
		Type{Name: "Outer", Fields: []Field{
			{Name: "item", Kind: KindStruct, StructType: "Inner"},
		}},
		Type{Name: "Inner", Fields: []Field{{Name: "value", Kind: KindUint256}}},
	)

	innerValues := Values{"value": uint64(7)}
	innerHash, err := schema.Hash("Inner", innerValues)
	if err != nil {
		t.Fatalf("inner hash: %v", err)
	}
	got, err := schema.Hash("Outer", Values{"item": innerValues})
	if err != nil {
		t.Fatalf("outer hash: %v", err)
	}

	typeHash := ethcrypto.Keccak256([]byte("Outer(Inner item)Inner(uint256 value)"))
	enc := append([]byte{}, typeHash...)
	enc = append(enc, innerHash[:]...)
	var want [32]byte
	copy(want[:], ethcrypto.Keccak256(enc))

	if got != want {
		t.Fatalf("nested struct hash does not compose from the inner struct hash")
	}
}

func TestHashRejectsBadValues(t *testing.T) {
	schema := MustSchema(Type{Name: "Msg", Fields: []Field{
		{Name: "who", Kind: KindAddress},
		{Name: "bp", Kind: KindUint16},
	}})

	ok := Values{"who": [20]byte{}, "bp": uint64(10000)}
	if _, err := schema.Hash("Msg", ok); err != nil {
		t.Fatalf("valid values rejected: %v", err)
	}

	cases := []struct {
		name   string
		values Values
		substr string
	}{
		{"missing field", Values{"who": [20]byte{}}, "missing field"},
		{"wrong address type", Values{"who": "nope", "bp": uint64(1)}, "expected [20]byte"},
		{"uint16 overflow", Values{"who": [20]byte{}, "bp": uint64(1 << 16)}, "exceeds 16 bits"},
		{"negative integer", Values{"who": [20]byte{}, "bp": int64(-1)}, "negative"},
	}
	for _, tc := range cases {
		_, err := schema.Hash("Msg", tc.values)
		if err == nil || !strings.Contains(err.Error(), tc.substr) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.substr, err)
		}
	}
}

func TestNewSchemaValidatesReferences(t *testing.T) {
	if _, err := NewSchema(Type{Name: "Bad", Fields: []Field{
		{Name: "x", Kind: KindStruct, StructType: "Ghost"},
	}}); err == nil {
		t.Fatalf("expected error for unresolved struct reference")
	}
	if _, err := NewSchema(
		Type{Name: "Dup", Fields: nil},
		Type{Name: "Dup", Fields: nil},
	); err == nil {
		t.Fatalf("expected error for duplicate type")
	}
}

func TestSigningHashLayout(t *testing.T) {
	domain := Domain{
		Name:              "deelit.net",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: [20]byte{0xde},
	}
	structHash := [32]byte{0x42}

	sep := domain.Separator()
	payload := append([]byte{0x19, 0x01}, sep[:]...)
	payload = append(payload, structHash[:]...)
	var want [32]byte
	copy(want[:], ethcrypto.Keccak256(payload))

	if got := SigningHash(domain, structHash); got != want {
		t.Fatalf("signing hash does not follow the 0x1901 layout")
	}
}

func TestDomainSeparatorBindsInstance(t *testing.T) {
	base := Domain{Name: "deelit.net", Version: "1", ChainID: big.NewInt(1)}
	structHash := [32]byte{0x01}

	variants := []Domain{
		{Name: "other.net", Version: "1", ChainID: big.NewInt(1)},
		{Name: "deelit.net", Version: "2", ChainID: big.NewInt(1)},
		{Name: "deelit.net", Version: "1", ChainID: big.NewInt(5)},
		{Name: "deelit.net", Version: "1", ChainID: big.NewInt(1), VerifyingContract: [20]byte{0x09}},
	}
	baseHash := SigningHash(base, structHash)
	for i, variant := range variants {
		if SigningHash(variant, structHash) == baseHash {
			t.Fatalf("variant %d produced the same signing hash", i)
		}
	}
	// Nil chain id hashes like chain id zero.
	nilChain := Domain{Name: "deelit.net", Version: "1"}
	zeroChain := Domain{Name: "deelit.net", Version: "1", ChainID: big.NewInt(0)}
	if SigningHash(nilChain, structHash) != SigningHash(zeroChain, structHash) {
		t.Fatalf("nil chain id must hash like zero")
	}
}
