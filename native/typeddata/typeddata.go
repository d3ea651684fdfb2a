package typeddata

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Kind enumerates the semantic field types understood by the hasher. The set
// intentionally mirrors the protocol's signing schemas; it is not a general
// ABI implementation.
type Kind uint8

const (
	KindAddress Kind = iota
	KindBytes32
	KindUint256
	KindUint16
	KindUint48
	KindString
	KindBytes
	KindStruct
)

func (k Kind) abiType(structType string) string {
	switch k {
	case KindAddress:
		return "address"
	case KindBytes32:
		return "bytes32"
	case KindUint256:
		return "uint256"
	case KindUint16:
		return "uint16"
	case KindUint48:
		return "uint48"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindStruct:
		return structType
	default:
		return "unknown"
	}
}

// Field describes a single named, typed slot in a message schema. Order
// matters: the encoded layout follows the declaration order.
type Field struct {
	Name       string
	Kind       Kind
	StructType string
}

// Type is a named message schema.
type Type struct {
	Name   string
	Fields []Field
}

// Values carries the field values for one message instance. Nested structs are
// represented by nested Values.
type Values map[string]interface{}

// Schema is an immutable registry of message types that can hash any of its
// members, resolving nested struct references recursively.
type Schema struct {
	types map[string]Type
}

// NewSchema builds a schema registry and validates that every nested struct
// reference resolves to a registered type.
func NewSchema(types ...Type) (*Schema, error) {
	s := &Schema{types: make(map[string]Type, len(types))}
	for _, t := range types {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("typeddata: type name required")
		}
		if _, exists := s.types[t.Name]; exists {
			return nil, fmt.Errorf("typeddata: duplicate type %q", t.Name)
		}
		s.types[t.Name] = t
	}
	for _, t := range s.types {
		for _, f := range t.Fields {
			if f.Kind != KindStruct {
				continue
			}
			if _, ok := s.types[f.StructType]; !ok {
				return nil, fmt.Errorf("typeddata: type %q references unknown struct %q", t.Name, f.StructType)
			}
		}
	}
	return s, nil
}

// MustSchema is NewSchema for statically declared schemas.
func MustSchema(types ...Type) *Schema {
	s, err := NewSchema(types...)
	if err != nil {
		panic(err)
	}
	return s
}

// dependencies collects the struct types referenced (transitively) by name,
// excluding name itself.
func (s *Schema) dependencies(name string, seen map[string]bool) {
	t, ok := s.types[name]
	if !ok {
		return
	}
	for _, f := range t.Fields {
		if f.Kind != KindStruct || seen[f.StructType] {
			continue
		}
		seen[f.StructType] = true
		s.dependencies(f.StructType, seen)
	}
}

func (s *Schema) encodeSingleType(name string) string {
	t := s.types[name]
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteByte('(')
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Kind.abiType(f.StructType))
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// EncodeType renders the canonical type string for name: the primary type
// followed by its transitive struct dependencies in alphabetical order.
func (s *Schema) EncodeType(name string) (string, error) {
	if _, ok := s.types[name]; !ok {
		return "", fmt.Errorf("typeddata: unknown type %q", name)
	}
	seen := make(map[string]bool)
	s.dependencies(name, seen)
	deps := make([]string, 0, len(seen))
	for dep := range seen {
		if dep == name {
			continue
		}
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	encoded := s.encodeSingleType(name)
	for _, dep := range deps {
		encoded += s.encodeSingleType(dep)
	}
	return encoded, nil
}

// TypeHash returns keccak256 of the canonical type string.
func (s *Schema) TypeHash(name string) ([32]byte, error) {
	encoded, err := s.EncodeType(name)
	if err != nil {
		return [32]byte{}, err
	}
	return keccak([]byte(encoded)), nil
}

// Hash computes the struct hash of a message instance: keccak256 of the type
// hash concatenated with each field encoded into a fixed 32-byte slot.
// Variable-length fields (string, bytes) contribute the hash of their content
// so the overall encoding stays fixed-width; nested structs contribute their
// own struct hash.
func (s *Schema) Hash(name string, values Values) ([32]byte, error) {
	t, ok := s.types[name]
	if !ok {
		return [32]byte{}, fmt.Errorf("typeddata: unknown type %q", name)
	}
	typeHash, err := s.TypeHash(name)
	if err != nil {
		return [32]byte{}, err
	}
	enc := make([]byte, 0, 32*(1+len(t.Fields)))
	enc = append(enc, typeHash[:]...)
	for _, f := range t.Fields {
		raw, present := values[f.Name]
		if !present {
			return [32]byte{}, fmt.Errorf("typeddata: %s: missing field %q", name, f.Name)
		}
		slot, err := s.encodeValue(f, raw)
		if err != nil {
			return [32]byte{}, fmt.Errorf("typeddata: %s.%s: %w", name, f.Name, err)
		}
		enc = append(enc, slot[:]...)
	}
	return keccak(enc), nil
}

func (s *Schema) encodeValue(f Field, raw interface{}) ([32]byte, error) {
	var slot [32]byte
	switch f.Kind {
	case KindAddress:
		addr, ok := raw.([20]byte)
		if !ok {
			return slot, fmt.Errorf("expected [20]byte address, got %T", raw)
		}
		copy(slot[12:], addr[:])
	case KindBytes32:
		h, ok := raw.([32]byte)
		if !ok {
			return slot, fmt.Errorf("expected [32]byte, got %T", raw)
		}
		slot = h
	case KindUint256, KindUint16, KindUint48:
		v, err := toBig(raw)
		if err != nil {
			return slot, err
		}
		if v.Sign() < 0 {
			return slot, fmt.Errorf("negative value")
		}
		if v.BitLen() > f.Kind.bitSize() {
			return slot, fmt.Errorf("value exceeds %d bits", f.Kind.bitSize())
		}
		v.FillBytes(slot[:])
	case KindString:
		str, ok := raw.(string)
		if !ok {
			return slot, fmt.Errorf("expected string, got %T", raw)
		}
		slot = keccak([]byte(str))
	case KindBytes:
		b, ok := raw.([]byte)
		if !ok {
			return slot, fmt.Errorf("expected []byte, got %T", raw)
		}
		slot = keccak(b)
	case KindStruct:
		nested, ok := raw.(Values)
		if !ok {
			return slot, fmt.Errorf("expected nested values, got %T", raw)
		}
		h, err := s.Hash(f.StructType, nested)
		if err != nil {
			return slot, err
		}
		slot = h
	default:
		return slot, fmt.Errorf("unsupported kind %d", f.Kind)
	}
	return slot, nil
}

func (k Kind) bitSize() int {
	switch k {
	case KindUint16:
		return 16
	case KindUint48:
		return 48
	default:
		return 256
	}
}

func toBig(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case *big.Int:
		if v == nil {
			return big.NewInt(0), nil
		}
		return new(big.Int).Set(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", raw)
	}
}

func keccak(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(data))
	return out
}
