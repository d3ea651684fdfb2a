package signature

import (
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when none of the authorization paths accept
// the supplied proof. It is a caller error and is never retried internally.
var ErrInvalidSignature = errors.New("signature: invalid signature")

// MagicValue is the acceptance value a delegated validator must return,
// mirroring the ERC-1271 convention used by contract-held identities.
var MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

const recoverableSigLength = 65

// Validator validates signatures on behalf of a principal that cannot produce
// recoverable key signatures itself. Returning MagicValue accepts the
// signature; any other value rejects it.
type Validator interface {
	IsValidSignature(digest [32]byte, sig []byte) [4]byte
}

// ValidatorRegistry resolves the delegated validator for an identity, if one
// is registered. Identities without a validator are treated as externally-held
// keys and go through standard signature recovery.
type ValidatorRegistry interface {
	Validator(identity [20]byte) (Validator, bool)
}

// Authorizer decides whether a signing hash was authorized by a claimed
// identity. Three paths exist, tried in order: implicit self-authorization
// (empty signature and the claimed identity is the caller), delegated
// validation for registered contract-like principals, and secp256k1 recovery
// for externally-held keys.
type Authorizer struct {
	validators ValidatorRegistry
}

// NewAuthorizer builds an authorizer. The registry may be nil, in which case
// every identity is treated as an externally-held key.
func NewAuthorizer(validators ValidatorRegistry) *Authorizer {
	return &Authorizer{validators: validators}
}

// Authorize reports whether signingHash was authorized by claimed. An empty
// (or all-zero) signature succeeds only when the claimed signer is literally
// the caller; no cryptographic proof is needed in that case.
func (a *Authorizer) Authorize(signingHash [32]byte, sig []byte, claimed, caller [20]byte) error {
	if emptySignature(sig) {
		if claimed == caller {
			return nil
		}
		return ErrInvalidSignature
	}
	if a != nil && a.validators != nil {
		if validator, ok := a.validators.Validator(claimed); ok {
			if validator.IsValidSignature(signingHash, sig) == MagicValue {
				return nil
			}
			return ErrInvalidSignature
		}
	}
	recovered, err := Recover(signingHash, sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if recovered != claimed {
		return ErrInvalidSignature
	}
	return nil
}

// Recover returns the identity that produced a 65-byte [R || S || V] signature
// over digest. Both V in {0,1} and the legacy {27,28} encoding are accepted.
func Recover(digest [32]byte, sig []byte) ([20]byte, error) {
	var zero [20]byte
	if len(sig) != recoverableSigLength {
		return zero, ErrInvalidSignature
	}
	normalized := make([]byte, recoverableSigLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pubKey, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return zero, ErrInvalidSignature
	}
	return [20]byte(ethcrypto.PubkeyToAddress(*pubKey)), nil
}

func emptySignature(sig []byte) bool {
	for _, b := range sig {
		if b != 0 {
			return false
		}
	}
	return true
}
