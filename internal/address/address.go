// Package address implements program-derived account addresses.
//
// Every ledger account is located by hashing a role tag, the owner identity
// and, where applicable, external identifiers together with the program id.
// A bump byte is appended and decremented until the digest does not decode
// to a point on the ed25519 curve, so no private key can ever sign for a
// derived address.
package address

import (
	"bytes"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcutil/base58"
	"lukechampine.com/blake3"
)

const (
	// Size is the length of an address in bytes.
	Size = 32
	// MaxSeedLen bounds a single derivation seed.
	MaxSeedLen = 32
	// MaxSeeds bounds the number of seeds including the bump.
	MaxSeeds = 16
)

const pdaMarker = "ProgramDerivedAddress"

var (
	ErrSeedTooLong    = errors.New("address: seed too long")
	ErrTooManySeeds   = errors.New("address: too many seeds")
	ErrOnCurve        = errors.New("address: derived address is on curve")
	ErrNoViableBump   = errors.New("address: no viable bump seed")
	ErrInvalidAddress = errors.New("address: invalid address")
)

// Address identifies a ledger account or a signer.
type Address [Size]byte

// Zero is the all-zero address.
var Zero Address

// FromBytes copies b into an Address.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, Size, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Parse decodes the base58 text form of an address.
func Parse(s string) (Address, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return Zero, fmt.Errorf("%w: %q is not base58", ErrInvalidAddress, s)
	}
	return FromBytes(raw)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool {
	return a == Zero
}

// Compare orders addresses bytewise.
func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Create hashes length-prefixed seeds with the program id. It fails when
// the digest is a valid curve point.
func Create(programID Address, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Zero, ErrTooManySeeds
	}
	h := blake3.New(Size, nil)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Zero, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}
		h.Write([]byte{byte(len(seed))})
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out Address
	copy(out[:], h.Sum(nil))
	if onCurve(out) {
		return Zero, ErrOnCurve
	}
	return out, nil
}

// Find returns the first off-curve address searching bumps from 255 down,
// together with the bump that produced it.
func Find(programID Address, seeds ...[]byte) (Address, uint8, error) {
	if len(seeds) > MaxSeeds-1 {
		return Zero, 0, ErrTooManySeeds
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := Create(programID, withBump...)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}

func onCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
