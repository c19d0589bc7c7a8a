package address

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOwner(b byte) Address {
	var a Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestFind_Deterministic(t *testing.T) {
	program := testOwner(7)
	first, bump1, err := Find(program, []byte("user_data"), []byte("owner"))
	require.NoError(t, err)
	second, bump2, err := Find(program, []byte("user_data"), []byte("owner"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, bump1, bump2)
	assert.False(t, onCurve(first))
}

func TestFind_ProgramIDNamespaces(t *testing.T) {
	a, _, err := Find(testOwner(1), []byte("seed"))
	require.NoError(t, err)
	b, _, err := Find(testOwner(2), []byte("seed"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreate_SeedTooLong(t *testing.T) {
	_, err := Create(testOwner(1), bytes.Repeat([]byte{'x'}, MaxSeedLen+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSeedTooLong))
}

func TestFind_TooManySeeds(t *testing.T) {
	seeds := make([][]byte, MaxSeeds)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, _, err := Find(testOwner(1), seeds...)
	assert.ErrorIs(t, err, ErrTooManySeeds)
}

func TestDeriver_RolesNeverCollide(t *testing.T) {
	d := NewDeriver(testOwner(9))
	owner := testOwner(3)

	set, err := d.Accounts(owner, "property123", "water123", "energy123")
	require.NoError(t, err)

	seen := map[Address]string{}
	for name, derived := range map[string]Derived{
		"user_data":    set.UserData,
		"property":     set.Property,
		"water_meter":  set.WaterMeter,
		"energy_meter": set.EnergyMeter,
		"user_reward":  set.UserReward,
	} {
		prev, dup := seen[derived.Address]
		require.False(t, dup, "%s collides with %s", name, prev)
		seen[derived.Address] = name
	}
}

func TestDeriver_SameIDDifferentRole(t *testing.T) {
	d := NewDeriver(testOwner(9))
	owner := testOwner(3)

	water, err := d.WaterMeter(owner, "p1", "m1")
	require.NoError(t, err)
	energy, err := d.EnergyMeter(owner, "p1", "m1")
	require.NoError(t, err)
	assert.NotEqual(t, water.Address, energy.Address)
}

func TestDeriver_OwnersDisjoint(t *testing.T) {
	d := NewDeriver(testOwner(9))
	a, err := d.Accounts(testOwner(1), "property123", "water123", "")
	require.NoError(t, err)
	b, err := d.Accounts(testOwner(2), "property123", "water123", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.UserData.Address, b.UserData.Address)
	assert.NotEqual(t, a.Property.Address, b.Property.Address)
	assert.NotEqual(t, a.WaterMeter.Address, b.WaterMeter.Address)
	assert.NotEqual(t, a.UserReward.Address, b.UserReward.Address)
	assert.True(t, a.EnergyMeter.Address.IsZero())
}

func TestParse_RoundTrip(t *testing.T) {
	d := NewDeriver(testOwner(9))
	derived, err := d.UserReward(testOwner(4))
	require.NoError(t, err)

	parsed, err := Parse(derived.Address.String())
	require.NoError(t, err)
	assert.Equal(t, derived.Address, parsed)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Parse("0OIl")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Parse("3mJr7AoUXx2Wqd")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddress_TextMarshaling(t *testing.T) {
	original := testOwner(5)
	text, err := original.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, original, decoded)
}

func TestDeriver_SplitIDsDoNotCollide(t *testing.T) {
	d := NewDeriver(testOwner(9))
	owner := testOwner(3)

	first, err := d.WaterMeter(owner, "a", "bc")
	require.NoError(t, err)
	second, err := d.WaterMeter(owner, "ab", "c")
	require.NoError(t, err)
	assert.NotEqual(t, first.Address, second.Address)

	p1, err := d.Property(owner, "ab")
	require.NoError(t, err)
	p2, err := d.Property(owner, "a")
	require.NoError(t, err)
	assert.NotEqual(t, p1.Address, p2.Address)
}

func TestFind_SeedBoundariesMatter(t *testing.T) {
	program := testOwner(4)
	joined, _, err := Find(program, []byte("abc"))
	require.NoError(t, err)
	split, _, err := Find(program, []byte("a"), []byte("bc"))
	require.NoError(t, err)
	assert.NotEqual(t, joined, split)
}
