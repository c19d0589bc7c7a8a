package state

import (
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
)

// UserData links an owner to their properties and single reward account.
type UserData struct {
	Owner            address.Address
	Bump             uint8
	PropertyAccounts []address.Address
	RewardAccount    address.Address
}

func NewUserData(owner address.Address, bump uint8, reward address.Address) *UserData {
	return &UserData{Owner: owner, Bump: bump, RewardAccount: reward}
}

func (u *UserData) Kind() Kind { return KindUserData }

func (u *UserData) HasProperty(addr address.Address) bool {
	return contains(u.PropertyAccounts, addr)
}

// AddProperty appends a property address; the list is unique and bounded.
func (u *UserData) AddProperty(addr address.Address) error {
	if u.HasProperty(addr) {
		return fmt.Errorf("%w: property %s", ErrDuplicateAccount, addr)
	}
	if len(u.PropertyAccounts) >= MaxPropertiesPerUser {
		return fmt.Errorf("%w: %d properties", ErrCapacityExceeded, MaxPropertiesPerUser)
	}
	u.PropertyAccounts = append(u.PropertyAccounts, addr)
	return nil
}

func (u *UserData) MarshalBinary() ([]byte, error) {
	e := newEncoder(UserDataSize)
	e.bytes(discUserData[:])
	e.addr(u.Owner)
	e.u8(u.Bump)
	if len(u.PropertyAccounts) > MaxPropertiesPerUser {
		return nil, fmt.Errorf("%w: %d properties", ErrInvalidLayout, len(u.PropertyAccounts))
	}
	e.u8(uint8(len(u.PropertyAccounts)))
	for _, p := range u.PropertyAccounts {
		e.addr(p)
	}
	e.skip((MaxPropertiesPerUser - len(u.PropertyAccounts)) * address.Size)
	e.addr(u.RewardAccount)
	return e.buf, nil
}

func (u *UserData) UnmarshalBinary(data []byte) error {
	d, err := newDecoder(data, UserDataSize, discUserData)
	if err != nil {
		return err
	}
	u.Owner = d.addr()
	u.Bump = d.u8()
	n, err := d.count(MaxPropertiesPerUser)
	if err != nil {
		return err
	}
	u.PropertyAccounts = make([]address.Address, n)
	for i := range u.PropertyAccounts {
		u.PropertyAccounts[i] = d.addr()
	}
	d.skip((MaxPropertiesPerUser - n) * address.Size)
	u.RewardAccount = d.addr()
	return nil
}
