package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/septivank/greenmove-rewards/internal/store"
)

// Account reads and decodes the record at addr outside any transition.
func (p *Program) Account(ctx context.Context, addr address.Address) (state.Account, error) {
	data, err := p.store.Get(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	return state.Decode(data)
}

func fetch[T state.Account](ctx context.Context, p *Program, addr address.Address) (T, error) {
	var zero T
	acct, err := p.Account(ctx, addr)
	if err != nil {
		return zero, err
	}
	typed, ok := acct.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %s", ErrAddressMismatch, addr, acct.Kind())
	}
	return typed, nil
}

func (p *Program) UserData(ctx context.Context, owner address.Address) (*state.UserData, error) {
	d, err := p.derive.UserData(owner)
	if err != nil {
		return nil, err
	}
	return fetch[*state.UserData](ctx, p, d.Address)
}

func (p *Program) Property(ctx context.Context, owner address.Address, propertyID string) (*state.Property, error) {
	d, err := p.derive.Property(owner, propertyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return fetch[*state.Property](ctx, p, d.Address)
}

func (p *Program) Meter(ctx context.Context, c state.Category, owner address.Address, propertyID, meterID string) (*state.Meter, error) {
	d, err := p.meterAddress(c, owner, propertyID, meterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	m, err := fetch[*state.Meter](ctx, p, d.Address)
	if err != nil {
		return nil, err
	}
	if m.Category != c {
		return nil, fmt.Errorf("%w: %s is a %s meter", ErrAddressMismatch, d.Address, m.Category)
	}
	return m, nil
}

func (p *Program) Reward(ctx context.Context, owner address.Address) (*state.UserReward, error) {
	d, err := p.derive.UserReward(owner)
	if err != nil {
		return nil, err
	}
	return fetch[*state.UserReward](ctx, p, d.Address)
}
