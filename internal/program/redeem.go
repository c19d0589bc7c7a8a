package program

import (
	"context"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/septivank/greenmove-rewards/internal/store"
)

func (p *Program) redeem(ctx context.Context, env Env, args Redeem) (*Receipt, error) {
	if args.Amount == 0 {
		return nil, fmt.Errorf("%w: redeem amount must be positive", ErrInvalidAmount)
	}
	target := args.RewardAccount
	if target.IsZero() {
		derived, err := p.derive.UserReward(env.Signer)
		if err != nil {
			return nil, err
		}
		target = derived.Address
	}

	keys := []address.Address{target}
	receipt := &Receipt{Accounts: keys}
	err := p.transition(ctx, env, keys, func(tx store.Tx) error {
		rewards, err := load[state.UserReward](tx, target, state.KindUserReward)
		if err != nil {
			return err
		}
		if rewards.Owner != env.Signer {
			return fmt.Errorf("%w: signer %s does not own reward account %s", ErrUnauthorized, env.Signer, target)
		}
		rec, err := rewards.Redeem(args.Amount, env.Timestamp)
		if err != nil {
			return err
		}
		if err := put(tx, target, rewards); err != nil {
			return err
		}
		receipt.Balance = rewards.Balance
		receipt.Redemption = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
