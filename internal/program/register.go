package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/septivank/greenmove-rewards/internal/store"
)

func (p *Program) register(ctx context.Context, env Env, args Register) (*Receipt, error) {
	if err := validateID("property id", args.PropertyID); err != nil {
		return nil, err
	}
	if err := validateID("water meter id", args.WaterID); err != nil {
		return nil, err
	}
	energyID := ""
	if args.TrackEnergy {
		if err := validateID("energy meter id", args.EnergyID); err != nil {
			return nil, err
		}
		energyID = args.EnergyID
	} else if len(args.EnergyID) > state.MaxIDLen {
		return nil, fmt.Errorf("%w: energy meter id exceeds %d bytes", ErrInvalidIdentifier, state.MaxIDLen)
	}

	if args.WaterFeed.IsZero() {
		return nil, fmt.Errorf("%w: water feed is unset", ErrInvalidFeedAddress)
	}
	if args.TrackEnergy && args.EnergyFeed.IsZero() {
		return nil, fmt.Errorf("%w: energy feed is unset", ErrInvalidFeedAddress)
	}

	owner := env.Signer
	set, err := p.derive.Accounts(owner, args.PropertyID, args.WaterID, energyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}

	keys := []address.Address{
		set.UserData.Address,
		set.Property.Address,
		set.WaterMeter.Address,
		set.UserReward.Address,
	}
	if args.TrackEnergy {
		keys = append(keys, set.EnergyMeter.Address)
	}

	receipt := &Receipt{Accounts: keys}
	err = p.transition(ctx, env, keys, func(tx store.Tx) error {
		for _, fresh := range []address.Derived{set.Property, set.WaterMeter, set.EnergyMeter} {
			if fresh.Address.IsZero() {
				continue
			}
			exists, err := tx.Exists(fresh.Address)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrAccountAlreadyInitialized, fresh.Address)
			}
		}

		user, err := p.userDataOrNew(tx, owner, set)
		if err != nil {
			return err
		}
		if err := user.AddProperty(set.Property.Address); err != nil {
			if errors.Is(err, state.ErrDuplicateAccount) {
				return fmt.Errorf("%w: %v", ErrAccountAlreadyInitialized, err)
			}
			return err
		}

		rewards, err := p.userRewardOrNew(tx, owner, set.UserReward)
		if err != nil {
			return err
		}
		receipt.Balance = rewards.Balance

		property := state.NewProperty(owner, set.Property.Bump, args.PropertyID,
			p.engine.Policy(state.CategoryWater).DefaultBaseline,
			p.engine.Policy(state.CategoryEnergy).DefaultBaseline,
		)
		water := state.NewMeter(state.CategoryWater, owner, set.Property.Address,
			set.WaterMeter.Bump, args.WaterID, args.WaterFeed)
		if err := property.AddMeter(state.CategoryWater, set.WaterMeter.Address); err != nil {
			return err
		}
		if err := put(tx, set.WaterMeter.Address, water); err != nil {
			return err
		}
		if args.TrackEnergy {
			energy := state.NewMeter(state.CategoryEnergy, owner, set.Property.Address,
				set.EnergyMeter.Bump, energyID, args.EnergyFeed)
			if err := property.AddMeter(state.CategoryEnergy, set.EnergyMeter.Address); err != nil {
				return err
			}
			if err := put(tx, set.EnergyMeter.Address, energy); err != nil {
				return err
			}
		}

		if err := put(tx, set.Property.Address, property); err != nil {
			return err
		}
		if err := put(tx, set.UserData.Address, user); err != nil {
			return err
		}
		return put(tx, set.UserReward.Address, rewards)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// userDataOrNew loads the owner's UserData or initializes it. An existing
// record must point at the derived reward account.
func (p *Program) userDataOrNew(tx store.Tx, owner address.Address, set address.Set) (*state.UserData, error) {
	user, err := load[state.UserData](tx, set.UserData.Address, state.KindUserData)
	if errors.Is(err, ErrAccountNotFound) {
		return state.NewUserData(owner, set.UserData.Bump, set.UserReward.Address), nil
	}
	if err != nil {
		return nil, err
	}
	if user.Owner != owner || user.RewardAccount != set.UserReward.Address {
		return nil, fmt.Errorf("%w: user data %s", ErrAddressMismatch, set.UserData.Address)
	}
	return user, nil
}

func (p *Program) userRewardOrNew(tx store.Tx, owner address.Address, derived address.Derived) (*state.UserReward, error) {
	rewards, err := load[state.UserReward](tx, derived.Address, state.KindUserReward)
	if errors.Is(err, ErrAccountNotFound) {
		return state.NewUserReward(owner, derived.Bump), nil
	}
	if err != nil {
		return nil, err
	}
	if rewards.Owner != owner {
		return nil, fmt.Errorf("%w: reward account %s", ErrAddressMismatch, derived.Address)
	}
	return rewards, nil
}
