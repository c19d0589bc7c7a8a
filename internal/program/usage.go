package program

import (
	"context"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/septivank/greenmove-rewards/internal/store"
)

// usageAccounts are the records a usage report reads and writes.
type usageAccounts struct {
	user     address.Derived
	property address.Derived
	meter    address.Derived
	reward   address.Derived
}

func (p *Program) usageAccounts(c state.Category, args ReportUsage) (usageAccounts, error) {
	var (
		a   usageAccounts
		err error
	)
	if a.user, err = p.derive.UserData(args.Owner); err != nil {
		return a, err
	}
	if a.property, err = p.derive.Property(args.Owner, args.PropertyID); err != nil {
		return a, err
	}
	if a.meter, err = p.meterAddress(c, args.Owner, args.PropertyID, args.MeterID); err != nil {
		return a, err
	}
	if a.reward, err = p.derive.UserReward(args.Owner); err != nil {
		return a, err
	}
	return a, nil
}

func (p *Program) reportUsage(ctx context.Context, env Env, c state.Category, args ReportUsage) (*Receipt, error) {
	if err := validateID("property id", args.PropertyID); err != nil {
		return nil, err
	}
	if err := validateID(c.String()+" meter id", args.MeterID); err != nil {
		return nil, err
	}
	accts, err := p.usageAccounts(c, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	if !args.Meter.IsZero() && args.Meter != accts.meter.Address {
		return nil, fmt.Errorf("%w: %s meter %s, derived %s", ErrAddressMismatch, c, args.Meter, accts.meter.Address)
	}

	keys := []address.Address{accts.user.Address, accts.property.Address, accts.meter.Address, accts.reward.Address}
	receipt := &Receipt{Accounts: keys, Category: c, Quantity: args.Quantity}

	err = p.transition(ctx, env, keys, func(tx store.Tx) error {
		meter, err := load[state.Meter](tx, accts.meter.Address, meterKind(c))
		if err != nil {
			return err
		}
		if meter.Category != c || meter.Owner != args.Owner || meter.Property != accts.property.Address {
			return fmt.Errorf("%w: %s meter %s", ErrAddressMismatch, c, accts.meter.Address)
		}
		if env.Signer != meter.FeedAddress {
			return fmt.Errorf("%w: signer %s is not the feed of %s meter %s", ErrUnauthorized, env.Signer, c, accts.meter.Address)
		}

		property, err := load[state.Property](tx, accts.property.Address, state.KindProperty)
		if err != nil {
			return err
		}
		if property.Owner != args.Owner || !property.HasMeter(c, accts.meter.Address) {
			return fmt.Errorf("%w: property %s does not list %s meter %s", ErrAddressMismatch, accts.property.Address, c, accts.meter.Address)
		}
		user, err := load[state.UserData](tx, accts.user.Address, state.KindUserData)
		if err != nil {
			return err
		}
		if !user.HasProperty(accts.property.Address) || user.RewardAccount != accts.reward.Address {
			return fmt.Errorf("%w: user data %s", ErrAddressMismatch, accts.user.Address)
		}
		rewards, err := load[state.UserReward](tx, accts.reward.Address, state.KindUserReward)
		if err != nil {
			return err
		}
		if rewards.Owner != args.Owner {
			return fmt.Errorf("%w: reward account %s", ErrAddressMismatch, accts.reward.Address)
		}

		if meter.History.Len() > 0 && env.Timestamp < meter.LastTimestamp {
			return fmt.Errorf("%w: %d before %d", ErrTimestampsOutOfOrder, env.Timestamp, meter.LastTimestamp)
		}
		history := meter.Quantities()
		if spike, reason := p.detector.DetectAnomaly(args.Quantity, history); spike {
			return fmt.Errorf("%w: %s", ErrExcessiveConsumption, reason)
		}

		baseline := property.Baseline(c)
		res := p.engine.Compute(c, args.Quantity, baseline, append(history, args.Quantity))

		if err := meter.Record(state.Sample{Timestamp: env.Timestamp, Quantity: args.Quantity, Baseline: baseline}, res.Saved); err != nil {
			return err
		}
		if err := rewards.Credit(res.Points); err != nil {
			return err
		}
		property.SetBaseline(c, res.Baseline)

		if err := put(tx, accts.meter.Address, meter); err != nil {
			return err
		}
		if err := put(tx, accts.property.Address, property); err != nil {
			return err
		}
		if err := put(tx, accts.reward.Address, rewards); err != nil {
			return err
		}

		receipt.Total = meter.TotalConsumed
		receipt.Points = res.Points
		receipt.ReductionBps = res.ReductionBps
		receipt.Baseline = res.Baseline
		receipt.Balance = rewards.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
