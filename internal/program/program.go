// Package program implements the conservation-rewards instruction handlers.
//
// Every instruction is a single transition over a fixed set of derived
// accounts: the handler derives the addresses, locks them through the
// store, loads and validates each record, mutates copies and writes them
// back. Any error aborts the transition with no writes.
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/anomaly"
	"github.com/septivank/greenmove-rewards/internal/reward"
	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/septivank/greenmove-rewards/internal/store"
	"go.uber.org/zap"
)

// Program executes instructions against a Store.
type Program struct {
	derive   address.Deriver
	store    store.Store
	engine   *reward.Engine
	detector *anomaly.Detector
	logger   *zap.Logger
}

// New creates a program. A nil detector disables the spike guard.
func New(programID address.Address, st store.Store, engine *reward.Engine, detector *anomaly.Detector, logger *zap.Logger) *Program {
	if engine == nil {
		engine = reward.DefaultEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{
		derive:   address.NewDeriver(programID),
		store:    st,
		engine:   engine,
		detector: detector,
		logger:   logger,
	}
}

// Deriver exposes the address scheme so clients can locate accounts.
func (p *Program) Deriver() address.Deriver {
	return p.derive
}

// Execute routes an instruction to its handler.
func (p *Program) Execute(ctx context.Context, env Env, ix Instruction) (*Receipt, error) {
	var (
		receipt *Receipt
		err     error
	)
	switch ix.Kind {
	case KindRegister:
		if ix.Register == nil {
			return nil, fmt.Errorf("%w: missing register arguments", ErrInvalidInstruction)
		}
		receipt, err = p.register(ctx, env, *ix.Register)
	case KindReportWaterUsage, KindReportEnergyConsumption:
		if ix.Usage == nil {
			return nil, fmt.Errorf("%w: missing usage arguments", ErrInvalidInstruction)
		}
		category, _ := ix.Kind.Category()
		receipt, err = p.reportUsage(ctx, env, category, *ix.Usage)
	case KindRedeemRewards:
		if ix.Redeem == nil {
			return nil, fmt.Errorf("%w: missing redeem arguments", ErrInvalidInstruction)
		}
		receipt, err = p.redeem(ctx, env, *ix.Redeem)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInstruction, ix.Kind)
	}

	if err != nil {
		p.logger.Info("instruction rejected",
			zap.String("instruction", ix.Kind.String()),
			zap.String("instruction_id", env.ID),
			zap.String("signer", env.Signer.String()),
			zap.String("code", Code(err)),
			zap.Error(err),
		)
		return nil, err
	}
	receipt.Kind = ix.Kind
	p.logger.Debug("instruction applied",
		zap.String("instruction", ix.Kind.String()),
		zap.String("instruction_id", env.ID),
		zap.Int("accounts", len(receipt.Accounts)),
	)
	return receipt, nil
}

// transition locks keys (plus the instruction id) and runs fn. Replayed
// instruction ids are rejected inside the same atomic commit.
func (p *Program) transition(ctx context.Context, env Env, keys []address.Address, fn func(store.Tx) error) error {
	if env.ID != "" {
		keys = append(keys, store.InstructionKey(env.ID))
	}
	return p.store.Update(ctx, keys, func(tx store.Tx) error {
		if env.ID != "" {
			if err := tx.MarkProcessed(env.ID); err != nil {
				if errors.Is(err, store.ErrAlreadyProcessed) {
					return fmt.Errorf("%w: %s", ErrDuplicateInstruction, env.ID)
				}
				return err
			}
		}
		return fn(tx)
	})
}

func validateID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidIdentifier, field)
	}
	if len(id) > state.MaxIDLen {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidIdentifier, field, state.MaxIDLen)
	}
	return nil
}

func load[T any, PT interface {
	*T
	UnmarshalBinary([]byte) error
}](tx store.Tx, addr address.Address, kind state.Kind) (PT, error) {
	data, err := tx.Get(addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrAccountNotFound, kind, addr)
	}
	if err != nil {
		return nil, err
	}
	acct := PT(new(T))
	if err := acct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrAddressMismatch, kind, addr, err)
	}
	return acct, nil
}

func put(tx store.Tx, addr address.Address, acct state.Account) error {
	data, err := acct.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", acct.Kind(), addr, err)
	}
	tx.Put(addr, data)
	return nil
}

func meterKind(c state.Category) state.Kind {
	if c == state.CategoryEnergy {
		return state.KindEnergyMeter
	}
	return state.KindWaterMeter
}

func (p *Program) meterAddress(c state.Category, owner address.Address, propertyID, meterID string) (address.Derived, error) {
	if c == state.CategoryEnergy {
		return p.derive.EnergyMeter(owner, propertyID, meterID)
	}
	return p.derive.WaterMeter(owner, propertyID, meterID)
}
