package program

import (
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/state"
)

// Kind tags an instruction variant.
type Kind uint8

const (
	KindRegister Kind = iota + 1
	KindReportWaterUsage
	KindReportEnergyConsumption
	KindRedeemRewards
)

var kindNames = map[Kind]string{
	KindRegister:                "register",
	KindReportWaterUsage:        "report_water_usage",
	KindReportEnergyConsumption: "report_energy_consumption",
	KindRedeemRewards:           "redeem_rewards",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps an instruction name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown instruction %q", ErrInvalidInstruction, name)
}

// Category returns the meter category of a usage report.
func (k Kind) Category() (state.Category, bool) {
	switch k {
	case KindReportWaterUsage:
		return state.CategoryWater, true
	case KindReportEnergyConsumption:
		return state.CategoryEnergy, true
	default:
		return 0, false
	}
}

// Register creates the accounts of one property. The signer is the owner.
type Register struct {
	PropertyID  string
	WaterID     string
	EnergyID    string
	WaterFeed   address.Address
	EnergyFeed  address.Address
	TrackEnergy bool
}

// ReportUsage ingests one reading. The signer must be the meter's feed.
type ReportUsage struct {
	Owner      address.Address
	PropertyID string
	MeterID    string
	Quantity   uint64
	// Meter, when set, must equal the derived meter address.
	Meter address.Address
}

// Redeem debits the signer's reward balance.
type Redeem struct {
	Amount uint64
	// RewardAccount, when set, is loaded instead of the signer's derived
	// reward account and must be owned by the signer.
	RewardAccount address.Address
}

// Instruction is a tagged variant; exactly the field matching Kind is set.
type Instruction struct {
	Kind     Kind
	Register *Register
	Usage    *ReportUsage
	Redeem   *Redeem
}

func NewRegister(r Register) Instruction {
	return Instruction{Kind: KindRegister, Register: &r}
}

func NewReportUsage(c state.Category, r ReportUsage) Instruction {
	kind := KindReportWaterUsage
	if c == state.CategoryEnergy {
		kind = KindReportEnergyConsumption
	}
	return Instruction{Kind: kind, Usage: &r}
}

func NewRedeem(r Redeem) Instruction {
	return Instruction{Kind: KindRedeemRewards, Redeem: &r}
}

// Env is the execution context supplied by the host ledger.
type Env struct {
	// ID identifies the instruction for replay protection. Empty disables it.
	ID string
	// Signer is the verified signing identity of the caller.
	Signer address.Address
	// Timestamp is the ledger clock in unix seconds.
	Timestamp int64
}

// Receipt summarizes an applied transition.
type Receipt struct {
	Kind         Kind
	Accounts     []address.Address
	Category     state.Category
	Quantity     uint64
	Total        uint64
	Points       uint64
	ReductionBps uint64
	Baseline     uint64
	Balance      uint64
	Redemption   *state.Redemption
}
