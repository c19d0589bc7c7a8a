package httpapi

import (
	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/state"
)

// AccountResponse wraps a decoded ledger account.
type AccountResponse struct {
	Address address.Address `json:"address"`
	Kind    state.Kind      `json:"kind"`
	Data    any             `json:"data"`
}

type userDataView struct {
	Owner            address.Address   `json:"owner"`
	Bump             uint8             `json:"bump"`
	PropertyAccounts []address.Address `json:"property_accounts"`
	RewardAccount    address.Address   `json:"reward_account"`
}

type propertyView struct {
	Owner          address.Address   `json:"owner"`
	Bump           uint8             `json:"bump"`
	PropertyID     string            `json:"property_id"`
	WaterMeters    []address.Address `json:"water_meter_accounts"`
	EnergyMeters   []address.Address `json:"energy_meter_accounts"`
	WaterBaseline  uint64            `json:"water_baseline"`
	EnergyBaseline uint64            `json:"energy_baseline"`
}

type sampleView struct {
	Timestamp int64  `json:"timestamp"`
	Quantity  uint64 `json:"quantity"`
	Baseline  uint64 `json:"baseline"`
}

type meterView struct {
	Category      string          `json:"category"`
	Owner         address.Address `json:"owner"`
	Property      address.Address `json:"property"`
	Bump          uint8           `json:"bump"`
	MeterID       string          `json:"meter_id"`
	FeedAddress   address.Address `json:"depin_feed_address"`
	TotalConsumed uint64          `json:"total_consumed"`
	TotalSaved    uint64          `json:"total_saved"`
	LastTimestamp int64           `json:"last_timestamp"`
	History       []sampleView    `json:"history"`
}

type redemptionView struct {
	Sequence  uint64 `json:"sequence"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

type rewardView struct {
	Owner         address.Address  `json:"owner"`
	Bump          uint8            `json:"bump"`
	Balance       uint64           `json:"total_reward_balance"`
	TotalEarned   uint64           `json:"total_earned"`
	TotalRedeemed uint64           `json:"total_redeemed"`
	NextSequence  uint64           `json:"next_sequence"`
	Redemptions   []redemptionView `json:"redemption_history"`
}

func newAccountResponse(addr address.Address, acct state.Account) AccountResponse {
	resp := AccountResponse{Address: addr, Kind: acct.Kind()}
	switch a := acct.(type) {
	case *state.UserData:
		resp.Data = userDataView{
			Owner:            a.Owner,
			Bump:             a.Bump,
			PropertyAccounts: nonNil(a.PropertyAccounts),
			RewardAccount:    a.RewardAccount,
		}
	case *state.Property:
		resp.Data = propertyView{
			Owner:          a.Owner,
			Bump:           a.Bump,
			PropertyID:     a.ExternalID,
			WaterMeters:    nonNil(a.WaterMeters),
			EnergyMeters:   nonNil(a.EnergyMeters),
			WaterBaseline:  a.WaterBaseline,
			EnergyBaseline: a.EnergyBaseline,
		}
	case *state.Meter:
		v := meterView{
			Category:      a.Category.String(),
			Owner:         a.Owner,
			Property:      a.Property,
			Bump:          a.Bump,
			MeterID:       a.ExternalID,
			FeedAddress:   a.FeedAddress,
			TotalConsumed: a.TotalConsumed,
			TotalSaved:    a.TotalSaved,
			LastTimestamp: a.LastTimestamp,
			History:       []sampleView{},
		}
		for _, s := range a.History.Items() {
			v.History = append(v.History, sampleView(s))
		}
		resp.Data = v
	case *state.UserReward:
		v := rewardView{
			Owner:         a.Owner,
			Bump:          a.Bump,
			Balance:       a.Balance,
			TotalEarned:   a.TotalEarned,
			TotalRedeemed: a.TotalRedeemed,
			NextSequence:  a.NextSequence,
			Redemptions:   []redemptionView{},
		}
		for _, r := range a.Redemptions.Items() {
			v.Redemptions = append(v.Redemptions, redemptionView(r))
		}
		resp.Data = v
	}
	return resp
}

func nonNil(list []address.Address) []address.Address {
	if list == nil {
		return []address.Address{}
	}
	return list
}

// DerivedView is a derived address with its bump seed.
type DerivedView struct {
	Address address.Address `json:"address"`
	Bump    uint8           `json:"bump"`
}

// AddressesResponse lists the derived accounts of an owner.
type AddressesResponse struct {
	ProgramID   address.Address `json:"program_id"`
	Owner       address.Address `json:"owner"`
	UserData    DerivedView     `json:"user_data"`
	UserReward  DerivedView     `json:"user_reward"`
	Property    *DerivedView    `json:"property,omitempty"`
	WaterMeter  *DerivedView    `json:"water_meter,omitempty"`
	EnergyMeter *DerivedView    `json:"energy_meter,omitempty"`
}

func derivedView(d address.Derived) DerivedView {
	return DerivedView{Address: d.Address, Bump: d.Bump}
}

func optionalView(d address.Derived) *DerivedView {
	v := derivedView(d)
	return &v
}
