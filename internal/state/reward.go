package state

import (
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
)

// Redemption records one debit of the reward balance.
type Redemption struct {
	Sequence  uint64
	Amount    uint64
	Timestamp int64
}

// UserReward is the per-owner point balance. Balance always equals
// TotalEarned - TotalRedeemed.
type UserReward struct {
	Owner         address.Address
	Bump          uint8
	Balance       uint64
	TotalEarned   uint64
	TotalRedeemed uint64
	NextSequence  uint64
	Redemptions   History[Redemption]
}

func NewUserReward(owner address.Address, bump uint8) *UserReward {
	return &UserReward{
		Owner:       owner,
		Bump:        bump,
		Redemptions: NewHistory[Redemption](RedemptionCapacity),
	}
}

func (r *UserReward) Kind() Kind { return KindUserReward }

// Credit adds points to the balance.
func (r *UserReward) Credit(points uint64) error {
	if points == 0 {
		return nil
	}
	balance, err := checkedAdd(r.Balance, points)
	if err != nil {
		return fmt.Errorf("reward balance: %w", err)
	}
	earned, err := checkedAdd(r.TotalEarned, points)
	if err != nil {
		return fmt.Errorf("total earned: %w", err)
	}
	r.Balance = balance
	r.TotalEarned = earned
	return nil
}

// Redeem debits amount and appends a redemption record. A debit larger than
// the balance is rejected without any change.
func (r *UserReward) Redeem(amount uint64, timestamp int64) (Redemption, error) {
	if amount > r.Balance {
		return Redemption{}, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientPoints, r.Balance, amount)
	}
	redeemed, err := checkedAdd(r.TotalRedeemed, amount)
	if err != nil {
		return Redemption{}, fmt.Errorf("total redeemed: %w", err)
	}
	next, err := checkedAdd(r.NextSequence, 1)
	if err != nil {
		return Redemption{}, fmt.Errorf("redemption sequence: %w", err)
	}
	rec := Redemption{Sequence: r.NextSequence, Amount: amount, Timestamp: timestamp}
	r.Balance -= amount
	r.TotalRedeemed = redeemed
	r.NextSequence = next
	r.Redemptions.Push(rec)
	return rec, nil
}

func (r *UserReward) MarshalBinary() ([]byte, error) {
	e := newEncoder(UserRewardSize)
	e.bytes(discUserReward[:])
	e.addr(r.Owner)
	e.u8(r.Bump)
	e.u64(r.Balance)
	e.u64(r.TotalEarned)
	e.u64(r.TotalRedeemed)
	e.u64(r.NextSequence)

	records := r.Redemptions.Items()
	if len(records) > RedemptionCapacity {
		return nil, fmt.Errorf("%w: %d redemptions", ErrInvalidLayout, len(records))
	}
	e.u8(uint8(len(records)))
	for _, rec := range records {
		e.u64(rec.Sequence)
		e.u64(rec.Amount)
		e.i64(rec.Timestamp)
	}
	return e.buf, nil
}

func (r *UserReward) UnmarshalBinary(data []byte) error {
	d, err := newDecoder(data, UserRewardSize, discUserReward)
	if err != nil {
		return err
	}
	r.Owner = d.addr()
	r.Bump = d.u8()
	r.Balance = d.u64()
	r.TotalEarned = d.u64()
	r.TotalRedeemed = d.u64()
	r.NextSequence = d.u64()

	n, err := d.count(RedemptionCapacity)
	if err != nil {
		return err
	}
	r.Redemptions = NewHistory[Redemption](RedemptionCapacity)
	for i := 0; i < n; i++ {
		r.Redemptions.Push(Redemption{Sequence: d.u64(), Amount: d.u64(), Timestamp: d.i64()})
	}
	return nil
}
