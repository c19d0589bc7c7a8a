package state

import (
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
)

// Sample is one ingested reading with the baseline it was judged against.
type Sample struct {
	Timestamp int64
	Quantity  uint64
	Baseline  uint64
}

// Meter is the shared layout of WaterMeter and EnergyMeter accounts. The
// category is carried by the account discriminator.
type Meter struct {
	Category      Category
	Owner         address.Address
	Property      address.Address
	Bump          uint8
	ExternalID    string
	FeedAddress   address.Address
	TotalConsumed uint64
	TotalSaved    uint64
	LastTimestamp int64
	History       History[Sample]
}

func NewMeter(c Category, owner, property address.Address, bump uint8, externalID string, feed address.Address) *Meter {
	return &Meter{
		Category:    c,
		Owner:       owner,
		Property:    property,
		Bump:        bump,
		ExternalID:  externalID,
		FeedAddress: feed,
		History:     NewHistory[Sample](HistoryCapacity),
	}
}

func (m *Meter) Kind() Kind {
	if m.Category == CategoryEnergy {
		return KindEnergyMeter
	}
	return KindWaterMeter
}

// Quantities returns the retained sample quantities, oldest first.
func (m *Meter) Quantities() []uint64 {
	items := m.History.Items()
	out := make([]uint64, len(items))
	for i, s := range items {
		out[i] = s.Quantity
	}
	return out
}

// Record adds a sample to the running totals and history. Totals include
// samples later evicted from history. Nothing is mutated on overflow.
func (m *Meter) Record(s Sample, saved uint64) error {
	consumed, err := checkedAdd(m.TotalConsumed, s.Quantity)
	if err != nil {
		return fmt.Errorf("total %s consumed: %w", m.Category, err)
	}
	totalSaved, err := checkedAdd(m.TotalSaved, saved)
	if err != nil {
		return fmt.Errorf("total %s saved: %w", m.Category, err)
	}
	m.TotalConsumed = consumed
	m.TotalSaved = totalSaved
	m.LastTimestamp = s.Timestamp
	m.History.Push(s)
	return nil
}

func (m *Meter) discriminator() (discriminator, error) {
	switch m.Category {
	case CategoryWater:
		return discWaterMeter, nil
	case CategoryEnergy:
		return discEnergyMeter, nil
	default:
		return discriminator{}, fmt.Errorf("%w: meter %s", ErrInvalidLayout, m.Category)
	}
}

func (m *Meter) MarshalBinary() ([]byte, error) {
	disc, err := m.discriminator()
	if err != nil {
		return nil, err
	}
	e := newEncoder(MeterSize)
	e.bytes(disc[:])
	e.addr(m.Owner)
	e.addr(m.Property)
	e.u8(m.Bump)
	if err := e.id(m.ExternalID); err != nil {
		return nil, err
	}
	e.addr(m.FeedAddress)
	e.u64(m.TotalConsumed)
	e.u64(m.TotalSaved)
	e.i64(m.LastTimestamp)

	samples := m.History.Items()
	if len(samples) > HistoryCapacity {
		return nil, fmt.Errorf("%w: %d samples", ErrInvalidLayout, len(samples))
	}
	e.u8(uint8(len(samples)))
	for _, s := range samples {
		e.i64(s.Timestamp)
		e.u64(s.Quantity)
		e.u64(s.Baseline)
	}
	return e.buf, nil
}

func (m *Meter) UnmarshalBinary(data []byte) error {
	if len(data) < discriminatorSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidLayout, len(data))
	}
	var disc discriminator
	copy(disc[:], data[:discriminatorSize])
	switch disc {
	case discWaterMeter:
		m.Category = CategoryWater
	case discEnergyMeter:
		m.Category = CategoryEnergy
	default:
		return ErrDiscriminator
	}

	d, err := newDecoder(data, MeterSize, disc)
	if err != nil {
		return err
	}
	m.Owner = d.addr()
	m.Property = d.addr()
	m.Bump = d.u8()
	if m.ExternalID, err = d.id(); err != nil {
		return err
	}
	m.FeedAddress = d.addr()
	m.TotalConsumed = d.u64()
	m.TotalSaved = d.u64()
	m.LastTimestamp = d.i64()

	n, err := d.count(HistoryCapacity)
	if err != nil {
		return err
	}
	m.History = NewHistory[Sample](HistoryCapacity)
	for i := 0; i < n; i++ {
		m.History.Push(Sample{Timestamp: d.i64(), Quantity: d.u64(), Baseline: d.u64()})
	}
	return nil
}
