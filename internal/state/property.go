package state

import (
	"fmt"

	"github.com/septivank/greenmove-rewards/internal/address"
)

// Property holds the meter lists and per-category baselines of one
// registered property.
type Property struct {
	Owner          address.Address
	Bump           uint8
	ExternalID     string
	WaterMeters    []address.Address
	EnergyMeters   []address.Address
	WaterBaseline  uint64
	EnergyBaseline uint64
}

func NewProperty(owner address.Address, bump uint8, externalID string, waterBaseline, energyBaseline uint64) *Property {
	return &Property{
		Owner:          owner,
		Bump:           bump,
		ExternalID:     externalID,
		WaterBaseline:  waterBaseline,
		EnergyBaseline: energyBaseline,
	}
}

func (p *Property) Kind() Kind { return KindProperty }

func (p *Property) Meters(c Category) []address.Address {
	if c == CategoryEnergy {
		return p.EnergyMeters
	}
	return p.WaterMeters
}

func (p *Property) HasMeter(c Category, addr address.Address) bool {
	return contains(p.Meters(c), addr)
}

func (p *Property) AddMeter(c Category, addr address.Address) error {
	list := p.Meters(c)
	if contains(list, addr) {
		return fmt.Errorf("%w: %s meter %s", ErrDuplicateAccount, c, addr)
	}
	if len(list) >= MaxMetersPerProperty {
		return fmt.Errorf("%w: %d %s meters", ErrCapacityExceeded, MaxMetersPerProperty, c)
	}
	if c == CategoryEnergy {
		p.EnergyMeters = append(p.EnergyMeters, addr)
	} else {
		p.WaterMeters = append(p.WaterMeters, addr)
	}
	return nil
}

func (p *Property) Baseline(c Category) uint64 {
	if c == CategoryEnergy {
		return p.EnergyBaseline
	}
	return p.WaterBaseline
}

func (p *Property) SetBaseline(c Category, v uint64) {
	if c == CategoryEnergy {
		p.EnergyBaseline = v
		return
	}
	p.WaterBaseline = v
}

func (p *Property) MarshalBinary() ([]byte, error) {
	e := newEncoder(PropertySize)
	e.bytes(discProperty[:])
	e.addr(p.Owner)
	e.u8(p.Bump)
	if err := e.id(p.ExternalID); err != nil {
		return nil, err
	}
	if err := e.addrs(p.WaterMeters, MaxMetersPerProperty); err != nil {
		return nil, err
	}
	if err := e.addrs(p.EnergyMeters, MaxMetersPerProperty); err != nil {
		return nil, err
	}
	e.u64(p.WaterBaseline)
	e.u64(p.EnergyBaseline)
	return e.buf, nil
}

func (p *Property) UnmarshalBinary(data []byte) error {
	d, err := newDecoder(data, PropertySize, discProperty)
	if err != nil {
		return err
	}
	p.Owner = d.addr()
	p.Bump = d.u8()
	if p.ExternalID, err = d.id(); err != nil {
		return err
	}
	if p.WaterMeters, err = d.addrs(MaxMetersPerProperty); err != nil {
		return err
	}
	if p.EnergyMeters, err = d.addrs(MaxMetersPerProperty); err != nil {
		return err
	}
	p.WaterBaseline = d.u64()
	p.EnergyBaseline = d.u64()
	return nil
}
