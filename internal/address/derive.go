package address

// Tag namespaces a derivation by account role.
type Tag string

const (
	TagUserData    Tag = "user_data"
	TagProperty    Tag = "property"
	TagWaterMeter  Tag = "water_meter"
	TagEnergyMeter Tag = "energy_meter"
	TagUserReward  Tag = "user_reward"
)

// Derived is a program address together with its bump seed.
type Derived struct {
	Address Address
	Bump    uint8
}

// Deriver derives the accounts owned by one program.
type Deriver struct {
	programID Address
}

func NewDeriver(programID Address) Deriver {
	return Deriver{programID: programID}
}

func (d Deriver) ProgramID() Address {
	return d.programID
}

func (d Deriver) derive(tag Tag, owner Address, ids ...string) (Derived, error) {
	seeds := make([][]byte, 0, 2+len(ids))
	seeds = append(seeds, []byte(tag), owner[:])
	for _, id := range ids {
		seeds = append(seeds, []byte(id))
	}
	addr, bump, err := Find(d.programID, seeds...)
	if err != nil {
		return Derived{}, err
	}
	return Derived{Address: addr, Bump: bump}, nil
}

func (d Deriver) UserData(owner Address) (Derived, error) {
	return d.derive(TagUserData, owner)
}

func (d Deriver) Property(owner Address, propertyID string) (Derived, error) {
	return d.derive(TagProperty, owner, propertyID)
}

func (d Deriver) WaterMeter(owner Address, propertyID, meterID string) (Derived, error) {
	return d.derive(TagWaterMeter, owner, propertyID, meterID)
}

func (d Deriver) EnergyMeter(owner Address, propertyID, meterID string) (Derived, error) {
	return d.derive(TagEnergyMeter, owner, propertyID, meterID)
}

func (d Deriver) UserReward(owner Address) (Derived, error) {
	return d.derive(TagUserReward, owner)
}

// Set lists every account a registration touches. EnergyMeter is empty
// when energyID is empty.
type Set struct {
	UserData    Derived
	Property    Derived
	WaterMeter  Derived
	EnergyMeter Derived
	UserReward  Derived
}

// Accounts derives the full account set for one property.
func (d Deriver) Accounts(owner Address, propertyID, waterID, energyID string) (Set, error) {
	var (
		s   Set
		err error
	)
	if s.UserData, err = d.UserData(owner); err != nil {
		return Set{}, err
	}
	if s.Property, err = d.Property(owner, propertyID); err != nil {
		return Set{}, err
	}
	if s.WaterMeter, err = d.WaterMeter(owner, propertyID, waterID); err != nil {
		return Set{}, err
	}
	if energyID != "" {
		if s.EnergyMeter, err = d.EnergyMeter(owner, propertyID, energyID); err != nil {
			return Set{}, err
		}
	}
	if s.UserReward, err = d.UserReward(owner); err != nil {
		return Set{}, err
	}
	return s, nil
}
