package service

import "time"

// IngestMessage represents the incoming instruction from RabbitMQ
type IngestMessage struct {
	RequestID     string           `json:"request_id"`
	InstructionID string           `json:"instruction_id"`
	Instruction   string           `json:"instruction"`
	Signer        string           `json:"signer"`
	ReceivedAt    time.Time        `json:"received_at"`
	Register      *RegisterPayload `json:"register,omitempty"`
	Usage         *UsagePayload    `json:"usage,omitempty"`
	Redeem        *RedeemPayload   `json:"redeem,omitempty"`
}

// RegisterPayload carries the arguments of a registration
type RegisterPayload struct {
	PropertyID    string `json:"property_id"`
	WaterMeterID  string `json:"water_meter_id"`
	EnergyMeterID string `json:"energy_meter_id"`
	WaterFeed     string `json:"water_feed"`
	EnergyFeed    string `json:"energy_feed"`
	TrackEnergy   bool   `json:"track_energy"`
}

// UsagePayload is one feed reading. Name is the meter's external id and
// Data the consumed quantity.
type UsagePayload struct {
	Owner      string `json:"owner"`
	PropertyID string `json:"property_id"`
	Meter      string `json:"meter,omitempty"`
	Date       string `json:"date"`
	Data       string `json:"data"`
	Name       string `json:"name"`
}

// RedeemPayload carries the arguments of a redemption
type RedeemPayload struct {
	Amount        uint64 `json:"amount"`
	RewardAccount string `json:"reward_account,omitempty"`
}
