package telemetry

import "time"

// Reading is one immutable telemetry sample for a plant. An empty
// ChannelID means the sample is a plant-level aggregate rather than a
// per-channel measurement.
type Reading struct {
	PlantID   string    `json:"plant_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	At        time.Time `json:"timestamp"`
	PowerW    float64   `json:"power_w"`
	EnergyKWh float64   `json:"energy_kwh"`
}
