package masterdata

const (
	// ChannelTypeTotal marks the aggregate output channel of an inverter.
	// It is a sum of the string channels, not a peer of them.
	ChannelTypeTotal = "total"
	// ChannelTypeString marks an individual string/MPPT input.
	ChannelTypeString = "string"
)

// Channel is a sub-unit of generation within a plant, either an
// inverter string/MPPT input or the aggregate total channel.
type Channel struct {
	ID          string  `json:"id"`
	PlantID     string  `json:"plant_id"`
	DeviceID    string  `json:"device_id"`
	Name        string  `json:"name"`
	ChannelType string  `json:"channel_type"`
	CapacityWp  float64 `json:"installed_capacity_wp"`
	Active      bool    `json:"is_active"`
}

// IsAggregate reports whether the channel is the total output channel.
func (c Channel) IsAggregate() bool {
	return c.ChannelType == ChannelTypeTotal
}
