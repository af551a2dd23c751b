package monitoring

import (
	"fmt"
	"sort"
	"time"

	masterdata "solarwatch/internal/masterdata/domain"
	telemetry "solarwatch/internal/telemetry/domain"
)

// Thresholds parameterizes the anomaly rules. Zero values are not
// meaningful; start from DefaultThresholds and override.
type Thresholds struct {
	// Lookback is the reading window loaded per evaluation pass.
	Lookback time.Duration
	// OfflineAfter is the max heartbeat age before a plant counts as offline.
	OfflineAfter time.Duration
	// StaleAfter is the max heartbeat age tolerated when the reading
	// window is empty.
	StaleAfter time.Duration
	// FreezeSpan is the minimum span the newest readings must cover to
	// count as a stuck value.
	FreezeSpan time.Duration
	// FreezeEpsilonW is the max spread between frozen readings.
	FreezeEpsilonW float64
	// DropWindow is the minimum age of the baseline reading for the
	// sudden-drop comparison.
	DropWindow time.Duration
	// DropRatio is the relative power loss that triggers a sudden drop.
	DropRatio float64
	// DropFloorW is the minimum baseline power for drop detection.
	DropFloorW float64
	// ZeroFloorW is the power below which generation counts as zero.
	ZeroFloorW float64
	// DaylightStartHour/DaylightEndHour bound the local-hour window
	// [start, end) in which generation is expected. The hour is taken
	// in DaylightLocation, since plants report in their own timezone.
	DaylightStartHour int
	DaylightEndHour   int
	DaylightLocation  *time.Location
	// ImbalanceFloorW is the minimum reference-channel power for
	// imbalance detection.
	ImbalanceFloorW float64
	// ImbalanceTolerance is the allowed deviation between a channel's
	// actual and capacity-expected power ratio.
	ImbalanceTolerance float64
}

// DefaultThresholds returns the production rule parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Lookback:           20 * time.Minute,
		OfflineAfter:       15 * time.Minute,
		StaleAfter:         15 * time.Minute,
		FreezeSpan:         10 * time.Minute,
		FreezeEpsilonW:     1.0,
		DropWindow:         5 * time.Minute,
		DropRatio:          0.40,
		DropFloorW:         100,
		ZeroFloorW:         5,
		DaylightStartHour:  9,
		DaylightEndHour:    16,
		DaylightLocation:   time.Local,
		ImbalanceFloorW:    50,
		ImbalanceTolerance: 0.30,
	}
}

const freezeSampleCount = 5

// Evaluate runs every enabled rule against one plant's recent window
// and returns the resulting alert candidates. It is pure: no I/O, no
// clock access beyond the supplied now.
func Evaluate(plant masterdata.Plant, channels []masterdata.Channel, readings []telemetry.Reading, enabled TypeSet, th Thresholds, now time.Time) []Candidate {
	var candidates []Candidate

	series := plantSeries(readings)

	if enabled.Has(TypeOffline) {
		if c, ok := evalOffline(plant, th, now); ok {
			candidates = append(candidates, c)
		}
	}
	if enabled.Has(TypeStaleData) {
		if c, ok := evalStaleData(plant, readings, th, now); ok {
			candidates = append(candidates, c)
		}
	}
	if enabled.Has(TypeFreeze) {
		if c, ok := evalFreeze(plant, series, th); ok {
			candidates = append(candidates, c)
		}
	}
	if enabled.Has(TypeSuddenDrop) {
		if c, ok := evalSuddenDrop(plant, series, th); ok {
			candidates = append(candidates, c)
		}
	}
	if enabled.Has(TypeZeroGeneration) {
		if c, ok := evalZeroGeneration(plant, series, th, now); ok {
			candidates = append(candidates, c)
		}
	}
	if enabled.Has(TypeImbalance) {
		candidates = append(candidates, evalImbalance(plant, channels, readings, th)...)
	}

	return candidates
}

func evalOffline(plant masterdata.Plant, th Thresholds, now time.Time) (Candidate, bool) {
	age := now.Sub(plant.LastContactAt)
	if !plant.LastContactAt.IsZero() && age <= th.OfflineAfter {
		return Candidate{}, false
	}
	message := fmt.Sprintf("no contact from plant %s since %s", plant.Name, plant.LastContactAt.Format(time.RFC3339))
	if plant.LastContactAt.IsZero() {
		message = fmt.Sprintf("plant %s has never reported", plant.Name)
	}
	return Candidate{
		Type:        TypeOffline,
		Severity:    SeverityCritical,
		Title:       "Plant offline",
		Message:     message,
		PlantID:     plant.ID,
		Fingerprint: PlantFingerprint(TypeOffline, plant.ID),
	}, true
}

func evalStaleData(plant masterdata.Plant, readings []telemetry.Reading, th Thresholds, now time.Time) (Candidate, bool) {
	if len(readings) > 0 {
		return Candidate{}, false
	}
	if !plant.LastContactAt.IsZero() && now.Sub(plant.LastContactAt) <= th.StaleAfter {
		return Candidate{}, false
	}
	return Candidate{
		Type:        TypeStaleData,
		Severity:    SeverityWarning,
		Title:       "Telemetry stale",
		Message:     fmt.Sprintf("no readings from plant %s in the last %s", plant.Name, th.Lookback),
		PlantID:     plant.ID,
		Fingerprint: PlantFingerprint(TypeStaleData, plant.ID),
	}, true
}

func evalFreeze(plant masterdata.Plant, series []telemetry.Reading, th Thresholds) (Candidate, bool) {
	if len(series) < 2 {
		return Candidate{}, false
	}
	window := series
	if len(window) > freezeSampleCount {
		window = window[len(window)-freezeSampleCount:]
	}
	minPower := window[0].PowerW
	maxPower := window[0].PowerW
	for _, reading := range window {
		if reading.PowerW <= 0 {
			return Candidate{}, false
		}
		if reading.PowerW < minPower {
			minPower = reading.PowerW
		}
		if reading.PowerW > maxPower {
			maxPower = reading.PowerW
		}
	}
	if maxPower-minPower > th.FreezeEpsilonW {
		return Candidate{}, false
	}
	span := window[len(window)-1].At.Sub(window[0].At)
	if span < th.FreezeSpan {
		return Candidate{}, false
	}
	return Candidate{
		Type:        TypeFreeze,
		Severity:    SeverityWarning,
		Title:       "Reading frozen",
		Message:     fmt.Sprintf("plant %s reported %.0f W unchanged across %d readings over %s", plant.Name, window[len(window)-1].PowerW, len(window), span.Round(time.Minute)),
		PlantID:     plant.ID,
		Fingerprint: PlantFingerprint(TypeFreeze, plant.ID),
	}, true
}

func evalSuddenDrop(plant masterdata.Plant, series []telemetry.Reading, th Thresholds) (Candidate, bool) {
	if len(series) < 2 {
		return Candidate{}, false
	}
	latest := series[len(series)-1]
	cutoff := latest.At.Add(-th.DropWindow)

	// Strongest eligible baseline: max power among readings at least
	// DropWindow older than the latest sample.
	var baseline *telemetry.Reading
	for i := range series[:len(series)-1] {
		reading := &series[i]
		if reading.At.After(cutoff) {
			continue
		}
		if baseline == nil || reading.PowerW > baseline.PowerW {
			baseline = reading
		}
	}
	if baseline == nil || baseline.PowerW <= th.DropFloorW {
		return Candidate{}, false
	}
	drop := (baseline.PowerW - latest.PowerW) / baseline.PowerW
	if drop < th.DropRatio {
		return Candidate{}, false
	}
	return Candidate{
		Type:        TypeSuddenDrop,
		Severity:    SeverityCritical,
		Title:       "Sudden power drop",
		Message:     fmt.Sprintf("plant %s power fell %.0f%% from %.0f W to %.0f W within %s", plant.Name, drop*100, baseline.PowerW, latest.PowerW, latest.At.Sub(baseline.At).Round(time.Minute)),
		PlantID:     plant.ID,
		Fingerprint: PlantFingerprint(TypeSuddenDrop, plant.ID),
	}, true
}

func evalZeroGeneration(plant masterdata.Plant, series []telemetry.Reading, th Thresholds, now time.Time) (Candidate, bool) {
	loc := th.DaylightLocation
	if loc == nil {
		loc = time.Local
	}
	hour := now.In(loc).Hour()
	if hour < th.DaylightStartHour || hour >= th.DaylightEndHour {
		return Candidate{}, false
	}
	if len(series) == 0 {
		return Candidate{}, false
	}
	latest := series[len(series)-1]
	if latest.PowerW >= th.ZeroFloorW {
		return Candidate{}, false
	}
	return Candidate{
		Type:        TypeZeroGeneration,
		Severity:    SeverityWarning,
		Title:       "No generation during daylight",
		Message:     fmt.Sprintf("plant %s produced %.1f W at %02d:00 inside the expected generation window %d-%dh", plant.Name, latest.PowerW, hour, th.DaylightStartHour, th.DaylightEndHour),
		PlantID:     plant.ID,
		Fingerprint: PlantFingerprint(TypeZeroGeneration, plant.ID),
	}, true
}

func evalImbalance(plant masterdata.Plant, channels []masterdata.Channel, readings []telemetry.Reading, th Thresholds) []Candidate {
	peers := make(map[string]masterdata.Channel)
	for _, channel := range channels {
		if channel.IsAggregate() || !channel.Active {
			continue
		}
		peers[channel.ID] = channel
	}

	// Latest reading per peer channel within the window.
	latest := make(map[string]telemetry.Reading)
	for _, reading := range readings {
		if reading.ChannelID == "" {
			continue
		}
		if _, ok := peers[reading.ChannelID]; !ok {
			continue
		}
		current, seen := latest[reading.ChannelID]
		if !seen || reading.At.After(current.At) {
			latest[reading.ChannelID] = reading
		}
	}
	if len(latest) < 2 {
		return nil
	}

	refID := ""
	for channelID, reading := range latest {
		if refID == "" || reading.PowerW > latest[refID].PowerW ||
			(reading.PowerW == latest[refID].PowerW && channelID < refID) {
			refID = channelID
		}
	}
	ref := latest[refID]
	if ref.PowerW <= th.ImbalanceFloorW {
		return nil
	}
	refCapacity := peers[refID].CapacityWp

	channelIDs := make([]string, 0, len(latest))
	for channelID := range latest {
		channelIDs = append(channelIDs, channelID)
	}
	sort.Strings(channelIDs)

	var candidates []Candidate
	for _, channelID := range channelIDs {
		if channelID == refID {
			continue
		}
		channel := peers[channelID]
		expected := 1.0
		if refCapacity > 0 {
			expected = channel.CapacityWp / refCapacity
		}
		actual := latest[channelID].PowerW / ref.PowerW
		deviation := actual - expected
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation <= th.ImbalanceTolerance {
			continue
		}
		candidates = append(candidates, Candidate{
			Type:        TypeImbalance,
			Severity:    SeverityWarning,
			Title:       "String imbalance",
			Message:     fmt.Sprintf("channel %s of plant %s at %.0f%% of reference output, expected %.0f%% from installed capacity", channel.Name, plant.Name, actual*100, expected*100),
			PlantID:     plant.ID,
			DeviceID:    channel.DeviceID,
			ChannelID:   channelID,
			Fingerprint: ChannelFingerprint(TypeImbalance, plant.ID, channelID),
		})
	}
	return candidates
}

// plantSeries extracts the plant-level aggregate series sorted oldest
// first. Plants without an aggregate channel fall back to the full
// reading set.
func plantSeries(readings []telemetry.Reading) []telemetry.Reading {
	var series []telemetry.Reading
	for _, reading := range readings {
		if reading.ChannelID == "" {
			series = append(series, reading)
		}
	}
	if series == nil {
		series = append(series, readings...)
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].At.Before(series[j].At) })
	return series
}
