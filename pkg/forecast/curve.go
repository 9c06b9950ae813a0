package forecast

import "fmt"

// Curve is the theoretical generation shape of a site as one anchor value
// (kW) per hour of the day.
type Curve [24]float64

// DefaultCurve is the hand-authored baseline for the plant.
var DefaultCurve = Curve{
	0, 0, 0, 0, 0, 0,
	30, 240, 540, 960, 1350, 1500, // 06:00 - 11:00
	1530, 1440, 1140, 750, 450, 180, // 12:00 - 17:00
	30, 0, 0, 0, 0, 0,
}

// Validate returns an error if any anchor is negative.
func (c Curve) Validate() error {
	for h, v := range c {
		if v < 0 {
			return fmt.Errorf("anchor for hour %d is negative: %f", h, v)
		}
	}
	return nil
}

// Interpolate linearly interpolates between the anchor for hour and the
// anchor for the following hour, wrapping at midnight. fraction is the
// minute of the hour divided by 60.
func (c Curve) Interpolate(hour int, fraction float64) float64 {
	hour = ((hour % 24) + 24) % 24
	curr := c[hour]
	next := c[(hour+1)%24]
	return curr + (next-curr)*fraction
}

// Rule returns the baseline value for slot.
func (c Curve) Rule(slot int) float64 {
	return c.Interpolate(slot/SlotsPerHour, float64(slot%SlotsPerHour)/float64(SlotsPerHour))
}
