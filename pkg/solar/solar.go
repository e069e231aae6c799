// Package solar models the derived solar power signal used for
// power curtailment decisions.
package solar

// Curve is the simulated daylight bell curve: one generation percentage per
// hour of day. Zero overnight, ramping through the morning, peaking at
// midday, ramping down through the evening.
var Curve = [24]float64{
	0, 0, 0, 0, 0, 0, // 00:00-05:00 night
	5, 15, 30, 50, 70, 85, // 06:00-11:00 morning
	100, 95, 85, 70, 50, 30, // 12:00-17:00 afternoon
	15, 5, 0, 0, 0, 0, // 18:00-23:00 evening
}

// Profiles maps friendly power profile names to firmware profile steps.
var Profiles = map[string]string{
	"max_power": "+2",
	"balanced":  "0",
	"ultra_eco": "-2",
	"manual":    "manual",
}

// PowerModes maps preset mode names to power targets. Values of one watt or
// more are absolute power limits; values below one are curtailment fractions
// of normal draw.
var PowerModes = map[string]float64{
	"solar_max": 4200,
	"eco_mode":  1500,
	"night_30":  0.3,
	"night_15":  0.15,
	"standby":   0,
}

// Model holds the solar simulation inputs. It is owned exclusively by the
// coordinator and mutated only through its setters.
type Model struct {
	// PowerInput is the manual solar power value in watts, used when the
	// curve is disabled. Non-negative.
	PowerInput float64

	// CurveEnabled switches derivation to the simulated daylight curve.
	CurveEnabled bool

	// MaxCurvePower is the curve's peak output in watts. Positive.
	MaxCurvePower float64
}

// Current returns the derived solar power for the given hour of day. Pure
// and total: any integer hour maps into [0,23] and the function never fails.
// With the curve disabled the manual input is returned verbatim.
func Current(m Model, hour int) float64 {
	if !m.CurveEnabled {
		return m.PowerInput
	}
	h := hour % 24
	if h < 0 {
		h += 24
	}
	return m.MaxCurvePower * Curve[h] / 100
}
