// Package units converts between the pressure and depth conventions used
// in oceanographic recordings.
package units

const (
	// DbarToPa converts decibars to pascals.
	DbarToPa = 1.0e4

	// DefaultAtmosphericPressure is standard atmosphere in dbar.
	DefaultAtmosphericPressure = 10.1325

	// DefaultSeawaterDensity in kg/m³.
	DefaultSeawaterDensity = 1026.0

	// Gravity is standard gravitational acceleration in m/s².
	Gravity = 9.80665
)

// SeaPressure removes the atmospheric contribution from a total pressure
// reading in dbar. A non-positive patm selects the default.
func SeaPressure(pressure, patm float64) float64 {
	if patm <= 0 {
		patm = DefaultAtmosphericPressure
	}
	return pressure - patm
}

// DepthFromSeaPressure converts sea pressure in dbar to depth in metres
// assuming constant density. A non-positive density selects the default.
func DepthFromSeaPressure(seaPressure, density float64) float64 {
	if density <= 0 {
		density = DefaultSeawaterDensity
	}
	return seaPressure * DbarToPa / (density * Gravity)
}
