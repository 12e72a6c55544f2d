// SPDX-License-Identifier: MIT
package analysis

import "math"

// MinPowerDB is the floor of the dBFS meters, matching the -160 dB lower
// bound of platform recorder meters.
const MinPowerDB = -160.0

// PowerDB converts a linear amplitude to dBFS clamped to [MinPowerDB, 0].
func PowerDB(amplitude float32) float64 {
	if amplitude <= 0 || math.IsNaN(float64(amplitude)) {
		return MinPowerDB
	}
	db := 20 * math.Log10(float64(amplitude))
	return max(MinPowerDB, min(0, db))
}
