// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestPowerDB(t *testing.T) {
	tests := []struct {
		name      string
		amplitude float32
		want      float64
	}{
		{"Full scale", 1, 0},
		{"Half scale", 0.5, -6.0206},
		{"Tenth", 0.1, -20},
		{"Above full scale clamps", 2, 0},
		{"Silence", 0, MinPowerDB},
		{"Negative", -0.5, MinPowerDB},
		{"Below floor clamps", 1e-10, MinPowerDB},
		{"NaN", float32(math.NaN()), MinPowerDB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PowerDB(tt.amplitude); math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("PowerDB(%g) = %f, want %f", tt.amplitude, got, tt.want)
			}
		})
	}
}
