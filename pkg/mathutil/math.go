// Package mathutil holds small numeric helpers shared across domains.
package mathutil

import "math"

// Sigmoid maps z onto (0, 1) via the logistic function 1 / (1 + e^(-z)).
func Sigmoid(z float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-z))))
}

// ClampLimit normalizes a caller-supplied page size: non-positive values
// fall back to defaultVal and anything above maxVal is capped at maxVal.
func ClampLimit(limit, defaultVal, maxVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > maxVal {
		return maxVal
	}
	return limit
}
