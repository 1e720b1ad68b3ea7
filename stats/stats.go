// Package stats reports buffer sizes and the output/input size ratio.
//
// Sizes are character counts in UTF-16 code units, the unit the page's text
// areas measure in. They are labelled bytes for display but are not byte
// lengths under any encoding.
package stats

import (
	"math"
	"strconv"
)

const (
	kib = 1024
	mib = 1024 * 1024
)

// Stats is the rendered size report for an input/output pair.
type Stats struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	// Ratio is empty unless both buffers are non-empty.
	Ratio string `json:"ratio"`
}

// Length returns the length of s in UTF-16 code units.
func Length(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// FormatSize renders n as bytes, KB (one decimal) or MB (two decimals).
func FormatSize(n int) string {
	switch {
	case n < kib:
		return strconv.Itoa(n) + " bytes"
	case n < mib:
		return toFixed(float64(n)/kib, 1) + " KB"
	default:
		return toFixed(float64(n)/mib, 2) + " MB"
	}
}

// Ratio returns out/in as a percentage with one decimal and a trailing "%",
// or "" when either size is zero.
func Ratio(in, out int) string {
	if in <= 0 || out <= 0 {
		return ""
	}
	return toFixed(float64(out)/float64(in)*100, 1) + "%"
}

// Compute measures both buffers.
func Compute(input, output string) Stats {
	in, out := Length(input), Length(output)
	return Stats{
		Input:  FormatSize(in),
		Output: FormatSize(out),
		Ratio:  Ratio(in, out),
	}
}

// toFixed rounds half away from zero, so 1280 bytes is "1.3 KB" rather than
// the half-even "1.2 KB".
func toFixed(x float64, decimals int) string {
	p := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(x*p)/p, 'f', decimals, 64)
}
