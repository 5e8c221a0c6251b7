// Package calib performs piecewise-linear normalization of integer sensor
// readings. A calibration table pairs an ascending sequence of raw
// breakpoints with a parallel sequence of normalized outputs; readings are
// matched to the enclosing segment and linearly interpolated. The normalized
// sequence may ascend or descend, so dissimilar sensors sharing one
// normalized table produce comparable values.
package calib

import "errors"

// Segment sentinels reported when a reading falls outside the table.
const (
	SegmentLow  = -1
	SegmentHigh = -2
)

var (
	ErrTooFewPoints   = errors.New("calibration table needs at least two points")
	ErrLengthMismatch = errors.New("breakpoint and output tables differ in length")
	ErrNotAscending   = errors.New("breakpoints not strictly ascending")
)

// Table is one sensor's calibration: raw breakpoints and the normalized
// values they map to. Tables are fixed after construction.
type Table struct {
	Breakpoints []int `json:"breakpoints"`
	Outputs     []int `json:"outputs"`
}

func (t Table) Validate() error {
	if len(t.Breakpoints) < 2 {
		return ErrTooFewPoints
	}
	if len(t.Breakpoints) != len(t.Outputs) {
		return ErrLengthMismatch
	}
	if !Ascending(t.Breakpoints) {
		return ErrNotAscending
	}
	return nil
}

// Normalize maps a raw reading through the table. See Interpolate.
func (t Table) Normalize(value int) (int, int) {
	return Interpolate(value, t.Breakpoints, t.Outputs)
}

// Ascending reports whether values is strictly ascending.
func Ascending(values []int) bool {
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return false
		}
	}
	return true
}

// Locate finds the segment a value lies in by scanning the ascending
// breakpoints: it returns i-1 for the first index i where
// value <= breakpoints[i], or len(breakpoints)-1 when the value lies above
// them all. -1 means below the first breakpoint.
//
// A value exactly equal to breakpoints[0] is reported as below (-1) rather
// than as segment 0. Calibration data collected against this scan depends on
// that tie-break, so it is part of the contract; do not change it.
func Locate(value int, breakpoints []int) int {
	for i, bp := range breakpoints {
		if value <= bp {
			return i - 1
		}
	}
	return len(breakpoints) - 1
}

// Interpolate normalizes value against the breakpoint/output pair and
// returns the normalized result plus the segment used: 0..n-2 for an
// enclosing segment, SegmentLow or SegmentHigh when the value was clamped to
// the first or last output. It never fails; out-of-range input clamps.
//
// Within a segment the result is the integer proportional mapping
//
//	outputs[i] + (value-breakpoints[i]) * (outputs[i+1]-outputs[i]) / (breakpoints[i+1]-breakpoints[i])
//
// with the numerator widened to 64 bits and the quotient truncated toward
// zero.
func Interpolate(value int, breakpoints, outputs []int) (int, int) {
	n := len(breakpoints)
	idx := Locate(value, breakpoints)
	if idx < 0 {
		return outputs[0], SegmentLow
	}
	if idx >= n-1 {
		return outputs[n-1], SegmentHigh
	}

	span := int64(breakpoints[idx+1] - breakpoints[idx])
	rise := int64(outputs[idx+1] - outputs[idx])
	offset := int64(value - breakpoints[idx])
	return outputs[idx] + int(offset*rise/span), idx
}
