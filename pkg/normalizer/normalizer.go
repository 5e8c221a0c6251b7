// Package normalizer applies per-channel piecewise-linear calibration across
// a group of sensor inputs. Each channel binds a physical input to its own
// breakpoint table; all channels share one normalized output table so
// dissimilar sensors read on a common scale.
package normalizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/starforgelabs/datanorm/pkg/calib"
)

// MaxInputs is the number of physical inputs the adapter will address.
// Source ids must be below it and channel groups may not exceed it.
const MaxInputs = 6

var (
	ErrInvalidChannelCount     = errors.New("channel count out of range")
	ErrMissingChannelList      = errors.New("missing channel source list")
	ErrInvalidSourceID         = errors.New("source id out of range")
	ErrInvalidTableWidth       = errors.New("calibration table width invalid")
	ErrMissingCalibrationTable = errors.New("missing calibration table")
	ErrMissingOutputTable      = errors.New("missing normalized output table")
	ErrTableNotAscending       = errors.New("calibration breakpoints not strictly ascending")
	ErrUninitialized           = errors.New("normalizer not initialized")
)

// Source supplies one raw sample for a physical input. Implementations are
// injected at construction and never owned by the normalizer; an ADC driver,
// a simulator and a test double all satisfy it.
type Source interface {
	Sample(input int) (int, error)
}

// Config binds a channel group: Count channels, each reading Sources[i] and
// calibrated through Tables[i], all mapped onto the shared Outputs table.
type Config struct {
	Count   int
	Sources []int
	Tables  [][]int
	Outputs []int
}

// Reading is one channel's result row for a cycle.
type Reading struct {
	Source    int       `json:"source"`
	Raw       int       `json:"raw"`
	Value     int       `json:"value"`
	Segment   int       `json:"segment"`
	Timestamp time.Time `json:"timestamp"`
}

// Normalizer holds the validated channel bindings and the per-channel
// reading, value and segment buffers. Validation happens once in New; every
// operation first checks the frozen status and no-ops when it is not OK.
// Instances are not safe for concurrent use.
type Normalizer struct {
	status error
	ok     bool

	source  Source
	count   int
	inputs  []int
	tables  [][]int
	outputs []int

	readings []int
	values   []int
	segments []int
}

// New validates cfg and binds src. On validation failure the returned
// error identifies the first failed check and the returned Normalizer is
// frozen in that failed state: callers that keep it get no-op operations,
// never panics.
func New(cfg Config, src Source) (*Normalizer, error) {
	if err := validate(cfg); err != nil {
		return &Normalizer{status: err}, err
	}

	n := &Normalizer{
		ok:       true,
		source:   src,
		count:    cfg.Count,
		inputs:   make([]int, cfg.Count),
		tables:   make([][]int, cfg.Count),
		outputs:  make([]int, len(cfg.Outputs)),
		readings: make([]int, cfg.Count),
		values:   make([]int, cfg.Count),
		segments: make([]int, cfg.Count),
	}
	copy(n.inputs, cfg.Sources)
	copy(n.outputs, cfg.Outputs)
	for i := 0; i < cfg.Count; i++ {
		n.tables[i] = make([]int, len(cfg.Tables[i]))
		copy(n.tables[i], cfg.Tables[i])
		n.segments[i] = calib.SegmentLow
	}
	return n, nil
}

// validate runs the construction checks in a fixed order; the first failure
// wins and becomes the instance's frozen status.
func validate(cfg Config) error {
	if cfg.Count < 1 || cfg.Count > MaxInputs {
		return fmt.Errorf("%w: %d", ErrInvalidChannelCount, cfg.Count)
	}
	if cfg.Sources == nil || len(cfg.Sources) < cfg.Count {
		return ErrMissingChannelList
	}
	for _, id := range cfg.Sources[:cfg.Count] {
		if id < 0 || id >= MaxInputs {
			return fmt.Errorf("%w: %d", ErrInvalidSourceID, id)
		}
	}
	if cfg.Outputs == nil {
		return ErrMissingOutputTable
	}
	width := len(cfg.Outputs)
	if width < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidTableWidth, width)
	}
	if cfg.Tables == nil || len(cfg.Tables) < cfg.Count {
		return ErrMissingCalibrationTable
	}
	for i, table := range cfg.Tables[:cfg.Count] {
		if table == nil {
			return fmt.Errorf("%w: channel %d", ErrMissingCalibrationTable, i)
		}
		if len(table) != width {
			return fmt.Errorf("%w: channel %d has %d points, outputs have %d",
				ErrInvalidTableWidth, i, len(table), width)
		}
		if !calib.Ascending(table) {
			return fmt.Errorf("%w: channel %d", ErrTableNotAscending, i)
		}
	}
	return nil
}

// Status returns nil when the normalizer is operational, otherwise the error
// captured at construction. The zero value reports ErrUninitialized.
func (n *Normalizer) Status() error {
	if n.status != nil {
		return n.status
	}
	if !n.ok {
		return ErrUninitialized
	}
	return nil
}

func (n *Normalizer) Count() int { return n.count }

// Read acquires one sample per channel from the source into the reading
// buffers. A channel whose sample fails keeps its previous reading; Read
// itself only fails on bad status.
func (n *Normalizer) Read() error {
	if err := n.Status(); err != nil {
		return err
	}
	for i := 0; i < n.count; i++ {
		v, err := n.source.Sample(n.inputs[i])
		if err != nil {
			continue
		}
		n.readings[i] = v
	}
	return nil
}

// Normalize runs every channel's current reading through its calibration
// table, filling the value and segment buffers.
func (n *Normalizer) Normalize() error {
	if err := n.Status(); err != nil {
		return err
	}
	for i := 0; i < n.count; i++ {
		n.values[i], n.segments[i] = calib.Interpolate(n.readings[i], n.tables[i], n.outputs)
	}
	return nil
}

// ReadAndNormalize is Read followed by Normalize; Normalize is skipped when
// Read fails.
func (n *Normalizer) ReadAndNormalize() error {
	if err := n.Read(); err != nil {
		return err
	}
	return n.Normalize()
}

// SetReading stores a raw value for channel i without touching the source,
// so a known sample can be pushed through the calibration.
func (n *Normalizer) SetReading(i, raw int) error {
	if err := n.Status(); err != nil {
		return err
	}
	if i < 0 || i >= n.count {
		return fmt.Errorf("channel %d out of range", i)
	}
	n.readings[i] = raw
	return nil
}

// IndexOf returns the ordinal of the channel bound to source id, or -1.
func (n *Normalizer) IndexOf(source int) int {
	for i := 0; i < n.count; i++ {
		if n.inputs[i] == source {
			return i
		}
	}
	return -1
}

// Reading returns channel i's last raw sample.
func (n *Normalizer) Reading(i int) int { return n.readings[i] }

// Value returns channel i's last normalized value.
func (n *Normalizer) Value(i int) int { return n.values[i] }

// Segment returns the segment index used for channel i's last
// normalization: 0..n-2, or calib.SegmentLow / calib.SegmentHigh when the
// reading was clamped.
func (n *Normalizer) Segment(i int) int { return n.segments[i] }

// Snapshot copies the current per-channel results into timestamped rows for
// the output layer. It returns nil when the status is not OK.
func (n *Normalizer) Snapshot() []Reading {
	if n.Status() != nil {
		return nil
	}
	now := time.Now()
	out := make([]Reading, n.count)
	for i := 0; i < n.count; i++ {
		out[i] = Reading{
			Source:    n.inputs[i],
			Raw:       n.readings[i],
			Value:     n.values[i],
			Segment:   n.segments[i],
			Timestamp: now,
		}
	}
	return out
}
