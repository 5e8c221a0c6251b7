package console

import (
	"fmt"
	"time"

	"github.com/starforgelabs/datanorm/pkg/calib"
	"github.com/starforgelabs/datanorm/pkg/normalizer"
	"github.com/starforgelabs/datanorm/pkg/output"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(readings []normalizer.Reading) error {
	for _, r := range readings {
		fmt.Printf("%s input=%d raw=%d normalized=%d segment=%s\n",
			r.Timestamp.Format(time.RFC3339), r.Source, r.Raw, r.Value, segmentLabel(r.Segment))
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }

func segmentLabel(seg int) string {
	switch seg {
	case calib.SegmentLow:
		return "low"
	case calib.SegmentHigh:
		return "high"
	default:
		return fmt.Sprintf("%d", seg)
	}
}
