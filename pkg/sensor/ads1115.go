package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/starforgelabs/datanorm/pkg/config"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01
)

// ADS1115 reads single-ended channels of an ADS1115 ADC over I2C, one
// single-shot conversion per Sample call. It owns the bus it opens.
type ADS1115 struct {
	dev        *i2c.Dev
	bus        i2c.BusCloser
	sampleRate int
}

func NewADS1115(cfg config.Config) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	dev := &i2c.Dev{Addr: uint16(cfg.I2CAddress), Bus: bus}
	return &ADS1115{dev: dev, bus: bus, sampleRate: cfg.SampleRate}, nil
}

func (s *ADS1115) Close() error {
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

// Sample starts a single-shot conversion on the given input and returns the
// signed 16-bit result as an int.
func (s *ADS1115) Sample(input int) (int, error) {
	msb, lsb, err := configWord(input, s.sampleRate)
	if err != nil {
		return 0, err
	}
	if err := s.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	// wait for conversion (simple sleep)
	delayMs := int(1000.0/float64(s.sampleRate)) + 2
	time.Sleep(time.Duration(delayMs) * time.Millisecond)
	readBuf := make([]byte, 2)
	if err := s.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	return int(raw), nil
}

// configWord builds the two ADS1115 config register bytes for a
// single-shot, single-ended conversion on the given input.
func configWord(input, sampleRate int) (byte, byte, error) {
	var mux byte
	switch input {
	case 0:
		mux = 0x4
	case 1:
		mux = 0x5
	case 2:
		mux = 0x6
	case 3:
		mux = 0x7
	default:
		return 0, 0, fmt.Errorf("invalid input %d", input)
	}
	// PGA: use ±4.096V -> bits 001
	pga := byte(0x1)
	// data rate bits
	var dr byte
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}
	var word uint16 = 0x8000 // OS = 1 (start single conversion)
	word |= uint16(mux) << 12
	word |= uint16(pga) << 9
	word |= 1 << 8 // single-shot mode
	word |= uint16(dr) << 5
	// comparator default: disabled (bits 1:0 = 11)
	word |= 0x3
	return byte(word >> 8), byte(word & 0xFF), nil
}
