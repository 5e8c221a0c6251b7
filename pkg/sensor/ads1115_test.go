package sensor

import (
	"testing"
)

func TestConfigWordBytes(t *testing.T) {
	// input 0, sample rate 128 -> expect msb 0xC3 lsb 0x83 (see implementation)
	msb, lsb, err := configWord(0, 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 0xC3 || lsb != 0x83 {
		t.Fatalf("input0@128 => got %02X %02X; want C3 83", msb, lsb)
	}

	// input 1, sample rate 128 -> D3 83
	msb, lsb, err = configWord(1, 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 0xD3 || lsb != 0x83 {
		t.Fatalf("input1@128 => got %02X %02X; want D3 83", msb, lsb)
	}

	// sample rate 8 for input 0 -> msb C3 lsb 03 (dr=0)
	msb, lsb, err = configWord(0, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msb != 0xC3 || lsb != 0x03 {
		t.Fatalf("input0@8 => got %02X %02X; want C3 03", msb, lsb)
	}

	// invalid input
	if _, _, err := configWord(9, 128); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}
