package sensor

import (
	"testing"

	"github.com/starforgelabs/datanorm/pkg/config"
)

func TestFakeIsDeterministic(t *testing.T) {
	a, _ := NewFake(config.Config{})
	b, _ := NewFake(config.Config{})
	for i := 0; i < 100; i++ {
		va, err := a.Sample(0)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		vb, _ := b.Sample(0)
		if va != vb {
			t.Fatalf("tick %d: sources diverged (%d vs %d)", i, va, vb)
		}
		if va < 0 || va >= 1024 {
			t.Fatalf("tick %d: sample %d outside [0,1024)", i, va)
		}
	}
}

func TestFakeInputsAreIndependent(t *testing.T) {
	f, _ := NewFake(config.Config{})
	// advance input 0 only
	for i := 0; i < 5; i++ {
		_, _ = f.Sample(0)
	}
	first, _ := f.Sample(1)
	if first != 0 {
		t.Fatalf("input 1 first sample: got %d want 0", first)
	}
}
