package rivi

import (
	"math"
	"testing"
)

func TestEffectString(t *testing.T) {
	tests := []struct {
		effect Effect
		want   string
	}{
		{Effect{}, "..."},
		{EffectFromByte(0x35), "D35"},
		{EffectFromByte(0x43), "R3"},
		{EffectFromByte(0x7f), "7F"},
	}
	for _, tt := range tests {
		if got := tt.effect.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDetuneSemitones(t *testing.T) {
	tests := []struct {
		effect Effect
		want   float64
	}{
		{EffectFromByte(0x38), 0},
		{EffectFromByte(0x30), -1},
		{EffectFromByte(0x3c), 0.5},
		{EffectFromByte(0x3f), 7.0 / 8},
		{EffectFromByte(0x48), 0}, // release command carries no detune
		{Effect{Value: 0x30}, 0},  // disabled
	}
	for _, tt := range tests {
		if got := tt.effect.DetuneSemitones(); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("DetuneSemitones(%02X) = %v, want %v", tt.effect.Value, got, tt.want)
		}
	}
}

func TestReleaseScale(t *testing.T) {
	tests := []struct {
		effect Effect
		want   float64
	}{
		{EffectFromByte(0x40), 0.25},
		{EffectFromByte(0x4f), 3.0},
		{EffectFromByte(0x38), 1}, // detune command scales by one
		{Effect{Value: 0x40}, 1},  // disabled
	}
	for _, tt := range tests {
		if got := tt.effect.ReleaseScale(); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("ReleaseScale(%02X) = %v, want %v", tt.effect.Value, got, tt.want)
		}
	}
	mid := EffectFromByte(0x48).ReleaseScale()
	if mid <= 0.25 || mid >= 3.0 {
		t.Fatalf("midpoint release scale = %v, want inside (0.25, 3.0)", mid)
	}
}

func TestWithNibble(t *testing.T) {
	var e Effect
	e = e.WithNibble(true, EffectRelease)
	if !e.Enabled || e.Value != 0x40 {
		t.Fatalf("after high nibble: %+v, want enabled 0x40", e)
	}
	e = e.WithNibble(false, 0xa)
	if e.Value != 0x4a {
		t.Fatalf("after low nibble: value %02X, want 4A", e.Value)
	}
	e = e.WithNibble(false, 0x1f) // extra bits are masked off
	if e.Value != 0x4f {
		t.Fatalf("after masked nibble: value %02X, want 4F", e.Value)
	}
}
