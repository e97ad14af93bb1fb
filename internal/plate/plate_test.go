package plate

import (
	"context"
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"aBC-12.34-d", "ABC1234D"},
		{"", ""},
		{"0CR1Z3I", "0CR1231"},
		{"o i z", "012"},
		{"AB 123 CD", "AB123CD"},
		{"---...", ""},
		{"kl55 mn77", "KL55MN77"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// stubEngine returns a fixed result or error.
type stubEngine struct {
	name string
	text string
	conf float64
	err  error
}

func (s stubEngine) Name() string { return s.name }

func (s stubEngine) Recognize(ctx context.Context, image []byte, region Region) (string, float64, error) {
	return s.text, s.conf, s.err
}

func TestChainPrimarySucceeds(t *testing.T) {
	chain := NewChain(
		stubEngine{name: "primary", text: "ABC1234", conf: 0.93},
		stubEngine{name: "fallback", text: "XXX0000", conf: 0.5},
	)

	got, conf := chain.Recognize(context.Background(), []byte{1}, Region{})
	if got != "ABC1234" {
		t.Errorf("plate = %q, want ABC1234", got)
	}
	// Raw text was already canonical, so no penalty applies.
	if conf != 0.93 {
		t.Errorf("confidence = %f, want 0.93", conf)
	}
}

func TestChainFallsBack(t *testing.T) {
	chain := NewChain(
		stubEngine{name: "primary", err: errors.New("engine unavailable")},
		stubEngine{name: "fallback", text: "kl55mn77", conf: 0.7},
	)

	got, conf := chain.Recognize(context.Background(), []byte{1}, Region{})
	if got != "KL55MN77" {
		t.Errorf("plate = %q, want KL55MN77", got)
	}
	// Normalization changed the raw text, so the 0.1 penalty applies.
	if conf != 0.6 {
		t.Errorf("confidence = %f, want 0.6", conf)
	}
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(
		stubEngine{name: "primary", err: errors.New("down")},
		stubEngine{name: "fallback", err: errors.New("also down")},
	)

	got, conf := chain.Recognize(context.Background(), []byte{1}, Region{})
	if got != UnknownPlate || conf != 0.0 {
		t.Errorf("Recognize = (%q, %f), want (%q, 0.0)", got, conf, UnknownPlate)
	}
}

func TestChainEmptyImage(t *testing.T) {
	chain := NewChain(stubEngine{name: "primary", text: "ABC123", conf: 1.0})

	got, conf := chain.Recognize(context.Background(), nil, Region{})
	if got != UnknownPlate || conf != 0.0 {
		t.Errorf("Recognize = (%q, %f), want (%q, 0.0)", got, conf, UnknownPlate)
	}
}

func TestChainEmptyChain(t *testing.T) {
	chain := NewChain()
	got, conf := chain.Recognize(context.Background(), []byte{1}, Region{})
	if got != UnknownPlate || conf != 0.0 {
		t.Errorf("Recognize = (%q, %f), want (%q, 0.0)", got, conf, UnknownPlate)
	}
	if len(chain.Engines()) != 0 {
		t.Errorf("Engines() = %v, want empty", chain.Engines())
	}
}

func TestChainSkipsEmptyText(t *testing.T) {
	chain := NewChain(
		stubEngine{name: "primary", text: "", conf: 0.9},
		stubEngine{name: "fallback", text: "AA11", conf: 0.8},
	)

	got, _ := chain.Recognize(context.Background(), []byte{1}, Region{})
	if got != "AA11" {
		t.Errorf("plate = %q, want AA11 from fallback", got)
	}
}
