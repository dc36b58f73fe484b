package cache

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxSize != 1000 {
		t.Errorf("MaxSize = %d, want 1000", cfg.MaxSize)
	}
	if cfg.DefaultTTL != 60*time.Second {
		t.Errorf("DefaultTTL = %v, want 60s", cfg.DefaultTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"valid", Config{MaxSize: 1, DefaultTTL: time.Second}, nil},
		{"valid with max ttl", Config{MaxSize: 1, DefaultTTL: time.Second, MaxTTL: time.Hour}, nil},
		{"zero size", Config{MaxSize: 0, DefaultTTL: time.Second}, ErrInvalidMaxSize},
		{"negative size", Config{MaxSize: -3, DefaultTTL: time.Second}, ErrInvalidMaxSize},
		{"zero ttl", Config{MaxSize: 1}, ErrInvalidTTL},
		{"negative ttl", Config{MaxSize: 1, DefaultTTL: -time.Second}, ErrInvalidTTL},
		{"negative max ttl", Config{MaxSize: 1, DefaultTTL: time.Second, MaxTTL: -1}, ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfig_EffectiveTTL(t *testing.T) {
	cfg := Config{MaxSize: 1, DefaultTTL: time.Minute, MaxTTL: time.Hour}

	tests := []struct {
		name     string
		override time.Duration
		want     time.Duration
	}{
		{"zero uses default", 0, time.Minute},
		{"negative uses default", -time.Second, time.Minute},
		{"override kept", 5 * time.Minute, 5 * time.Minute},
		{"clamped to max", 2 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}

	unbounded := Config{MaxSize: 1, DefaultTTL: time.Minute}
	if got := unbounded.EffectiveTTL(48 * time.Hour); got != 48*time.Hour {
		t.Errorf("without MaxTTL, EffectiveTTL = %v, want 48h", got)
	}
}

func TestSecondsToDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    time.Duration
	}{
		{60, time.Minute},
		{0.5, 500 * time.Millisecond},
		{0, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{1e300, 0},
	}

	for _, tt := range tests {
		if got := secondsToDuration(tt.seconds); got != tt.want {
			t.Errorf("secondsToDuration(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(epoch)

	c.Advance(-time.Hour)
	if !c.Now().Equal(epoch) {
		t.Errorf("negative Advance moved the clock to %v", c.Now())
	}

	c.Advance(90 * time.Second)
	if got := c.Now().Sub(epoch); got != 90*time.Second {
		t.Errorf("after Advance, elapsed = %v, want 90s", got)
	}

	c.Set(epoch)
	if got := c.Now().Sub(epoch); got != 90*time.Second {
		t.Errorf("Set into the past should be ignored, elapsed = %v", got)
	}

	later := epoch.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Set(%v) left clock at %v", later, c.Now())
	}
}
