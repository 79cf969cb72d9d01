package backoff

import (
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

func fixedRandom(v float64) Option {
	return WithRandom(func() float64 { return v })
}

func TestExponentialBackoff_NoJitter(t *testing.T) {
	calc := New(Config{
		Strategy:  Exponential,
		BaseDelay: 1000 * time.Millisecond,
		MaxDelay:  20000 * time.Millisecond,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 20 * time.Second}, // capped
		{30, 20 * time.Second},
		{0, 1 * time.Second}, // attempts below 1 behave like the first
	}

	for _, tt := range tests {
		if got := calc.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoff_SymmetricJitter(t *testing.T) {
	cfg := Config{
		Strategy:     Exponential,
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		JitterFactor: 0.2,
	}

	tests := []struct {
		name    string
		random  float64
		attempt int
		want    time.Duration
	}{
		{"Lowest draw", 0.0, 1, 80 * time.Millisecond},
		{"Centre draw", 0.5, 2, 200 * time.Millisecond},
		{"High draw", 0.75, 3, 440 * time.Millisecond},
		// 1000ms cap + 0.9*400ms - 200ms jitter floor: exceeding MaxDelay is accepted.
		{"Above cap", 0.9, 10, 1160 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := New(cfg, fixedRandom(tt.random))
			if got := calc.NextDelay(tt.attempt); got != tt.want {
				t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestFullJitterBackoff_Bounds(t *testing.T) {
	base := 50 * time.Millisecond
	maxDelay := 2 * time.Second
	calc := New(Config{Strategy: FullJitter, BaseDelay: base, MaxDelay: maxDelay})

	for attempt := 1; attempt <= 20; attempt++ {
		ceiling := base * time.Duration(1<<(attempt-1))
		if ceiling > maxDelay {
			ceiling = maxDelay
		}
		for i := 0; i < 50; i++ {
			got := calc.NextDelay(attempt)
			if got < 0 || got > ceiling {
				t.Fatalf("NextDelay(%d) = %v, want within [0, %v]", attempt, got, ceiling)
			}
		}
	}
}

func TestFullJitterBackoff_Deterministic(t *testing.T) {
	calc := New(Config{
		Strategy:  FullJitter,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  1 * time.Second,
	}, fixedRandom(0.5))

	if got := calc.NextDelay(3); got != 200*time.Millisecond {
		t.Errorf("NextDelay(3) = %v, want 200ms", got)
	}
	if got := calc.NextDelay(8); got != 500*time.Millisecond {
		t.Errorf("NextDelay(8) = %v, want 500ms", got)
	}
}

func TestDecorrelatedJitterBackoff_Sequence(t *testing.T) {
	calc := New(Config{
		Strategy:     DecorrelatedJitter,
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		JitterFactor: 1,
	}, fixedRandom(0.5))

	// upper = min(1000, 3*last); last = floor(100 + 0.5*(upper-100))
	want := []time.Duration{
		200 * time.Millisecond, // upper 300
		350 * time.Millisecond, // upper 600
		550 * time.Millisecond, // upper 1000 (capped)
		550 * time.Millisecond,
	}
	for i, w := range want {
		if got := calc.NextDelay(i + 1); got != w {
			t.Errorf("call %d: NextDelay = %v, want %v", i+1, got, w)
		}
	}

	calc.Reset()
	if got := calc.NextDelay(99); got != 200*time.Millisecond {
		t.Errorf("after Reset: NextDelay = %v, want 200ms", got)
	}
}

func TestDecorrelatedJitterBackoff_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := 5 * time.Second

	tests := []struct {
		name   string
		factor float64
	}{
		{"Classic multiplier", 1},
		{"Aggressive multiplier", 4},
		{"Small multiplier", 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := New(Config{
				Strategy:     DecorrelatedJitter,
				BaseDelay:    base,
				MaxDelay:     maxDelay,
				JitterFactor: tt.factor,
			})

			firstCeiling := time.Duration(tt.factor * 3 * float64(base))
			if firstCeiling > maxDelay {
				firstCeiling = maxDelay
			}
			if firstCeiling < base {
				firstCeiling = base
			}

			calc.Reset()
			if got := calc.NextDelay(1); got < base || got > firstCeiling {
				t.Errorf("first delay after Reset = %v, want within [%v, %v]", got, base, firstCeiling)
			}

			for i := 0; i < 200; i++ {
				got := calc.NextDelay(i)
				if got < base || got > maxDelay {
					t.Fatalf("call %d: NextDelay = %v, want within [%v, %v]", i, got, base, maxDelay)
				}
			}
		})
	}
}

func TestNew_SelectsStrategy(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     string
	}{
		{Exponential, "exponential"},
		{DecorrelatedJitter, "decorrelated"},
		{FullJitter, "full"},
		{"", "exponential"},
		{"linear", "exponential"},
		{"DECORRELATED_JITTER", "decorrelated"},
	}

	for _, tt := range tests {
		calc := New(Config{Strategy: tt.strategy, BaseDelay: time.Millisecond, MaxDelay: time.Second})

		var got string
		switch calc.(type) {
		case *ExponentialBackoff:
			got = "exponential"
		case *DecorrelatedJitterBackoff:
			got = "decorrelated"
		case *FullJitterBackoff:
			got = "full"
		}

		if got != tt.want {
			t.Errorf("New(%q) built %s, want %s", tt.strategy, got, tt.want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"exponential":         Exponential,
		"EXPONENTIAL":         Exponential,
		"full_jitter":         FullJitter,
		" Full-Jitter ":       FullJitter,
		"decorrelated-jitter": DecorrelatedJitter,
		"":                    Exponential,
		"something-else":      Exponential,
	}

	for input, want := range tests {
		if got := ParseStrategy(input); got != want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestStringToStrategyHookFunc(t *testing.T) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			StringToStrategyHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}

	input := map[string]interface{}{
		"strategy":   "FULL_JITTER",
		"base-delay": "250ms",
		"max-delay":  "4s",
		"jitter":     0.5,
	}
	if err := decoder.Decode(input); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if cfg.Strategy != FullJitter {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, FullJitter)
	}
	if cfg.BaseDelay != 250*time.Millisecond || cfg.MaxDelay != 4*time.Second {
		t.Errorf("delays = %v/%v, want 250ms/4s", cfg.BaseDelay, cfg.MaxDelay)
	}
	if cfg.JitterFactor != 0.5 {
		t.Errorf("JitterFactor = %v, want 0.5", cfg.JitterFactor)
	}
}

func TestConfig_FlatDecorrelation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"Default jitter", Config{Strategy: DecorrelatedJitter, BaseDelay: time.Second, MaxDelay: 20 * time.Second, JitterFactor: 0.2}, true},
		{"Just above one third", Config{Strategy: DecorrelatedJitter, BaseDelay: time.Second, MaxDelay: 20 * time.Second, JitterFactor: 0.34}, false},
		{"Plain multiplier", Config{Strategy: DecorrelatedJitter, BaseDelay: time.Second, MaxDelay: 20 * time.Second, JitterFactor: 1}, false},
		{"No headroom", Config{Strategy: DecorrelatedJitter, BaseDelay: time.Second, MaxDelay: time.Second, JitterFactor: 1}, true},
		{"Exponential ignores it", Config{Strategy: Exponential, BaseDelay: time.Second, MaxDelay: 20 * time.Second, JitterFactor: 0.2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.FlatDecorrelation(); got != tt.want {
				t.Errorf("FlatDecorrelation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecorrelatedJitterBackoff_DefaultJitterIsFlat(t *testing.T) {
	cfg := Config{Strategy: DecorrelatedJitter, BaseDelay: time.Second, MaxDelay: 20 * time.Second, JitterFactor: 0.2}
	calc := New(cfg, fixedRandom(0.9))

	for attempt := 1; attempt <= 4; attempt++ {
		if got := calc.NextDelay(attempt); got != time.Second {
			t.Errorf("NextDelay(%d) = %v, want %v", attempt, got, time.Second)
		}
	}
}
