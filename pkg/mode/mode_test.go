package mode

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/debounce"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/poll"
)

type mapStore map[string]int

func (m mapStore) GetInt(key string, def int) int {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func (m mapStore) PutInt(key string, value int) error {
	m[key] = value
	return nil
}

// press holds an input from one offset to another; zero to means forever.
type press struct {
	in       button.Input
	from, to time.Duration
}

// script samples presses against the mock clock.
func script(clk *clock.Mock, presses ...press) debounce.Sampler {
	origin := clk.Now()
	return debounce.SamplerFunc(func(in button.Input) bool {
		at := clk.Now().Sub(origin)
		for _, p := range presses {
			if p.in == in && at >= p.from && (p.to == 0 || at < p.to) {
				return true
			}
		}
		return false
	})
}

func newSelector(table *binding.Table, presses ...press) (*Selector, *poll.Simulated) {
	clk := clock.NewMock()
	pacer := &poll.Simulated{Clock: clk, Step: 10 * time.Millisecond}
	return &Selector{
		Bank:   debounce.NewBank(script(clk, presses...), clk, 5*time.Millisecond),
		Table:  table,
		Clock:  clk,
		Pacer:  pacer,
		Window: 2000 * time.Millisecond,
	}, pacer
}

func identity() *binding.Table {
	t := binding.New(mapStore{})
	t.Load()
	return t
}

func TestNoInputIsNormalPlay(t *testing.T) {
	s, pacer := newSelector(identity())

	if m := s.Select(); m != NormalPlay {
		t.Errorf("Expected NormalPlay, got %s", m)
	}
	if pacer.Ticks() != 200 {
		t.Errorf("Expected the full 200-tick window, got %d", pacer.Ticks())
	}
}

func TestStartSelectsNetworkConfiguration(t *testing.T) {
	s, _ := newSelector(identity(), press{in: 4, from: 300 * time.Millisecond, to: 450 * time.Millisecond})

	if m := s.Select(); m != NetworkConfiguration {
		t.Errorf("Expected NetworkConfiguration, got %s", m)
	}
}

func TestMomentaryPressIsNormalPlay(t *testing.T) {
	table := identity()
	before := table.Snapshot()

	s, _ := newSelector(table, press{in: 9, from: 100 * time.Millisecond, to: 400 * time.Millisecond})

	if m := s.Select(); m != NormalPlay {
		t.Errorf("Expected NormalPlay, got %s", m)
	}
	if table.Snapshot() != before {
		t.Error("Binding table should be unchanged")
	}
}

func TestHeldInputRequestsCalibration(t *testing.T) {
	s, _ := newSelector(identity(), press{in: 9, from: 100 * time.Millisecond})

	if m := s.Select(); m != Calibration {
		t.Errorf("Expected Calibration, got %s", m)
	}
}

func TestStartWinsWhenPressedSecond(t *testing.T) {
	s, _ := newSelector(identity(),
		press{in: 0, from: 100 * time.Millisecond},
		press{in: 4, from: 800 * time.Millisecond},
	)

	if m := s.Select(); m != NetworkConfiguration {
		t.Errorf("Expected NetworkConfiguration, got %s", m)
	}
}

func TestStartReleaseKeepsNetworkConfiguration(t *testing.T) {
	s, _ := newSelector(identity(),
		press{in: 4, from: 100 * time.Millisecond, to: 200 * time.Millisecond},
		press{in: 2, from: 500 * time.Millisecond},
	)

	if m := s.Select(); m != NetworkConfiguration {
		t.Errorf("Expected NetworkConfiguration, got %s", m)
	}
}

func TestAnyReleaseWithdrawsCalibration(t *testing.T) {
	// Input 1 is still held, but the release of input 3 clears the request.
	s, _ := newSelector(identity(),
		press{in: 1, from: 100 * time.Millisecond},
		press{in: 3, from: 100 * time.Millisecond, to: 600 * time.Millisecond},
	)

	if m := s.Select(); m != NormalPlay {
		t.Errorf("Expected NormalPlay, got %s", m)
	}
}

func TestStartFollowsBinding(t *testing.T) {
	table := identity()
	if err := table.Bind(button.Start, 11); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	s, _ := newSelector(table, press{in: 4, from: 100 * time.Millisecond})
	if m := s.Select(); m != Calibration {
		t.Errorf("Input 4 after rebinding: expected Calibration, got %s", m)
	}

	s, _ = newSelector(table, press{in: 11, from: 100 * time.Millisecond})
	if m := s.Select(); m != NetworkConfiguration {
		t.Errorf("Input 11 after rebinding: expected NetworkConfiguration, got %s", m)
	}
}

func TestHeldAtPowerOnIsIgnored(t *testing.T) {
	// Held before the first sample: no edge is ever seen.
	s, _ := newSelector(identity(), press{in: 6, from: 0})

	if m := s.Select(); m != NormalPlay {
		t.Errorf("Expected NormalPlay, got %s", m)
	}
}

func TestExhaustedPacerClosesWindow(t *testing.T) {
	s, pacer := newSelector(identity(), press{in: 6, from: 20 * time.Millisecond})
	pacer.Budget = 5

	if m := s.Select(); m != Calibration {
		t.Errorf("Expected Calibration, got %s", m)
	}
	if pacer.Ticks() != 5 {
		t.Errorf("Expected 5 ticks, got %d", pacer.Ticks())
	}
}

func TestModeString(t *testing.T) {
	names := map[Mode]string{
		NormalPlay:           "NormalPlay",
		Calibration:          "Calibration",
		NetworkConfiguration: "NetworkConfiguration",
		Mode(9):              "Unknown",
	}
	for m, want := range names {
		if m.String() != want {
			t.Errorf("Expected %s, got %s", want, m.String())
		}
	}
}
