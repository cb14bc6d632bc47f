package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/binding"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/button"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/debounce"
)

// recorder is a Transport that logs every call.
type recorder struct {
	connected bool
	calls     []string
	hat       button.Hat
	sent      int
}

func (r *recorder) Connected() bool     { return r.connected }
func (r *recorder) PressStart()         { r.calls = append(r.calls, "PressStart") }
func (r *recorder) ReleaseStart()       { r.calls = append(r.calls, "ReleaseStart") }
func (r *recorder) PressSelect()        { r.calls = append(r.calls, "PressSelect") }
func (r *recorder) ReleaseSelect()      { r.calls = append(r.calls, "ReleaseSelect") }
func (r *recorder) Press(n uint8)       { r.calls = append(r.calls, fmt.Sprintf("Press%d", n)) }
func (r *recorder) Release(n uint8)     { r.calls = append(r.calls, fmt.Sprintf("Release%d", n)) }
func (r *recorder) SetHat(h button.Hat) { r.hat = h }
func (r *recorder) SendReport()         { r.sent++ }

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

const settle = 5 * time.Millisecond

type fixture struct {
	clock   *clock.Mock
	levels  *debounce.Levels
	table   *binding.Table
	builder *Builder
	out     *recorder
}

func newFixture(mode config.SOCDMode) *fixture {
	f := &fixture{
		clock:  clock.NewMock(),
		levels: &debounce.Levels{},
		table:  binding.New(mapStore{}),
		out:    &recorder{connected: true},
	}
	f.table.Load()
	bank := debounce.NewBank(f.levels, f.clock, settle)
	f.builder = NewBuilder(bank, f.table, mode)
	return f
}

// hold sets the raw level of the inputs bound to ls.
func (f *fixture) hold(asserted bool, ls ...button.Logical) {
	for _, l := range ls {
		f.levels[f.table.Resolve(l)] = asserted
	}
}

// run ticks n times, 1ms apart, and returns the last hat.
func (f *fixture) run(n int) button.Hat {
	var hat button.Hat
	for i := 0; i < n; i++ {
		hat = f.builder.Tick(f.out)
		f.clock.Add(time.Millisecond)
	}
	return hat
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		mode config.SOCDMode
		in   Directions
		want Directions
	}{
		{"none", config.SOCDUpPriority, Directions{}, Directions{}},
		{"up down up priority", config.SOCDUpPriority, Directions{Up: true, Down: true}, Directions{Up: true}},
		{"up down neutral", config.SOCDNeutral, Directions{Up: true, Down: true}, Directions{}},
		{"left right up priority", config.SOCDUpPriority, Directions{Left: true, Right: true}, Directions{}},
		{"left right neutral", config.SOCDNeutral, Directions{Left: true, Right: true}, Directions{}},
		{"all four up priority", config.SOCDUpPriority, Directions{true, true, true, true}, Directions{Up: true}},
		{"all four neutral", config.SOCDNeutral, Directions{true, true, true, true}, Directions{}},
		{"down left", config.SOCDNeutral, Directions{Down: true, Left: true}, Directions{Down: true, Left: true}},
	}

	for _, tt := range tests {
		if got := Resolve(tt.mode, tt.in); got != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, got)
		}
	}
}

func TestHat(t *testing.T) {
	tests := []struct {
		in   Directions
		want button.Hat
	}{
		{Directions{}, button.Centered},
		{Directions{Up: true}, button.HatUp},
		{Directions{Up: true, Right: true}, button.HatUpRight},
		{Directions{Right: true}, button.HatRight},
		{Directions{Down: true, Right: true}, button.HatDownRight},
		{Directions{Down: true}, button.HatDown},
		{Directions{Down: true, Left: true}, button.HatDownLeft},
		{Directions{Left: true}, button.HatLeft},
		{Directions{Up: true, Left: true}, button.HatUpLeft},
	}

	for _, tt := range tests {
		if got := Hat(tt.in); got != tt.want {
			t.Errorf("Hat(%+v): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestTickSendsEveryTick(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	if hat := f.run(3); hat != button.Centered {
		t.Errorf("Expected centered hat, got %s", hat)
	}
	if f.out.sent != 3 {
		t.Errorf("Expected 3 reports, got %d", f.out.sent)
	}
	if len(f.out.calls) != 0 {
		t.Errorf("Expected no button events, got %v", f.out.calls)
	}
}

func TestUpDownUpPriority(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	f.hold(true, button.Up, button.Down)
	if hat := f.run(10); hat != button.HatUp {
		t.Errorf("Expected Up, got %s", hat)
	}

	f.hold(true, button.Left)
	if hat := f.run(10); hat != button.HatUpLeft {
		t.Errorf("Expected UpLeft, got %s", hat)
	}
}

func TestUpDownNeutral(t *testing.T) {
	f := newFixture(config.SOCDNeutral)

	f.hold(true, button.Up, button.Down)
	if hat := f.run(10); hat != button.Centered {
		t.Errorf("Expected Centered, got %s", hat)
	}
}

func TestLeftRightCancel(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	f.hold(true, button.Left, button.Right, button.Down)
	if hat := f.run(10); hat != button.HatDown {
		t.Errorf("Expected Down, got %s", hat)
	}
}

func TestActionPressRelease(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	f.hold(true, button.A)
	f.run(10)
	f.hold(false, button.A)
	f.run(10)

	want := []string{"Press1", "Release1"}
	if fmt.Sprint(f.out.calls) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, f.out.calls)
	}
}

func TestActionNumbers(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	f.hold(true, button.B, button.Y, button.R2)
	f.run(10)

	want := []string{"Press2", "Press4", "Press8"}
	if fmt.Sprint(f.out.calls) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, f.out.calls)
	}
}

func TestStartSelectIndependentOfActions(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	f.hold(true, button.Start, button.Select, button.X)
	f.run(10)

	want := []string{"PressStart", "PressSelect", "Press3"}
	if fmt.Sprint(f.out.calls) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, f.out.calls)
	}

	f.out.calls = nil
	f.hold(false, button.Start, button.Select)
	f.run(10)

	want = []string{"ReleaseStart", "ReleaseSelect"}
	if fmt.Sprint(f.out.calls) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, f.out.calls)
	}
}

func TestBounceIsFiltered(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	// Chatter shorter than the settle interval never produces an event.
	for i := 0; i < 6; i++ {
		f.hold(i%2 == 0, button.A)
		f.run(2)
	}
	f.hold(false, button.A)
	f.run(10)

	if len(f.out.calls) != 0 {
		t.Errorf("Expected no events, got %v", f.out.calls)
	}
}

func TestRemappedInput(t *testing.T) {
	f := newFixture(config.SOCDUpPriority)

	if err := f.table.Bind(button.A, 7); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	f.levels[7] = true
	f.run(10)

	// Input 7 drives both A (bound) and B (identity).
	want := []string{"Press1", "Press2"}
	if fmt.Sprint(f.out.calls) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, f.out.calls)
	}

	f.levels[7] = false
	f.run(10)

	want = append(want, "Release1", "Release2")
	if fmt.Sprint(f.out.calls) != fmt.Sprint(want) {
		t.Errorf("After release: expected %v, got %v", want, f.out.calls)
	}
}
