package matrix

import (
	"strconv"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type event struct {
	pin   string
	level gpio.Level
}

type trace struct {
	events []event
}

func (tr *trace) reset() { tr.events = nil }

// tracePin records every Out call into a shared trace so tests can
// replay the scan's line activity.
type tracePin struct {
	gpiotest.Pin
	tr  *trace
	cur gpio.Level
}

func (p *tracePin) Out(l gpio.Level) error {
	p.cur = l
	p.tr.events = append(p.tr.events, event{p.N, l})
	return p.Pin.Out(l)
}

func (p *tracePin) level() gpio.Level {
	return p.cur
}

type fixture struct {
	tr    *trace
	buf   *Buffer
	rows  []*tracePin
	cols  []*tracePin
	data  *tracePin
	clock *tracePin
	latch []*tracePin
	sched *Scheduler
	eng   *engine
}

// newFixture wires an engine to trace pins. latched[i] selects a shift
// register for plane i; direct planes consume one bank of column pins
// each, in plane order.
func newFixture(t *testing.T, rows, cols, planes int, latched []bool) *fixture {
	t.Helper()
	tr := &trace{}
	mk := func(name string, num int) *tracePin {
		return &tracePin{Pin: gpiotest.Pin{N: name, Num: num}, tr: tr}
	}

	f := &fixture{tr: tr, buf: NewBuffer(rows, cols)}
	rowPins := make([]gpio.PinIO, rows)
	for i := 0; i < rows; i++ {
		p := mk("row"+strconv.Itoa(i), i)
		// Rows idle High, matching bring-up state.
		p.cur = gpio.High
		f.rows = append(f.rows, p)
		rowPins[i] = p
	}

	direct := 0
	for _, l := range latched {
		if !l {
			direct++
		}
	}
	colPins := make([]gpio.PinIO, 0, cols*direct)
	for i := 0; i < cols*direct; i++ {
		p := mk("col"+strconv.Itoa(i), 100+i)
		f.cols = append(f.cols, p)
		colPins = append(colPins, p)
	}

	sr := ShiftRegisterPins{}
	if anyTrue(latched) {
		f.data = mk("data", 200)
		f.clock = mk("clock", 201)
		sr.Data = f.data
		sr.Clock = f.clock
		for i, l := range latched {
			if !l {
				sr.Latch = append(sr.Latch, nil)
				f.latch = append(f.latch, nil)
				continue
			}
			p := mk("latch"+strconv.Itoa(i), 210+i)
			sr.Latch = append(sr.Latch, p)
			f.latch = append(f.latch, p)
		}
	}

	base := 150 * time.Microsecond
	f.sched = NewScheduler(base)
	f.eng = newEngine(f.buf, rowPins, colPins, sr, planes, f.sched, periodTable(base))
	return f
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

func (f *fixture) activeRows() int {
	n := 0
	for _, p := range f.rows {
		if p.level() == gpio.Low {
			n++
		}
	}
	return n
}

func TestScanSingleRowActive(t *testing.T) {
	f := newFixture(t, 8, 8, 1, []bool{false})
	for i := 0; i < 8*4*2; i++ {
		f.eng.scan()
		if got := f.activeRows(); got != 1 {
			t.Fatalf("scan %d: %d rows sinking, want exactly 1", i, got)
		}
	}
}

func TestScanCycleClosure(t *testing.T) {
	f := newFixture(t, 8, 8, 1, []bool{false})
	base := 150 * time.Microsecond
	for sweep := 0; sweep < 4; sweep++ {
		for row := 0; row < 8; row++ {
			f.eng.scan()
			if row == 0 {
				if got, want := f.sched.Period(), base<<sweep; got != want {
					t.Fatalf("sweep %d: period %v, want %v", sweep, got, want)
				}
			}
		}
	}
	if f.eng.row != 0 || f.eng.mask != 1 || f.eng.slot != 0 {
		t.Fatalf("cursor after full cycle: row=%d mask=%d slot=%d, want 0/1/0",
			f.eng.row, f.eng.mask, f.eng.slot)
	}
}

func TestScanIntensityDecoding(t *testing.T) {
	f := newFixture(t, 2, 2, 2, []bool{false, false})
	cells := [2][2]uint16{
		{0x35, 0x9C},
		{0x42, 0xFF},
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			f.buf.Set(r, c, cells[r][c])
		}
	}

	for i := 0; i < 2*4; i++ {
		row, mask := f.eng.row, f.eng.mask
		f.eng.scan()
		for plane := 0; plane < 2; plane++ {
			pm := mask << (PlaneBits * plane)
			for c := 0; c < 2; c++ {
				want := gpio.Level(cells[row][c]&pm != 0)
				if got := f.cols[plane*2+c].level(); got != want {
					t.Fatalf("row %d mask %#x plane %d col %d: level %v, want %v",
						row, mask, plane, c, got, want)
				}
			}
		}
	}
}

func TestScanShiftRegisterOrder(t *testing.T) {
	f := newFixture(t, 2, 3, 2, []bool{false, true})
	f.buf.Set(0, 0, 0x11)
	f.buf.Set(0, 1, 0x00)
	f.buf.Set(0, 2, 0xF2)

	f.tr.reset()
	f.eng.scan()

	want := []event{
		{"row1", gpio.High},
		{"col0", gpio.High},
		{"col1", gpio.Low},
		{"col2", gpio.Low},
		{"latch1", gpio.Low},
		{"clock", gpio.Low}, {"data", gpio.High}, {"clock", gpio.High},
		{"clock", gpio.Low}, {"data", gpio.Low}, {"clock", gpio.High},
		{"clock", gpio.Low}, {"data", gpio.High}, {"clock", gpio.High},
		{"latch1", gpio.High},
		{"row0", gpio.Low},
	}
	if len(f.tr.events) != len(want) {
		t.Fatalf("trace has %d events, want %d: %v", len(f.tr.events), len(want), f.tr.events)
	}
	for i, e := range want {
		if f.tr.events[i] != e {
			t.Fatalf("event %d: got %v, want %v", i, f.tr.events[i], e)
		}
	}
}

func TestClearProducesAllOffTrace(t *testing.T) {
	f := newFixture(t, 4, 4, 2, []bool{false, true})
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			f.buf.Set(r, c, 0xFFFF)
		}
	}
	for i := 0; i < 4*4; i++ {
		f.eng.scan()
	}

	f.buf.Clear()
	f.tr.reset()
	for i := 0; i < 4*4; i++ {
		f.eng.scan()
	}
	for _, e := range f.tr.events {
		switch e.pin {
		case "data", "col0", "col1", "col2", "col3":
			if e.level == gpio.High {
				t.Fatalf("%s driven High after clear", e.pin)
			}
		}
	}
}

func TestPeriodTable(t *testing.T) {
	for _, base := range []time.Duration{150 * time.Microsecond, 7 * time.Nanosecond, time.Millisecond} {
		got := periodTable(base)
		want := [4]time.Duration{base, 2 * base, 4 * base, 8 * base}
		if got != want {
			t.Fatalf("periodTable(%v) = %v, want %v", base, got, want)
		}
	}
}
