package matrix

import (
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// engine walks the matrix one row per invocation, presenting the
// column pattern of the active bit-plane before switching row sinks.
// Intensity is synthesized with binary code modulation: each bit-plane
// is displayed for a period proportional to its weight, programmed
// into the scheduler at the top of every sweep. Scanning one plane per
// sweep keeps every invocation short; emitting all four planes inside
// a single row visit stretches the invocation enough to slow the full
// refresh below an acceptable rate.
//
// The engine references, but does not own, the pin tables and the
// buffer. scan must never block and has no error path: a failed pin
// write only costs one row of one plane for one cycle.
type engine struct {
	buf    *Buffer
	rows   []gpio.PinIO
	cols   []gpio.PinIO
	sr     ShiftRegisterPins
	planes int

	sched   *Scheduler
	periods [4]time.Duration

	// Scan cursor, persisted across invocations. Touched only from
	// the scheduler goroutine.
	row  int
	mask uint16
	slot int

	last time.Time

	// Profiling counters, overwritten every invocation.
	runtime atomic.Int64
	latency atomic.Int64
}

func newEngine(buf *Buffer, rows, cols []gpio.PinIO, sr ShiftRegisterPins, planes int, sched *Scheduler, periods [4]time.Duration) *engine {
	return &engine{
		buf:     buf,
		rows:    rows,
		cols:    cols,
		sr:      sr,
		planes:  planes,
		sched:   sched,
		periods: periods,
		mask:    1,
	}
}

// scan refreshes one matrix row for the current bit-plane.
func (e *engine) scan() {
	now := time.Now()
	if !e.last.IsZero() {
		e.latency.Store(now.Sub(e.last).Nanoseconds())
	}
	e.last = now

	oldrow := e.row - 1
	if e.row == 0 {
		// Starting a new sweep: pace the whole sweep at this
		// bit-plane's period before anything else.
		e.sched.SetPeriod(e.periods[e.slot])
		oldrow = len(e.rows) - 1
	}

	// Shut off the previous row before touching the columns so two
	// rows are never driven at once.
	e.rows[oldrow].Out(gpio.High)

	mask := e.mask
	offset := 0
	for plane := 0; plane < e.planes; plane++ {
		if latch := e.sr.latchFor(plane); latch == nil {
			for col := 0; col < e.buf.cols; col++ {
				e.cols[offset+col].Out(gpio.Level(e.buf.At(e.row, col)&mask != 0))
			}
			offset += e.buf.cols
		} else {
			latch.Out(gpio.Low)
			for col := 0; col < e.buf.cols; col++ {
				e.sr.shiftBit(gpio.Level(e.buf.At(e.row, col)&mask != 0))
			}
			latch.Out(gpio.High)
		}
		mask <<= PlaneBits
	}

	// Columns are set; sink the new row to light it.
	e.rows[e.row].Out(gpio.Low)

	e.row++
	if e.row >= e.buf.rows {
		e.row = 0
		e.mask <<= 1
		e.slot++
		if e.mask >= Levels {
			e.mask = 1
			e.slot = 0
		}
	}

	e.runtime.Store(time.Since(now).Nanoseconds())
}
