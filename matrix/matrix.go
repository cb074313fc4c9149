// Package matrix drives a directly-addressed LED matrix: row sink
// lines multiplexed by a timer-paced scan, column source lines wired
// either pin per pin or fanned out through shift registers, and
// per-pixel intensity approximated with binary code modulation.
package matrix

import (
	"context"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Matrix owns the frame buffer, the pin tables and the scan timing.
// Draw calls write into the buffer at any time; once Begin has run,
// the scan goroutine continuously renders the live buffer, so there is
// no explicit present step.
type Matrix struct {
	rows, cols, planes int
	rotation           int

	buf     *Buffer
	rowPins []gpio.PinIO
	colPins []gpio.PinIO
	sr      ShiftRegisterPins

	periods [4]time.Duration
	sched   *Scheduler
	eng     *engine
	began   bool
}

// New allocates a matrix of rows x cols cells with 1 to 4 color
// planes. The geometry is fixed for the life of the object.
func New(rows, cols, planes int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("matrix: invalid geometry %dx%d", rows, cols)
	}
	if planes < 1 || planes > MaxPlanes {
		return nil, fmt.Errorf("matrix: %d color planes, want 1..%d", planes, MaxPlanes)
	}
	return &Matrix{
		rows:   rows,
		cols:   cols,
		planes: planes,
		buf:    NewBuffer(rows, cols),
	}, nil
}

// directPlanes counts the planes whose columns are wired pin per pin.
func (m *Matrix) directPlanes(sr ShiftRegisterPins) int {
	n := 0
	for plane := 0; plane < m.planes; plane++ {
		if sr.latchFor(plane) == nil {
			n++
		}
	}
	return n
}

// Begin is the one-shot bring-up: it validates the pin tables against
// the declared geometry, drives every line to its off polarity (rows
// idle High since they sink, columns idle Low), initializes the shift
// registers, derives the period table and arms the scan. The scan runs
// until ctx is cancelled.
func (m *Matrix) Begin(ctx context.Context, rowPins, colPins []gpio.PinIO, sr ShiftRegisterPins, basePeriod time.Duration) error {
	if m.began {
		return fmt.Errorf("matrix: Begin called twice")
	}
	if len(rowPins) != m.rows {
		return fmt.Errorf("matrix: %d row pins for %d rows", len(rowPins), m.rows)
	}
	if want := m.cols * m.directPlanes(sr); len(colPins) != want {
		return fmt.Errorf("matrix: %d column pins, want %d (%d direct planes x %d columns)",
			len(colPins), want, m.directPlanes(sr), m.cols)
	}
	if basePeriod <= 0 {
		return fmt.Errorf("matrix: invalid base period %v", basePeriod)
	}

	for _, p := range rowPins {
		if err := p.Out(gpio.High); err != nil {
			return fmt.Errorf("matrix: row pin %s: %w", p, err)
		}
	}
	for _, p := range colPins {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("matrix: column pin %s: %w", p, err)
		}
	}
	if err := sr.configure(m.cols); err != nil {
		return fmt.Errorf("matrix: %w", err)
	}

	m.rowPins = rowPins
	m.colPins = colPins
	m.sr = sr
	m.periods = periodTable(basePeriod)
	m.sched = NewScheduler(m.periods[0])
	m.eng = newEngine(m.buf, rowPins, colPins, sr, m.planes, m.sched, m.periods)
	m.began = true
	m.sched.Start(ctx, m.eng.scan)
	return nil
}

// Clear zeroes the whole display. Safe to call while the scan runs,
// with no atomicity across the buffer as a whole.
func (m *Matrix) Clear() {
	m.buf.Clear()
}

// WriteDisplay is a no-op: the scan renders the live buffer, so there
// is nothing to present. Kept for symmetry with flush-style drivers.
func (m *Matrix) WriteDisplay() {
}

// ScanRuntime returns the duration of the most recent scan invocation.
func (m *Matrix) ScanRuntime() time.Duration {
	if m.eng == nil {
		return 0
	}
	return time.Duration(m.eng.runtime.Load())
}

// ScanLatency returns the elapsed time between the two most recent
// scan invocations.
func (m *Matrix) ScanLatency() time.Duration {
	if m.eng == nil {
		return 0
	}
	return time.Duration(m.eng.latency.Load())
}

// RefreshRate reports how often the full modulation cycle repeats for
// the given base period: rows x (1+2+4+8) base periods per cycle.
func (m *Matrix) RefreshRate(basePeriod time.Duration) physic.Frequency {
	cycle := time.Duration(m.rows) * basePeriod * (Levels - 1)
	if cycle <= 0 {
		return 0
	}
	return physic.Frequency(int64(time.Second) * int64(physic.Hertz) / int64(cycle))
}

// Buffer exposes the live frame buffer.
func (m *Matrix) Buffer() *Buffer {
	return m.buf
}

// SetRotation selects the drawing orientation, one of 0..3 in
// quarter-turn steps.
func (m *Matrix) SetRotation(r int) {
	m.rotation = r & 3
}

// Rotation returns the current drawing orientation.
func (m *Matrix) Rotation() int {
	return m.rotation
}

// Width returns the drawable extent along x for the current rotation.
func (m *Matrix) Width() int {
	if m.rotation&1 == 1 {
		return m.rows
	}
	return m.cols
}

// Height returns the drawable extent along y for the current rotation.
func (m *Matrix) Height() int {
	if m.rotation&1 == 1 {
		return m.cols
	}
	return m.rows
}

// DrawPixel writes one packed intensity word at (x, y) in the rotated
// drawing space. Coordinates outside the drawable extent are silently
// discarded.
func (m *Matrix) DrawPixel(x, y int, v uint16) {
	if x < 0 || x >= m.Width() || y < 0 || y >= m.Height() {
		return
	}
	switch m.rotation {
	case 1:
		x, y = y, x
		x = m.cols - 1 - x
	case 2:
		x = m.cols - 1 - x
		y = m.rows - 1 - y
	case 3:
		x, y = y, x
		y = m.rows - 1 - y
	}
	m.buf.Set(y, x, v)
}

// Image renders the buffer for previewing; the scan never uses it.
func (m *Matrix) Image() *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, m.cols, m.rows))
	for y := 0; y < m.rows; y++ {
		for x := 0; x < m.cols; x++ {
			im.SetNRGBA(x, y, Color(m.buf.At(y, x)).ToNRGBA(m.planes))
		}
	}
	return im
}
