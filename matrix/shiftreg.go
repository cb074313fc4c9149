package matrix

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// ShiftRegisterPins describes the serial fan-out for column planes that
// are not wired pin per pin. Data and Clock are shared by every
// registered plane; Latch holds one output-latch line per color plane,
// where a nil entry means that plane's columns are direct-wired.
type ShiftRegisterPins struct {
	Data  gpio.PinIO
	Clock gpio.PinIO
	Latch []gpio.PinIO
}

func (sr ShiftRegisterPins) latchFor(plane int) gpio.PinIO {
	if plane < 0 || plane >= len(sr.Latch) {
		return nil
	}
	return sr.Latch[plane]
}

func (sr ShiftRegisterPins) anyLatched() bool {
	for _, l := range sr.Latch {
		if l != nil {
			return true
		}
	}
	return false
}

// shiftBit clocks one bit into the register chain. The register
// samples Data on the rising Clock edge.
func (sr ShiftRegisterPins) shiftBit(l gpio.Level) {
	sr.Clock.Out(gpio.Low)
	sr.Data.Out(l)
	sr.Clock.Out(gpio.High)
}

// configure sets every register line to output and clocks an
// alternating pattern through each latched plane so the outputs start
// in a known state. bits is the register width, i.e. the column count.
func (sr ShiftRegisterPins) configure(bits int) error {
	if !sr.anyLatched() {
		return nil
	}
	if sr.Data == nil || sr.Clock == nil {
		return fmt.Errorf("shift register: latch lines set but data/clock missing")
	}
	if err := sr.Data.Out(gpio.Low); err != nil {
		return fmt.Errorf("shift register data %s: %w", sr.Data, err)
	}
	if err := sr.Clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("shift register clock %s: %w", sr.Clock, err)
	}
	for _, latch := range sr.Latch {
		if latch == nil {
			continue
		}
		if err := latch.Out(gpio.Low); err != nil {
			return fmt.Errorf("shift register latch %s: %w", latch, err)
		}
		for i := 0; i <= bits; i++ {
			sr.shiftBit(gpio.Level(i&1 == 1))
		}
		if err := latch.Out(gpio.High); err != nil {
			return fmt.Errorf("shift register latch %s: %w", latch, err)
		}
	}
	return nil
}
