package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-directmatrix/internal/config"
	"github.com/coreman2200/funtimes-directmatrix/internal/ws"
	"github.com/coreman2200/funtimes-directmatrix/matrix"
)

func main() {
	var (
		rows         = flag.Int("rows", 8, "matrix rows")
		cols         = flag.Int("cols", 8, "matrix columns")
		planes       = flag.Int("planes", 1, "color planes (1..4)")
		basePeriodUS = flag.Int("base-period-us", 150, "fastest scan period (microseconds)")
		rotation     = flag.Int("rotation", 0, "drawing rotation in quarter turns (0..3)")
		fps          = flag.Int("fps", 30, "demo pattern frames per second")
		addr         = flag.String("addr", "", "HTTP listen address for the stats stream (empty disables)")
		configPath   = flag.String("config", "", "path to config.yaml")
		preview      = flag.Bool("preview", false, "render to the terminal instead of GPIO")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// config.yaml overrides flags where it is filled in.
	var cfg *config.Config
	if *configPath != "" {
		if c, err := config.Load(*configPath); err != nil {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		} else {
			cfg = c
		}
	}

	eRows, eCols, ePlanes := *rows, *cols, *planes
	eBase := time.Duration(*basePeriodUS) * time.Microsecond
	eRot, eFPS := *rotation, *fps
	eAddr, ePreview := *addr, *preview
	var mcfg config.MatrixCfg
	if cfg != nil {
		mcfg = cfg.Matrix
		if mcfg.Rows > 0 {
			eRows = mcfg.Rows
		}
		if mcfg.Cols > 0 {
			eCols = mcfg.Cols
		}
		if mcfg.Planes > 0 {
			ePlanes = mcfg.Planes
		}
		if mcfg.BasePeriodUS > 0 {
			eBase = mcfg.BasePeriod()
		}
		if mcfg.Rotation != 0 {
			eRot = mcfg.Rotation
		}
		if cfg.FPS > 0 {
			eFPS = cfg.FPS
		}
		if cfg.Addr != "" {
			eAddr = cfg.Addr
		}
		ePreview = ePreview || cfg.Preview
	}

	m, err := matrix.New(eRows, eCols, ePlanes)
	if err != nil {
		log.Fatal().Err(err).Msg("matrix allocation")
	}
	m.SetRotation(eRot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	if !ePreview {
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("host init failed; falling back to preview")
			ePreview = true
		}
	}
	if !ePreview {
		rowPins, err := lookupPins(mcfg.RowPins)
		if err == nil && len(rowPins) == 0 {
			err = fmt.Errorf("no row pins configured")
		}
		var colPins []gpio.PinIO
		if err == nil {
			colPins, err = lookupPins(mcfg.ColPins)
		}
		var sr matrix.ShiftRegisterPins
		if err == nil {
			sr, err = lookupSR(mcfg.SR)
		}
		if err != nil {
			log.Warn().Err(err).Msg("pin lookup failed; falling back to preview")
			ePreview = true
		} else {
			if err := m.Begin(ctx, rowPins, colPins, sr, eBase); err != nil {
				log.Fatal().Err(err).Msg("matrix bring-up")
			}
			log.Info().
				Stringer("refresh", m.RefreshRate(eBase)).
				Dur("base_period", eBase).
				Msg("scan armed")
		}
	}

	var drawer display.Drawer
	if ePreview {
		drawer = screen.New(eCols)
		log.Info().Msg("previewing at the console")
	}

	if eAddr != "" {
		state := ws.NewState(m, time.Second)
		go state.RunStatsLoop(ctx)
		http.HandleFunc("/ws/stats", state.HandleStatsWS)
		go func() {
			if err := http.ListenAndServe(eAddr, nil); err != nil {
				log.Warn().Err(err).Msg("stats server stopped")
			}
		}()
		log.Info().Str("addr", eAddr).Msg("stats stream listening")
	}

	if eFPS <= 0 {
		eFPS = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(eFPS))
	defer ticker.Stop()
	frame := 0
	for {
		select {
		case <-ticker.C:
			drawPattern(m, frame, ePlanes)
			frame++
			if drawer != nil {
				if err := drawer.Draw(drawer.Bounds(), m.Image(), image.Point{}); err != nil {
					log.Warn().Err(err).Msg("preview draw failed")
				}
			}

		case sig := <-c:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			m.Clear()
			return

		case <-ctx.Done():
			return
		}
	}
}

// drawPattern sweeps an intensity gradient across the drawable extent.
func drawPattern(m *matrix.Matrix, frame, planes int) {
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			v := uint8((x + y + frame) % matrix.Levels)
			col := matrix.Gray(v)
			if planes > 1 {
				col = matrix.RGB(v,
					uint8((x+frame)%matrix.Levels),
					uint8((y+frame)%matrix.Levels))
			}
			m.DrawPixel(x, y, uint16(col))
		}
	}
	m.WriteDisplay()
}

func lookupPins(names []string) ([]gpio.PinIO, error) {
	pins := make([]gpio.PinIO, 0, len(names))
	for _, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("no GPIO pin named %q", n)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

func lookupSR(cfg config.SRPins) (matrix.ShiftRegisterPins, error) {
	var sr matrix.ShiftRegisterPins
	if cfg.Data == "" && cfg.Clock == "" && len(cfg.Latch) == 0 {
		return sr, nil
	}
	var err error
	if sr.Data = gpioreg.ByName(cfg.Data); sr.Data == nil {
		err = fmt.Errorf("no GPIO pin named %q", cfg.Data)
	}
	if err == nil {
		if sr.Clock = gpioreg.ByName(cfg.Clock); sr.Clock == nil {
			err = fmt.Errorf("no GPIO pin named %q", cfg.Clock)
		}
	}
	for _, n := range cfg.Latch {
		if err != nil {
			break
		}
		if n == "" {
			sr.Latch = append(sr.Latch, nil)
			continue
		}
		p := gpioreg.ByName(n)
		if p == nil {
			err = fmt.Errorf("no GPIO pin named %q", n)
			break
		}
		sr.Latch = append(sr.Latch, p)
	}
	if err != nil {
		return matrix.ShiftRegisterPins{}, err
	}
	return sr, nil
}
