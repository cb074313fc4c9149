package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SRPins names the shift-register lines. Latch carries one entry per
// color plane; an empty string marks that plane direct-wired.
type SRPins struct {
	Data  string   `yaml:"data"`
	Clock string   `yaml:"clock"`
	Latch []string `yaml:"latch"`
}

// MatrixCfg describes the panel geometry and wiring. Pin names are
// resolved through the host's GPIO registry at startup.
type MatrixCfg struct {
	Rows   int `yaml:"rows"`
	Cols   int `yaml:"cols"`
	Planes int `yaml:"planes"`

	RowPins []string `yaml:"row_pins"`
	ColPins []string `yaml:"col_pins"`
	SR      SRPins   `yaml:"sr,omitempty"`

	BasePeriodUS int `yaml:"base_period_us"` // e.g. 150
	Rotation     int `yaml:"rotation"`       // quarter turns, 0..3
}

type Config struct {
	Matrix  MatrixCfg `yaml:"matrix"`
	FPS     int       `yaml:"fps"`
	Addr    string    `yaml:"addr"`
	Preview bool      `yaml:"preview"`
}

// BasePeriod converts the configured microsecond value.
func (m MatrixCfg) BasePeriod() time.Duration {
	return time.Duration(m.BasePeriodUS) * time.Microsecond
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
