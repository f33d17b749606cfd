package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Runtime holds process settings read from the environment.
type Runtime struct {
	DBPath       string        `env:"VELORIA_DB_PATH" envDefault:"data/veloria.db"`
	APIPort      int           `env:"VELORIA_API_PORT" envDefault:"8080"`
	TickInterval time.Duration `env:"VELORIA_TICK_INTERVAL" envDefault:"1s"` // real time per simulated hour
	Seed         int64         `env:"VELORIA_SEED" envDefault:"42"`
	TuningFile   string        `env:"VELORIA_TUNING_FILE"`
	AdminKey     string        `env:"VELORIA_ADMIN_KEY"`
	ArchiveDir   string        `env:"VELORIA_ARCHIVE_DIR"` // empty disables the chronicle archive
	CORSOrigins  []string      `env:"VELORIA_CORS_ORIGINS" envSeparator:","`
}

// LoadRuntime parses Runtime from environment variables.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := env.Parse(&rt); err != nil {
		return rt, fmt.Errorf("parse env: %w", err)
	}
	if rt.TickInterval < 0 {
		return rt, fmt.Errorf("parse env: VELORIA_TICK_INTERVAL must not be negative")
	}
	return rt, nil
}
