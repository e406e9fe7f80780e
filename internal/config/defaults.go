package config

import "time"

// SetDefaults sets default values for all configuration fields.
func SetDefaults(cfg *Config) {
	// Simulation defaults: 8 ticks per second.
	if cfg.Simulation.TickInterval == 0 {
		cfg.Simulation.TickInterval = 125 * time.Millisecond
	}
	if cfg.Simulation.Speed == 0 {
		cfg.Simulation.Speed = 1.0
	}
	if cfg.Simulation.BreakChance == 0 {
		cfg.Simulation.BreakChance = 0.1
	}

	// Storage defaults
	if cfg.Storage.SavePath == "" {
		cfg.Storage.SavePath = "data/save.txt"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "data/forge.db"
	}
	if cfg.Storage.AutosaveInterval == 0 {
		cfg.Storage.AutosaveInterval = time.Minute
	}

	// API defaults
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.RateLimit == 0 {
		cfg.API.RateLimit = 5
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 10
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
