package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gentam/xspi"
	"github.com/gentam/xspi/bus"
)

// Config is the board profile.
type Config struct {
	// Backend is "sim" or "ftdi".
	Backend    string `yaml:"backend"`
	Mode       string `yaml:"mode"`
	Prescaler  uint32 `yaml:"prescaler"`
	PollBudget int    `yaml:"poll_budget"`

	Sim struct {
		// Image persists the simulated flash contents between runs.
		Image string `yaml:"image"`
	} `yaml:"sim"`

	FTDI struct {
		HoldReset bool `yaml:"hold_reset"`
	} `yaml:"ftdi"`
}

func defaultConfig() Config {
	cfg := Config{
		Backend:    "sim",
		Mode:       "single",
		Prescaler:  xspi.DefaultClockPrescaler,
		PollBudget: xspi.DefaultPollBudget,
	}
	cfg.Sim.Image = "xspi-sim.img"
	cfg.FTDI.HoldReset = true
	return cfg
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := bus.ParseMode(cfg.Mode); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	switch cfg.Backend {
	case "sim", "ftdi":
	default:
		return cfg, fmt.Errorf("config %s: unknown backend %q", path, cfg.Backend)
	}
	return cfg, nil
}
