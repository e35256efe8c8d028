// Package config loads cmd/pagersim's runtime configuration from a
// YAML file via viper, the way internal/config.go loads novasql's
// server config in the reference corpus.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config describes the simulated hardware and the pager pool size.
type Config struct {
	MMU struct {
		PageSize int `mapstructure:"page_size"`
		Pages    int `mapstructure:"pages"`
		Frames   int `mapstructure:"frames"`
	} `mapstructure:"mmu"`
	Disk struct {
		SectorBytes     int    `mapstructure:"sector_bytes"`
		SectorsPerTrack int    `mapstructure:"sectors_per_track"`
		Tracks          int    `mapstructure:"tracks"`
		Path            string `mapstructure:"path"`
	} `mapstructure:"disk"`
	Pager struct {
		NumPagers int `mapstructure:"num_pagers"`
	} `mapstructure:"pager"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Default returns the configuration spec §8's end-to-end scenarios are
// sized against: page size 4096, 2 frames, 4 pages per process, 8 swap
// blocks.
func Default() *Config {
	var c Config
	c.MMU.PageSize = 4096
	c.MMU.Pages = 4
	c.MMU.Frames = 2
	c.Disk.SectorBytes = 512
	c.Disk.SectorsPerTrack = 16
	c.Disk.Tracks = 4
	c.Disk.Path = ""
	c.Pager.NumPagers = 2
	c.Log.Level = "info"
	return &c
}

// Load reads path as YAML and merges it over Default's values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
