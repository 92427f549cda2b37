package config

import (
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Defaults for settings no config file overrides.
const (
	DefaultMaxInstructions = uint64(0) // unlimited
	DefaultMaxTime         = uint64(0) // unlimited
	DefaultMaxPages        = 100
)

// Config holds the merged settings of all loaded config files. Later
// files win key by key, nested objects merge recursively.
type Config struct {
	v *viper.Viper
}

func New() *Config {
	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("emulator.max-instructions", DefaultMaxInstructions)
	v.SetDefault("emulator.max-time", DefaultMaxTime)
	v.SetDefault("emulator.max-pages", DefaultMaxPages)
	v.SetDefault("idempotency.max-region-size", uint64(1000))
	return &Config{v: v}
}

// Add merges one more config file into the settings.
func (c *Config) Add(cfg_file string) *errors.Error {
	c.v.SetConfigFile(cfg_file)
	if err := c.v.MergeInConfig(); err != nil {
		log.WithFields(log.Fields{"error": err, "file": cfg_file}).Error("Failed merging configuration file")
		return errors.Wrap(err, 0)
	}
	log.WithFields(log.Fields{"file": cfg_file}).Debug("Merged configuration file")
	return nil
}

func (c *Config) MaxInstructions() uint64 {
	return c.v.GetUint64("emulator.max-instructions")
}

func (c *Config) MaxTime() uint64 {
	return c.v.GetUint64("emulator.max-time")
}

func (c *Config) MaxPages() int {
	return c.v.GetInt("emulator.max-pages")
}

func (c *Config) MaxRegionSize() uint64 {
	return c.v.GetUint64("idempotency.max-region-size")
}

// Settings exposes the raw merged tree.
func (c *Config) Settings() map[string]interface{} {
	return c.v.AllSettings()
}
