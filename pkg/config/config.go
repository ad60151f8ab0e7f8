/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DecodeConfig holds the decode defaults. Checksums are skipped unless
// skip_checksums is set to false, the hdr_crc8 and recsum algorithms
// are not confirmed against the firmware.
type DecodeConfig struct {
	SkipChecksums bool   `yaml:"skip_checksums"`
	Output        string `yaml:"output"`
}

type PanicConfig struct {
	BaseOffset  int `yaml:"base_offset"`
	BlockStride int `yaml:"block_stride"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ApiConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type Config struct {
	Log      *LogConfig    `yaml:"log"`
	Decode   *DecodeConfig `yaml:"decode"`
	Panic    *PanicConfig  `yaml:"panic"`
	Store    *StoreConfig  `yaml:"store"`
	Api      *ApiConfig    `yaml:"api"`
	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file on top of the current values.
// A missing file is not an error, the defaults stay in place.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	c.fillDefaults()
	return c.Validate()
}

// fillDefaults restores sections that were left empty in the file
func (c *Config) fillDefaults() {
	defaults := NewDefaultConfig()
	if c.Log == nil {
		c.Log = defaults.Log
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Decode == nil {
		c.Decode = defaults.Decode
	}
	if c.Decode.Output == "" {
		c.Decode.Output = defaults.Decode.Output
	}
	if c.Panic == nil {
		c.Panic = defaults.Panic
	}
	if c.Store == nil || c.Store.Path == "" {
		c.Store = defaults.Store
	}
	if c.Api == nil {
		c.Api = defaults.Api
	}
}

// Validate checks the values that can not be fixed up silently
func (c *Config) Validate() error {
	switch c.Decode.Output {
	case "yaml", "json":
	default:
		return ErrInvalidOutput{Output: c.Decode.Output}
	}
	if c.Panic.BlockStride <= 0 || c.Panic.BaseOffset < 0 {
		return fmt.Errorf("Invalid panic layout: base offset %d stride %d", c.Panic.BaseOffset, c.Panic.BlockStride)
	}
	return nil
}

// Path returns the file the config is loaded from and persisted to
func (c *Config) Path() string {
	return c.filepath
}

// SetPath changes the file the config is loaded from and persisted to
func (c *Config) SetPath(path string) {
	c.filepath = path
}

// ApiAddr returns host:port of the API server
func (c *Config) ApiAddr() string {
	return fmt.Sprintf("%s:%d", c.Api.Address, c.Api.Port)
}

// String returns the config as yaml
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("---\n%s", data)
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, StoreFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Log: &LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Decode: &DecodeConfig{
			SkipChecksums: DefaultSkipChecksums,
			Output:        DefaultOutput,
		},
		Panic: &PanicConfig{
			BaseOffset:  DefaultPanicBaseOffset,
			BlockStride: DefaultPanicBlockStride,
		},
		Store: &StoreConfig{
			Path: DefaultStorePath(),
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		filepath: DefaultConfigPath(),
	}
}
