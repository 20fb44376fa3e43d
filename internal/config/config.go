package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLongPressMS = 1200
	MaxLongPressMS     = 2000
	DefaultBrightness  = 127
	MaxBrightness      = 255
)

// Device holds the persisted pedal configuration
type Device struct {
	CurrentBank int  `json:"current_bank" yaml:"current_bank"`
	Brightness  int  `json:"brightness" yaml:"brightness"` // LED brightness (0-255), not interpreted by the engine
	CycleRev    bool `json:"cycle_rev" yaml:"cycle_rev"`   // Legacy bank cycle flags, stored only
	CycleFwd    bool `json:"cycle_fwd" yaml:"cycle_fwd"`

	LongPressMS int `json:"long_press_ms" yaml:"long_press_ms"`

	Banks [BankCount]BankConfig `json:"banks" yaml:"banks"`
}

// DefaultSwitch returns the first-boot mapping for switch i
func DefaultSwitch(i int) SwitchConfig {
	return SwitchConfig{
		Press:   SwitchAction{Type: ActionControlChange, Data1: uint8(80 + i)},
		Long:    SwitchAction{Type: ActionControlChange, Data1: uint8(90 + i)},
		Release: SwitchAction{Type: ActionControlChange, Data1: uint8(80 + i)},
		Edge:    EdgeLeading,
	}
}

// DefaultExpression returns the first-boot expression pedal mapping
func DefaultExpression() ExpressionConfig {
	return ExpressionConfig{
		CC:    11,
		Min:   100,
		Max:   4000,
		Curve: CurveLinear,
	}
}

// NewBankConfig creates a bank with default mappings and a generated ID
func NewBankConfig(n int) BankConfig {
	bank := BankConfig{
		ID:         uuid.New().String(),
		Name:       fmt.Sprintf("Bank %d", n+1),
		Expression: DefaultExpression(),
	}
	for i := range bank.Switches {
		bank.Switches[i] = DefaultSwitch(i)
	}
	return bank
}

// Defaults returns the configuration a pedal starts with when nothing is stored
func Defaults() *Device {
	d := &Device{
		Brightness:  DefaultBrightness,
		LongPressMS: DefaultLongPressMS,
	}
	for i := range d.Banks {
		d.Banks[i] = NewBankConfig(i)
	}
	return d
}

// Clone returns a deep copy. Device holds only arrays and values, so a
// plain copy is enough.
func (d *Device) Clone() *Device {
	c := *d
	return &c
}

// Bank returns the configuration for bank n, or nil when n is out of range
func (d *Device) Bank(n int) *BankConfig {
	if n < 0 || n >= BankCount {
		return nil
	}
	return &d.Banks[n]
}

// Switch returns the configuration for one switch, or nil when out of range
func (d *Device) Switch(bank, idx int) *SwitchConfig {
	b := d.Bank(bank)
	if b == nil || idx < 0 || idx >= SwitchCount {
		return nil
	}
	return &b.Switches[idx]
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "stompmidi"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the config from the default location, returning defaults if not found
func Load() (*Device, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile reads a JSON or YAML config, chosen by extension. A missing file
// yields the defaults. The result is always sanitised.
func LoadFile(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Start from defaults so fields missing from the file keep firmware values
	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Save writes the config to the default location
func (d *Device) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return d.SaveFile(configPath)
}

// SaveFile writes the config as JSON or YAML, chosen by extension
func (d *Device) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(d)
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	// Write then rename so a crash mid-write never leaves a truncated file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, path)
}
