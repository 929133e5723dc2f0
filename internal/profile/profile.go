// Package profile loads YAML device profiles for the devcfg CLI.
//
// A profile names how to reach one device: a serial port or an HTTP
// bridge URL, plus link tuning. Exactly one link kind must be set.
package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultBaudRate = 115200
	DefaultTimeout  = 2 * time.Second
)

// Profile describes one device connection.
type Profile struct {
	// Name is a free-form label for log output.
	Name string `yaml:"name"`

	// Port is the serial device path (e.g. /dev/ttyUSB0).
	// Mutually exclusive with URL.
	Port string `yaml:"port"`

	// BaudRate is the serial line speed. Zero means DefaultBaudRate.
	BaudRate int `yaml:"baud_rate"`

	// URL is the HTTP bridge base URL. Mutually exclusive with Port.
	URL string `yaml:"url"`

	// TimeoutMs is the per-response deadline in milliseconds.
	// Zero means DefaultTimeout.
	TimeoutMs int `yaml:"timeout_ms"`
}

// Load reads and parses a profile file. The result is validated but not
// normalized; call Normalize before use.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks profile correctness. It does not mutate the profile.
func Validate(p *Profile) error {
	if p.Port == "" && p.URL == "" {
		return fmt.Errorf("profile %q: either port or url is required", p.Name)
	}
	if p.Port != "" && p.URL != "" {
		return fmt.Errorf("profile %q: port and url are mutually exclusive", p.Name)
	}
	if p.BaudRate < 0 {
		return fmt.Errorf("profile %q: baud_rate must be positive", p.Name)
	}
	if p.BaudRate != 0 && p.URL != "" {
		return fmt.Errorf("profile %q: baud_rate is meaningless with url", p.Name)
	}
	if p.TimeoutMs < 0 {
		return fmt.Errorf("profile %q: timeout_ms must be positive", p.Name)
	}
	return nil
}

// Normalize fills in defaults. It must be called only after Validate.
func Normalize(p *Profile) {
	if p == nil {
		return
	}
	if p.Port != "" && p.BaudRate == 0 {
		p.BaudRate = DefaultBaudRate
	}
	if p.TimeoutMs == 0 {
		p.TimeoutMs = int(DefaultTimeout / time.Millisecond)
	}
}

// Timeout returns the per-response deadline as a duration.
func (p *Profile) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}
