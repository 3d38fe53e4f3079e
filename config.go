package fwenable

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultURL       = "http://firewall.charite.de:900/"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.13; rv:61.0) Gecko/20100101 Firefox/61.0"
)

// Config describes one run. It is built once and passed by value.
type Config struct {
	URL        string        `yaml:"url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    int           `yaml:"timeout"` // seconds, 0 means none
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	NoStandard bool          `yaml:"no_standard"`
	NoSpecific bool          `yaml:"no_specific"`
	Hosts      []HostRule    `yaml:"hosts"`
	MinDelay   time.Duration `yaml:"min_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`

	// delaySet marks MinDelay/MaxDelay as chosen, so 0/0 turns pauses off.
	delaySet bool
}

// LoadConfigFile reads a yaml config file.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	var keys map[string]interface{}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	_, hasMin := keys["min_delay"]
	_, hasMax := keys["max_delay"]
	cfg.delaySet = hasMin || hasMax
	return cfg, nil
}

// WithDelay sets the pause bounds explicitly. Unlike zero fields left unset,
// WithDelay(0, 0) disables pausing.
func (c Config) WithDelay(minDelay, maxDelay time.Duration) Config {
	c.MinDelay, c.MaxDelay, c.delaySet = minDelay, maxDelay, true
	return c
}

// WithDefaults fills unset portal and delay settings. A lone MinDelay is
// also used as MaxDelay.
func (c Config) WithDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	switch {
	case !c.delaySet && c.MinDelay == 0 && c.MaxDelay == 0:
		c.MinDelay, c.MaxDelay = DefaultMinDelay, DefaultMaxDelay
	case c.MaxDelay == 0:
		c.MaxDelay = c.MinDelay
	}
	return c
}

// Slots returns the configured host rules in their fixed slot positions.
func (c Config) Slots() [HostSlots]HostRule {
	var slots [HostSlots]HostRule
	copy(slots[:], c.Hosts)
	return slots
}

func (c Config) Credentials() Credentials {
	return Credentials{Username: c.Username, Password: c.Password}
}

// Standard reports whether standard rules are requested.
func (c Config) Standard() bool { return !c.NoStandard }

// Specific reports whether specific rules are requested and there is at
// least one host to request them for.
func (c Config) Specific() bool {
	return !c.NoSpecific && SpecificRequest(c.Slots()).HasHosts()
}

// Validate checks everything that can be decided without the password or
// the network.
func (c Config) Validate() error {
	if c.NoStandard && c.NoSpecific {
		return &ConfigurationError{Reason: "Nothing to do as you have specified both --noStandard and --noSpecific"}
	}
	if c.Username == "" {
		return &ConfigurationError{Reason: "You must either give a username via --username or else put your " +
			"username into a CHARITE_FIREWALL_USERNAME environment variable"}
	}
	if len(c.Hosts) > HostSlots {
		return &ConfigurationError{Reason: fmt.Sprintf("at most %d hosts can be requested, got %d", HostSlots, len(c.Hosts))}
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid delay bounds [%s, %s]", c.MinDelay, c.MaxDelay)}
	}
	if c.NoStandard && !c.Specific() {
		return &ConfigurationError{Reason: "Standard rules were not requested and there were no specific hosts " +
			"given, so nothing was done. Use --host0 or set CHARITE_FIREWALL_HOST0 and CHARITE_FIREWALL_SERVICE0 " +
			"(0-9) in your environment to also request specific hosts and services."}
	}
	return nil
}
