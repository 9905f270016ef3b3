package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/x509kit"
)

// flagNames maps YAML flag names to their matching-flag bits.
var flagNames = map[string]x509kit.CheckFlag{
	"always-check-subject":    x509kit.CheckAlwaysCheckSubject,
	"never-check-subject":     x509kit.CheckNeverCheckSubject,
	"no-wildcards":            x509kit.CheckNoWildcards,
	"no-partial-wildcards":    x509kit.CheckNoPartialWildcards,
	"multi-label-wildcards":   x509kit.CheckMultiLabelWildcards,
	"single-label-subdomains": x509kit.CheckSingleLabelSubdomains,
}

// CheckProfile is one named identity-check policy: the names a
// certificate is expected to cover and the matching flags to apply.
type CheckProfile struct {
	Name   string   `yaml:"name"`
	Flags  []string `yaml:"flags,omitempty"`
	Hosts  []string `yaml:"hosts,omitempty"`
	Emails []string `yaml:"emails,omitempty"`
	IPs    []string `yaml:"ips,omitempty"`
}

// profilesYAML is the full YAML structure with shared defaults.
type profilesYAML struct {
	DefaultFlags []string       `yaml:"defaultFlags,omitempty"`
	Profiles     []CheckProfile `yaml:"profiles"`
}

// LoadCheckProfiles loads check profiles from the given YAML file.
// Profiles without their own flags inherit the file's defaultFlags.
func LoadCheckProfiles(path string) ([]CheckProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config profilesYAML
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing check profiles: %w", err)
	}
	for i := range config.Profiles {
		if config.Profiles[i].Name == "" {
			return nil, fmt.Errorf("check profile %d has no name", i)
		}
		if config.Profiles[i].Flags == nil && config.DefaultFlags != nil {
			config.Profiles[i].Flags = append([]string(nil), config.DefaultFlags...)
		}
	}
	return config.Profiles, nil
}

// FindProfile returns the profile with the given name.
func FindProfile(profiles []CheckProfile, name string) (CheckProfile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return CheckProfile{}, fmt.Errorf("no check profile named %q", name)
}

// FlagsFromNames resolves a list of flag names to their combined bits.
func FlagsFromNames(names []string) (x509kit.CheckFlag, error) {
	var flags x509kit.CheckFlag
	for _, name := range names {
		bit, ok := flagNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown check flag %q", name)
		}
		flags |= bit
	}
	return flags, nil
}

// FlagNames lists the recognized flag names for help text and shell
// completion, in bit order.
func FlagNames() []string {
	return []string{
		"always-check-subject",
		"never-check-subject",
		"no-wildcards",
		"no-partial-wildcards",
		"multi-label-wildcards",
		"single-label-subdomains",
	}
}
