// Package userconfig reads and writes user device configuration files:
// per-device display names, allow/deny choices, and reserved indices keyed
// by a device identifier, plus per-protocol connection specifiers. The
// bridge hands the serialized form to the engine untouched; this package
// exists so hosts can edit the file safely.
package userconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the config file format this package reads and writes.
const FormatVersion = 2

// Identifier names a device independently of its current index: the
// transport address, the protocol that talks to it, and an optional
// protocol-specific qualifier.
type Identifier struct {
	Address    string `yaml:"address" json:"address"`
	Protocol   string `yaml:"protocol" json:"protocol"`
	Identifier string `yaml:"identifier,omitempty" json:"identifier,omitempty"`
}

// DeviceConfig is one user-editable device entry.
type DeviceConfig struct {
	Identifier    Identifier `yaml:"identifier" json:"identifier"`
	DisplayName   string     `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Allow         *bool      `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny          *bool      `yaml:"deny,omitempty" json:"deny,omitempty"`
	ReservedIndex *uint32    `yaml:"reservedIndex,omitempty" json:"reservedIndex,omitempty"`
}

// Specifier extends a protocol's device matching, currently with websocket
// device names.
type Specifier struct {
	WebsocketNames []string `yaml:"websocketNames,omitempty" json:"websocketNames,omitempty"`
}

// File is a complete user device configuration document.
type File struct {
	Version    int                  `yaml:"version" json:"version"`
	Specifiers map[string]Specifier `yaml:"specifiers,omitempty" json:"specifiers,omitempty"`
	Devices    []DeviceConfig       `yaml:"devices,omitempty" json:"devices,omitempty"`
}

// Load reads and validates a config file from path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("userconfig: load: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a config document.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("userconfig: parse: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks internal consistency: a supported version, complete and
// unique identifiers, and no device both allowed and denied.
func (f File) Validate() error {
	if f.Version != 0 && f.Version != FormatVersion {
		return fmt.Errorf("userconfig: unsupported version %d", f.Version)
	}

	seen := make(map[Identifier]struct{}, len(f.Devices))
	for _, d := range f.Devices {
		if d.Identifier.Address == "" || d.Identifier.Protocol == "" {
			return fmt.Errorf("userconfig: device entry missing address or protocol")
		}
		if _, dup := seen[d.Identifier]; dup {
			return fmt.Errorf("userconfig: duplicate device %s/%s", d.Identifier.Protocol, d.Identifier.Address)
		}
		seen[d.Identifier] = struct{}{}

		if d.Allow != nil && d.Deny != nil && *d.Allow && *d.Deny {
			return fmt.Errorf("userconfig: device %s/%s both allowed and denied", d.Identifier.Protocol, d.Identifier.Address)
		}
	}
	return nil
}

// Lookup finds the entry for the given address and protocol.
func (f File) Lookup(address, protocol string) (DeviceConfig, bool) {
	for _, d := range f.Devices {
		if d.Identifier.Address == address && d.Identifier.Protocol == protocol {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// Upsert replaces the entry matching cfg's identifier, or appends it.
func (f *File) Upsert(cfg DeviceConfig) {
	for i, d := range f.Devices {
		if d.Identifier == cfg.Identifier {
			f.Devices[i] = cfg
			return
		}
	}
	f.Devices = append(f.Devices, cfg)
}

// Generate serializes the document for writing back to disk. The version
// field is always populated on the way out.
func (f File) Generate() ([]byte, error) {
	f.Version = FormatVersion
	if err := f.Validate(); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("userconfig: generate: %w", err)
	}
	return data, nil
}
