package host

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/warp-js/ipc-server/internal/config"
)

// Manifest is the host configuration file.
type Manifest struct {
	Hostname        string          `yaml:"hostname" env:"WARP_HOSTNAME"`
	Port            int             `yaml:"port" env:"WARP_PORT"`
	Token           string          `yaml:"token" env:"WARP_TOKEN"`
	DispatchTimeout time.Duration   `yaml:"dispatch_timeout,omitempty"`
	Extensions      []ExtensionSpec `yaml:"extensions"`
	Tools           []ToolSpec      `yaml:"tools,omitempty"`
}

// ExtensionSpec describes one extension process.
type ExtensionSpec struct {
	ID      string            `yaml:"id"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// ToolSpec exposes one (extension, event) pair as an MCP tool.
type ToolSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Extension   string `yaml:"extension"`
	Event       string `yaml:"event"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return ParseManifest(data)
}

// ParseManifest parses YAML, applies WARP_HOSTNAME, WARP_PORT and WARP_TOKEN
// overrides and defaults, then validates the result.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := env.Parse(&m); err != nil {
		return nil, fmt.Errorf("manifest environment: %w", err)
	}

	if m.Hostname == "" {
		m.Hostname = config.DefaultHostname
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate reports every problem in the manifest at once.
func (m *Manifest) Validate() error {
	var result *multierror.Error

	if m.Port < 0 || m.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port %d out of range", m.Port))
	}

	if m.DispatchTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("dispatch_timeout must not be negative"))
	}

	ids := make(map[string]struct{}, len(m.Extensions))

	for i, ext := range m.Extensions {
		if ext.ID == "" {
			result = multierror.Append(result, fmt.Errorf("extensions[%d]: missing id", i))

			continue
		}

		if _, dup := ids[ext.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("extensions[%d]: duplicate id %q", i, ext.ID))
		}

		ids[ext.ID] = struct{}{}

		if ext.Command == "" {
			result = multierror.Append(result, fmt.Errorf("extension %q: missing command", ext.ID))
		}
	}

	names := make(map[string]struct{}, len(m.Tools))

	for i, tool := range m.Tools {
		if tool.Name == "" {
			result = multierror.Append(result, fmt.Errorf("tools[%d]: missing name", i))
		} else if _, dup := names[tool.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("tools[%d]: duplicate name %q", i, tool.Name))
		}

		names[tool.Name] = struct{}{}

		if tool.Event == "" {
			result = multierror.Append(result, fmt.Errorf("tool %q: missing event", tool.Name))
		}

		if _, ok := ids[tool.Extension]; !ok {
			result = multierror.Append(result, fmt.Errorf("tool %q: unknown extension %q", tool.Name, tool.Extension))
		}
	}

	return result.ErrorOrNil()
}

// Addr returns the broker listen address.
func (m *Manifest) Addr() string {
	return net.JoinHostPort(m.Hostname, strconv.Itoa(m.Port))
}

// Options returns dispatch options derived from the manifest.
func (m *Manifest) Options() *config.Options {
	return &config.Options{
		Timeout:  m.DispatchTimeout,
		Hostname: m.Hostname,
	}
}
