package slotor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/service/batch"
	"github.com/viant/slotor/service/monitor"
	"github.com/viant/slotor/service/transport"
	"github.com/viant/slotor/service/worker"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreBolt   = "bolt"
)

// MaxSlots is the largest supported number of slots
const MaxSlots = 8

// Config is a serialisable representation of the agent configuration. It can
// be populated from YAML or JSON and overridden by AGENT_* environment
// variables. DefaultConfig values apply to sections left out of a file.
type Config struct {
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
	Slots     SlotsConfig     `json:"slots" yaml:"slots"`
	Worker    worker.Config   `json:"worker" yaml:"worker"`
	Batch     batch.Config    `json:"batch" yaml:"batch"`
	Monitor   MonitorConfig   `json:"monitor" yaml:"monitor"`
	Transport TransportConfig `json:"transport" yaml:"transport"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
}

type AgentConfig struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

type SlotsConfig struct {
	Count        int `json:"count" yaml:"count"`
	HistoryLimit int `json:"historyLimit" yaml:"historyLimit"`
}

type MonitorConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

type TransportConfig struct {
	PublishTimeout time.Duration `json:"publishTimeout" yaml:"publishTimeout"`
}

// StoreConfig selects where slot snapshots are persisted. Path is a
// directory (fs) or a database file (bolt).
type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// TracingConfig enables OpenTelemetry spans; an empty Output writes to stdout
type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Output  string `json:"output" yaml:"output"`
}

// DefaultConfig returns a Config populated with the agent defaults
func DefaultConfig() *Config {
	return &Config{
		Agent:     AgentConfig{Name: "slotor", Version: Version},
		Slots:     SlotsConfig{Count: 4, HistoryLimit: 100},
		Worker:    worker.DefaultConfig(),
		Batch:     batch.DefaultConfig(),
		Monitor:   MonitorConfig{Interval: monitor.DefaultInterval},
		Transport: TransportConfig{PublishTimeout: transport.DefaultPublishTimeout},
		Store:     StoreConfig{Kind: StoreMemory},
		Logging:   LoggingConfig{Level: "info", Format: logging.FormatJSON},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var err error
	if c.Slots.Count < 1 || c.Slots.Count > MaxSlots {
		err = multierr.Append(err, fmt.Errorf("slots.count must be within [1, %d]", MaxSlots))
	}
	if c.Slots.HistoryLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("slots.historyLimit must be >= 0"))
	}
	if c.Monitor.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("monitor.interval must be > 0"))
	}
	if c.Transport.PublishTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("transport.publishTimeout must be >= 0"))
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreFS, StoreBolt:
		if c.Store.Path == "" {
			err = multierr.Append(err, fmt.Errorf("store.path is required for %s store", c.Store.Kind))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported store.kind: %q", c.Store.Kind))
	}
	switch c.Logging.Format {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported logging.format: %q", c.Logging.Format))
	}
	err = multierr.Append(err, c.Worker.Validate())
	err = multierr.Append(err, c.Batch.Validate())
	return err
}

// ApplyEnv overrides settings from AGENT_* variables and LOG_LEVEL /
// LOG_FORMAT. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(key string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("AGENT_NAME"); ok {
		c.Agent.Name = v
	}
	if v, ok := get("AGENT_VERSION"); ok {
		c.Agent.Version = v
	}
	if v, ok := get("AGENT_MAX_SLOTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AGENT_MAX_SLOTS %q: %w", v, err)
		}
		c.Slots.Count = n
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Logging.Format = strings.ToLower(v)
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) document from URL on top of DefaultConfig
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	return ret, nil
}
