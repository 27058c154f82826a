// Package config holds the flight computer's tunables: the control-plane
// constants of spec §6, with their documented defaults, optionally
// overridden from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the flight computer's runtime configuration.
type Config struct {
	// FCBoardId is the identity the FC presents to boards during handshake.
	FCBoardId string `yaml:"fc_board_id"`

	// BoardIngressPort is the UDP port the FC listens on for board datagrams.
	BoardIngressPort int `yaml:"board_ingress_port"`
	// BoardCommandPort is the UDP port boards listen on for FC commands.
	BoardCommandPort int `yaml:"board_command_port"`
	// ServoPort is the TCP port the control server listens on.
	ServoPort int `yaml:"servo_port"`
	// TelemetryPort is the UDP port the control server listens on for
	// VehicleState snapshots.
	TelemetryPort int `yaml:"telemetry_port"`

	// ServerHostnames are tried in order during server discovery.
	ServerHostnames []string `yaml:"server_hostnames"`

	HeartbeatPeriod time.Duration `yaml:"heartbeat_period"`
	TimeTilDeath    time.Duration `yaml:"time_til_death"`
	LivenessTick    time.Duration `yaml:"liveness_tick"`
	TriggerPeriod   time.Duration `yaml:"trigger_period"`
	ForwarderPeriod time.Duration `yaml:"forwarder_period"`

	// CommandBufferSize bounds the serialized size of an FC→board command.
	CommandBufferSize int `yaml:"command_buffer_size"`
	// MaxControlFrame bounds a single server-link read (C10).
	MaxControlFrame int `yaml:"max_control_frame"`

	// InitRetries bounds how many times Init is retried on bind failure
	// before the process exits non-zero.
	InitRetries int `yaml:"init_retries"`
}

// Default returns the configuration implied by spec §6's constants table.
func Default() Config {
	return Config{
		FCBoardId:         "flight-01",
		BoardIngressPort:  4573,
		BoardCommandPort:  8378,
		ServoPort:         5025,
		TelemetryPort:     7201,
		ServerHostnames:   []string{"fs-server-01.local", "fs-server-02.local"},
		HeartbeatPeriod:   50 * time.Millisecond,
		TimeTilDeath:      50 * time.Millisecond,
		LivenessTick:      time.Millisecond,
		TriggerPeriod:     10 * time.Millisecond,
		ForwarderPeriod:   10 * time.Millisecond,
		CommandBufferSize: 1024,
		MaxControlFrame:   1 << 20,
		InitRetries:       5,
	}
}

// UnmarshalYAML overlays the scalar fields of rawConfig onto c, parsing its
// five duration fields with time.ParseDuration. yaml.v3 only converts a
// scalar into an int field when it resolves as !!int/!!float/!!uint; a
// duration string like "75ms" resolves as !!str, so time.Duration (Kind
// int64) needs this hook rather than a bare `yaml:"..."` tag.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := rawConfig{
		FCBoardId:         c.FCBoardId,
		BoardIngressPort:  c.BoardIngressPort,
		BoardCommandPort:  c.BoardCommandPort,
		ServoPort:         c.ServoPort,
		TelemetryPort:     c.TelemetryPort,
		ServerHostnames:   c.ServerHostnames,
		HeartbeatPeriod:   c.HeartbeatPeriod.String(),
		TimeTilDeath:      c.TimeTilDeath.String(),
		LivenessTick:      c.LivenessTick.String(),
		TriggerPeriod:     c.TriggerPeriod.String(),
		ForwarderPeriod:   c.ForwarderPeriod.String(),
		CommandBufferSize: c.CommandBufferSize,
		MaxControlFrame:   c.MaxControlFrame,
		InitRetries:       c.InitRetries,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	heartbeatPeriod, err := time.ParseDuration(raw.HeartbeatPeriod)
	if err != nil {
		return fmt.Errorf("heartbeat_period: %w", err)
	}
	timeTilDeath, err := time.ParseDuration(raw.TimeTilDeath)
	if err != nil {
		return fmt.Errorf("time_til_death: %w", err)
	}
	livenessTick, err := time.ParseDuration(raw.LivenessTick)
	if err != nil {
		return fmt.Errorf("liveness_tick: %w", err)
	}
	triggerPeriod, err := time.ParseDuration(raw.TriggerPeriod)
	if err != nil {
		return fmt.Errorf("trigger_period: %w", err)
	}
	forwarderPeriod, err := time.ParseDuration(raw.ForwarderPeriod)
	if err != nil {
		return fmt.Errorf("forwarder_period: %w", err)
	}

	*c = Config{
		FCBoardId:         raw.FCBoardId,
		BoardIngressPort:  raw.BoardIngressPort,
		BoardCommandPort:  raw.BoardCommandPort,
		ServoPort:         raw.ServoPort,
		TelemetryPort:     raw.TelemetryPort,
		ServerHostnames:   raw.ServerHostnames,
		HeartbeatPeriod:   heartbeatPeriod,
		TimeTilDeath:      timeTilDeath,
		LivenessTick:      livenessTick,
		TriggerPeriod:     triggerPeriod,
		ForwarderPeriod:   forwarderPeriod,
		CommandBufferSize: raw.CommandBufferSize,
		MaxControlFrame:   raw.MaxControlFrame,
		InitRetries:       raw.InitRetries,
	}
	return nil
}

// rawConfig mirrors Config with its duration fields as strings, the shape
// yaml.v3 can actually decode a scalar like "75ms" into.
type rawConfig struct {
	FCBoardId         string   `yaml:"fc_board_id"`
	BoardIngressPort  int      `yaml:"board_ingress_port"`
	BoardCommandPort  int      `yaml:"board_command_port"`
	ServoPort         int      `yaml:"servo_port"`
	TelemetryPort     int      `yaml:"telemetry_port"`
	ServerHostnames   []string `yaml:"server_hostnames"`
	HeartbeatPeriod   string   `yaml:"heartbeat_period"`
	TimeTilDeath      string   `yaml:"time_til_death"`
	LivenessTick      string   `yaml:"liveness_tick"`
	TriggerPeriod     string   `yaml:"trigger_period"`
	ForwarderPeriod   string   `yaml:"forwarder_period"`
	CommandBufferSize int      `yaml:"command_buffer_size"`
	MaxControlFrame   int      `yaml:"max_control_frame"`
	InitRetries       int      `yaml:"init_retries"`
}

// Load returns Default() overridden by any fields present in the YAML file
// at path. A missing path is not an error; it simply yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
