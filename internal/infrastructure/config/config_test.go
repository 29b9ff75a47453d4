package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
node:
  enabled: true
bridge:
  host: "192.168.1.10"
  application_key: "test-app-key"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  enabled: true
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.Host != "192.168.1.10" {
		t.Errorf("Bridge.Host = %q, want %q", cfg.Bridge.Host, "192.168.1.10")
	}

	if cfg.Bridge.ApplicationKey != "test-app-key" {
		t.Errorf("Bridge.ApplicationKey = %q, want %q", cfg.Bridge.ApplicationKey, "test-app-key")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
node:
  enabled: true
bridge:
  host: ""
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty bridge.host, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Node:   NodeConfig{Enabled: true},
				Bridge: BridgeConfig{Host: "192.168.1.10", ApplicationKey: "key"},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Enabled: true, Port: 8080},
			},
			wantErr: false,
		},
		{
			name: "disabled node needs no bridge settings",
			config: &Config{
				Node: NodeConfig{Enabled: false},
				MQTT: MQTTConfig{QoS: 1},
				API:  APIConfig{Enabled: true, Port: 8080},
			},
			wantErr: false,
		},
		{
			name: "missing bridge host",
			config: &Config{
				Node:   NodeConfig{Enabled: true},
				Bridge: BridgeConfig{ApplicationKey: "key"},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Enabled: true, Port: 8080},
			},
			wantErr: true,
		},
		{
			name: "missing application key",
			config: &Config{
				Node:   NodeConfig{Enabled: true},
				Bridge: BridgeConfig{Host: "192.168.1.10"},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Enabled: true, Port: 8080},
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Node:   NodeConfig{Enabled: true},
				Bridge: BridgeConfig{Host: "192.168.1.10", ApplicationKey: "key"},
				MQTT:   MQTTConfig{QoS: 3},
				API:    APIConfig{Enabled: true, Port: 8080},
			},
			wantErr: true,
		},
		{
			name: "invalid port low",
			config: &Config{
				Node:   NodeConfig{Enabled: true},
				Bridge: BridgeConfig{Host: "192.168.1.10", ApplicationKey: "key"},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Enabled: true, Port: 0},
			},
			wantErr: true,
		},
		{
			name: "invalid port high",
			config: &Config{
				Node:   NodeConfig{Enabled: true},
				Bridge: BridgeConfig{Host: "192.168.1.10", ApplicationKey: "key"},
				MQTT:   MQTTConfig{QoS: 1},
				API:    APIConfig{Enabled: true, Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "state log enabled without path",
			config: &Config{
				Node:     NodeConfig{Enabled: true},
				Bridge:   BridgeConfig{Host: "192.168.1.10", ApplicationKey: "key"},
				MQTT:     MQTTConfig{QoS: 1},
				API:      APIConfig{Enabled: true, Port: 8080},
				StateLog: StateLogConfig{Enabled: true, Path: ""},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("LUMEN_BRIDGE_HOST", "192.168.1.20")
	t.Setenv("LUMEN_BRIDGE_APPLICATION_KEY", "env-key")
	t.Setenv("LUMEN_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LUMEN_MQTT_USERNAME", "testuser")
	t.Setenv("LUMEN_MQTT_PASSWORD", "testpass")
	t.Setenv("LUMEN_API_HOST", "192.168.1.1")
	t.Setenv("LUMEN_STATELOG_PATH", "/custom/path.db")

	applyEnvOverrides(cfg)

	if cfg.Bridge.Host != "192.168.1.20" {
		t.Errorf("Bridge.Host = %q, want %q", cfg.Bridge.Host, "192.168.1.20")
	}

	if cfg.Bridge.ApplicationKey != "env-key" {
		t.Errorf("Bridge.ApplicationKey = %q, want %q", cfg.Bridge.ApplicationKey, "env-key")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.StateLog.Path != "/custom/path.db" {
		t.Errorf("StateLog.Path = %q, want %q", cfg.StateLog.Path, "/custom/path.db")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if !cfg.Node.Enabled {
		t.Error("defaultConfig should enable the node")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.Node.AutoUpdates != nil {
		t.Error("defaultConfig should leave AutoUpdates unset (enabled)")
	}
}
