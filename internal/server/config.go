package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// GameSettings contains the game-level knobs applied to every room
type GameSettings struct {
	TurnTimeLimitSec  int `hcl:"turn_time_limit_sec,optional"`
	ChallengeDelaySec int `hcl:"challenge_delay_sec,optional"`
	HandSize          int `hcl:"hand_size,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			LogFile:  "liarsbar-server.log",
		},
		Game: GameSettings{
			TurnTimeLimitSec:  30,
			ChallengeDelaySec: 7,
			HandSize:          5,
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = "liarsbar-server.log"
	}

	if config.Game.TurnTimeLimitSec == 0 {
		config.Game.TurnTimeLimitSec = 30
	}
	if config.Game.ChallengeDelaySec == 0 {
		config.Game.ChallengeDelaySec = 7
	}
	if config.Game.HandSize == 0 {
		config.Game.HandSize = 5
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Game.TurnTimeLimitSec <= 0 {
		return fmt.Errorf("turn time limit must be positive")
	}
	if c.Game.ChallengeDelaySec < 0 {
		return fmt.Errorf("challenge delay must not be negative")
	}
	if c.Game.HandSize < 1 || c.Game.HandSize > 5 {
		return fmt.Errorf("hand size must be between 1 and 5")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
