package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// AccountConfig defines the authentication credentials.
type AccountConfig struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"` // Bcrypt hash
	APIToken     string `json:"api_token"`
}

// GlobalConfig contains the process-wide settings of dnsforge.
type GlobalConfig struct {
	Account        AccountConfig `json:"account"`
	EnableAPI      bool          `json:"enable_api"`
	APIPort        int           `json:"api_port"`
	ResolverBinary string        `json:"resolver_binary"` // dnsmasq or pihole-FTL
	TestConfig     bool          `json:"test_config"`     // validate before install
	ConfigFile     string        `json:"config_file"`     // persisted model
	Debug          bool          `json:"debug"`
	Paths          Paths         `json:"paths"`
}

// GlobalConf is the global configuration in memory.
var GlobalConf *GlobalConfig
var globalConfName = "conf.global.json"

// DefaultGlobalConfig returns the settings used when no global file exists.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		EnableAPI:      true,
		APIPort:        6010,
		ResolverBinary: "dnsmasq",
		TestConfig:     true,
		ConfigFile:     GetConfigFile(),
		Paths:          DefaultPaths(),
	}
}

// LoadGlobalConfig loads the global configuration file. An empty path
// selects conf.global.json inside the configuration directory.
func LoadGlobalConfig(path string) error {
	configFile := path
	if configFile == "" {
		configFile = filepath.Join(GetConfigDir(), globalConfName)
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) && path == "" {
		GlobalConf = DefaultGlobalConfig()
		return nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	conf := DefaultGlobalConfig()
	if err := json.Unmarshal(data, conf); err != nil {
		return err
	}
	conf.Paths = conf.Paths.WithDefaults()
	if conf.ConfigFile == "" {
		conf.ConfigFile = GetConfigFile()
	}
	GlobalConf = conf
	return nil
}

// SaveGlobalConfig saves the global configuration to path. An empty path
// selects conf.global.json inside the configuration directory.
func SaveGlobalConfig(path string) error {
	configFile := path
	if configFile == "" {
		configFile = filepath.Join(GetConfigDir(), globalConfName)
	}
	data, err := json.MarshalIndent(GlobalConf, "", "    ")
	if err != nil {
		return err
	}
	return writeFileAtomic(configFile, data, 0600)
}
