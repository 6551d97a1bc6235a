package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// customLogDir is used to override the default log directory, e.g. for testing.
var customLogDir string

// configFileName is the name of the persisted resolver model inside the
// configuration directory.
const configFileName = "dnsforge.json"

// Config is the authoritative in-memory resolver settings structure.
type Config struct {
	DNS   DNSConfig   `json:"dns"`
	Files FilesConfig `json:"files"`
}

// FilesConfig groups file locations that end up in the rendered config.
type FilesConfig struct {
	Log LogFiles `json:"log"`
}

// LogFiles holds the log destinations of the resolver.
type LogFiles struct {
	DNSMasq string `json:"dnsmasq"` // empty disables log-facility
}

// Default returns a fully populated model with the stock settings.
func Default() *Config {
	return &Config{
		DNS: *DefaultDNSConfig(),
		Files: FilesConfig{
			Log: LogFiles{DNSMasq: "/var/log/pihole/pihole.log"},
		},
	}
}

// GetConfigDir returns the directory where configuration files are stored.
func GetConfigDir() string {
	var configDir string
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		configDir = filepath.Join(xdgConfig, "dnsforge")
	} else if runtime.GOOS == "windows" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "dnsforge")
	} else {
		configDir = filepath.Join(os.Getenv("HOME"), ".config", "dnsforge")
	}
	return configDir
}

// GetConfigFile returns the default location of the persisted model.
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), configFileName)
}

// GetLogDir returns the directory where log files are stored.
func GetLogDir() string {
	if customLogDir != "" {
		return customLogDir
	}

	var logDir string
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		logDir = filepath.Join(xdgDataHome, "dnsforge", "logs")
	} else if runtime.GOOS == "windows" {
		logDir = filepath.Join(os.Getenv("APPDATA"), "dnsforge", "logs")
	} else {
		logDir = filepath.Join(os.Getenv("HOME"), ".local", "share", "dnsforge", "logs")
	}
	return logDir
}

// Load reads the model from filePath. A missing file yields the defaults so
// that a fresh installation can render a working configuration.
func Load(filePath string) (*Config, error) {
	conf := Default()
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return conf, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	conf.normalize()
	return conf, nil
}

// Save writes the model to filePath, replacing the previous file atomically.
func (conf *Config) Save(filePath string) error {
	data, err := json.MarshalIndent(conf, "", "    ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filePath, data, 0644)
}

// normalize makes sure list-valued leaves are never nil, so JSON output
// always carries arrays and appends never need a nil check.
func (conf *Config) normalize() {
	if conf.DNS.Upstreams == nil {
		conf.DNS.Upstreams = []string{}
	}
	if conf.DNS.CNAMEs == nil {
		conf.DNS.CNAMEs = []string{}
	}
	if conf.DNS.DHCP.Hosts == nil {
		conf.DNS.DHCP.Hosts = []string{}
	}
}

func writeFileAtomic(filePath string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// SetCustomLogDir allows setting a custom log directory for testing.
func SetCustomLogDir(dir string) {
	customLogDir = dir
}
