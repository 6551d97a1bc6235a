package config

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GetKey returns the JSON value stored under a dotted key, e.g.
// "dns.dhcp.hosts" or "dns.upstreams.0".
func GetKey(conf *Config, key string) (string, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return "", err
	}
	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return res.Raw, nil
}

// SetKey stores value under a dotted key and returns the updated model. The
// value is taken as raw JSON when it parses as such, otherwise as a plain
// string. The result is decoded again so type errors surface before anything
// is written to disk.
func SetKey(conf *Config, key, value string) (*Config, error) {
	if _, err := GetKey(conf, key); err != nil {
		return nil, err
	}
	return editKey(conf, key, value)
}

// AppendKey appends value to the list stored under key.
func AppendKey(conf *Config, key, value string) (*Config, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return nil, err
	}
	if res := gjson.GetBytes(data, key); !res.IsArray() {
		return nil, fmt.Errorf("config key %q is not a list", key)
	}
	return editKey(conf, key+".-1", value)
}

func editKey(conf *Config, key, value string) (*Config, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return nil, err
	}
	var out []byte
	if raw := []byte(value); json.Valid(raw) {
		out, err = sjson.SetRawBytes(data, key, raw)
	} else {
		out, err = sjson.SetBytes(data, key, value)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot set %q: %w", key, err)
	}

	updated := Default()
	if err := json.Unmarshal(out, updated); err != nil {
		return nil, fmt.Errorf("invalid value for %q: %w", key, err)
	}
	updated.normalize()
	if err := updated.CheckSingleLine(); err != nil {
		return nil, err
	}
	return updated, nil
}

// ModifyFile loads the model at path, applies fn and saves it back.
func ModifyFile(path string, fn func(*Config) (*Config, error)) (*Config, error) {
	conf, err := Load(path)
	if err != nil {
		return nil, err
	}
	updated, err := fn(conf)
	if err != nil {
		return nil, err
	}
	if err := updated.Save(path); err != nil {
		return nil, fmt.Errorf("cannot save %s: %w", path, err)
	}
	return updated, nil
}
