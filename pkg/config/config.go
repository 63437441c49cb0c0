// Package config loads named multi-profile NNTP server configuration
// from JSON, and converts a profile into client.ConnectOptions.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sntran/go-nntp/pkg/client"
	"github.com/sntran/go-nntp/pkg/constants"
	"github.com/sntran/go-nntp/pkg/dialer"
)

// ServerConfig holds connection information for one named NNTP server
// profile.
type ServerConfig struct {
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	SSL      bool   `json:"ssl"`
	Username string `json:"username"`
	Password string `json:"password"`

	// InsecureSkipVerify and ServerName are optional TLS overrides; most
	// profiles need neither.
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty"`
	ServerName         string `json:"serverName,omitempty"`

	// ProxyHost/ProxyPort/ProxyUsername/ProxyPassword configure an
	// optional upstream SOCKS5 proxy (dialer.Proxy).
	ProxyHost     string `json:"proxyHost,omitempty"`
	ProxyPort     int    `json:"proxyPort,omitempty"`
	ProxyUsername string `json:"proxyUsername,omitempty"`
	ProxyPassword string `json:"proxyPassword,omitempty"`

	ConnTimeoutSeconds int `json:"connTimeoutSeconds,omitempty"`
}

// Config is the top-level configuration file: a named set of server
// profiles plus which one to use when none is requested explicitly.
type Config struct {
	Default string         `json:"default"`
	Servers []ServerConfig `json:"servers"`
}

// Server returns the named profile, or the Default profile if name is
// empty. Returns nil if no matching profile exists.
func (c *Config) Server(name string) *ServerConfig {
	if name == "" {
		name = c.Default
	}
	for i := range c.Servers {
		if c.Servers[i].Name == name {
			return &c.Servers[i]
		}
	}
	return nil
}

// ConnectOptions converts a profile into client.ConnectOptions, filling
// in package defaults for anything the profile leaves zero.
func (s ServerConfig) ConnectOptions() client.ConnectOptions {
	port := s.Port
	if port == 0 {
		if s.SSL {
			port = constants.DefaultTLSPort
		} else {
			port = constants.DefaultPort
		}
	}

	connTimeout := constants.DefaultConnTimeout
	if s.ConnTimeoutSeconds > 0 {
		connTimeout = time.Duration(s.ConnTimeoutSeconds) * time.Second
	}

	opts := client.ConnectOptions{
		Host:               s.Hostname,
		Port:               port,
		UseTLS:             s.SSL,
		ServerName:         s.ServerName,
		InsecureSkipVerify: s.InsecureSkipVerify,
		Username:           s.Username,
		Password:           s.Password,
		ConnTimeout:        connTimeout,
		ReadTimeout:        constants.DefaultReadTimeout,
		WriteTimeout:       constants.DefaultWriteTimeout,
		DNSTimeout:         constants.DefaultDNSTimeout,
	}

	if s.ProxyHost != "" {
		opts.Proxy = &dialer.Proxy{
			Host:     s.ProxyHost,
			Port:     s.ProxyPort,
			Username: s.ProxyUsername,
			Password: s.ProxyPassword,
		}
	}

	return opts
}

// envConfigVar overrides the config path when set, mirroring the
// search-path precedence of the teacher's loader.
const envConfigVar = "NNTP_CONFIG"

// Load reads a Config from path, or — if path is empty — from the
// location named by the NNTP_CONFIG environment variable, then from a
// short list of default search paths.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envConfigVar)
	}
	if path == "" {
		var err error
		path, err = findDefaultConfig()
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func findDefaultConfig() (string, error) {
	candidates := []string{
		"./nntp.json",
		"./nntp.config.json",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "nntp", "config.json"))
	}
	candidates = append(candidates, "/etc/nntp/config.json")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config path given, %s unset, and none found in default locations", envConfigVar)
}
