package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sntran/go-nntp/pkg/constants"
)

func writeConfig(t *testing.T, dir string, cfg Config) string {
	t.Helper()
	path := filepath.Join(dir, "nntp.config.json")
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadAndServerLookup(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Default: "home",
		Servers: []ServerConfig{
			{Name: "home", Hostname: "news.example.com", Port: 563, SSL: true, Username: "alice", Password: "s3cret"},
			{Name: "work", Hostname: "nntp.internal", Port: 119},
		},
	}
	path := writeConfig(t, dir, cfg)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := loaded.Server("")
	if def == nil || def.Name != "home" {
		t.Fatalf("expected default profile 'home', got %+v", def)
	}

	work := loaded.Server("work")
	if work == nil || work.Hostname != "nntp.internal" {
		t.Fatalf("expected 'work' profile, got %+v", work)
	}

	if loaded.Server("nonexistent") != nil {
		t.Fatalf("expected nil for unknown profile")
	}
}

func TestLoadMissingPathSearchesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(wd)

	os.Unsetenv(envConfigVar)

	cfg := Config{Servers: []ServerConfig{{Name: "only", Hostname: "news.example.com"}}}
	data, _ := json.Marshal(cfg)
	if err := os.WriteFile("nntp.json", data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Server("only"); got == nil {
		t.Fatalf("expected 'only' profile to be found via default search path")
	}
}

func TestLoadNoPathNoDefaultsErrors(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(wd)
	os.Unsetenv(envConfigVar)

	if _, err := Load(""); err == nil {
		t.Fatalf("expected an error when no config path can be found")
	}
}

func TestServerConfigConnectOptionsDefaults(t *testing.T) {
	s := ServerConfig{Name: "home", Hostname: "news.example.com", SSL: true}
	opts := s.ConnectOptions()

	if opts.Host != "news.example.com" {
		t.Fatalf("got host %q", opts.Host)
	}
	if opts.Port != constants.DefaultTLSPort {
		t.Fatalf("expected default TLS port %d, got %d", constants.DefaultTLSPort, opts.Port)
	}
	if !opts.UseTLS {
		t.Fatalf("expected UseTLS true")
	}
	if opts.ConnTimeout != constants.DefaultConnTimeout {
		t.Fatalf("expected default conn timeout, got %v", opts.ConnTimeout)
	}
}

func TestServerConfigConnectOptionsPlainPort(t *testing.T) {
	s := ServerConfig{Name: "plain", Hostname: "news.example.com"}
	opts := s.ConnectOptions()
	if opts.Port != constants.DefaultPort {
		t.Fatalf("expected default plain port %d, got %d", constants.DefaultPort, opts.Port)
	}
}

func TestServerConfigConnectOptionsProxy(t *testing.T) {
	s := ServerConfig{
		Name: "proxied", Hostname: "news.example.com",
		ProxyHost: "socks.example.com", ProxyPort: 1080, ProxyUsername: "u",
	}
	opts := s.ConnectOptions()
	if opts.Proxy == nil {
		t.Fatalf("expected a Proxy to be set")
	}
	if opts.Proxy.Host != "socks.example.com" || opts.Proxy.Port != 1080 {
		t.Fatalf("unexpected proxy config: %+v", opts.Proxy)
	}
}
