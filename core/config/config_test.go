package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := "server:\n" +
		"  port: \"8080\"\n" +
		"  mode: forking\n" +
		"  root: " + root + "\n" +
		"  maxconns: 16\n" +
		"  deadline: 30s\n" +
		"mime:\n" +
		"  tablepath: /tmp/mime.types\n" +
		"  default: application/octet-stream\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	root := t.TempDir()
	fs := Flags()
	if err := fs.Parse([]string{"--config", writeConfig(t, root)}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	canon, _ := filepath.EvalSymlinks(root)
	if cfg.Server.Port != "8080" || cfg.Server.Mode != ModeForking || cfg.Server.Root != canon {
		t.Errorf("server config = %+v", cfg.Server)
	}
	if cfg.Server.MaxConns != 16 || cfg.Server.DeadLine != 30*time.Second {
		t.Errorf("maxconns/deadline = %d/%v", cfg.Server.MaxConns, cfg.Server.DeadLine)
	}
	if cfg.Mime.TablePath != "/tmp/mime.types" || cfg.Mime.Default != "application/octet-stream" {
		t.Errorf("mime config = %+v", cfg.Mime)
	}
}

func TestLoadPrecedence(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CGIHTTPD_MIME_DEFAULT", "text/x-env")
	t.Setenv("CGIHTTPD_SERVER_PORT", "7070")

	fs := Flags()
	if err := fs.Parse([]string{"--config", writeConfig(t, root), "-p", "6060", "-c", "single"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// flag > env > file
	if cfg.Server.Port != "6060" {
		t.Errorf("port = %q, want flag value 6060", cfg.Server.Port)
	}
	if cfg.Server.Mode != ModeSingle {
		t.Errorf("mode = %q, want flag value single", cfg.Server.Mode)
	}
	if cfg.Mime.Default != "text/x-env" {
		t.Errorf("default mime = %q, want env value", cfg.Mime.Default)
	}
}

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	fs := Flags()
	if err := fs.Parse([]string{"-r", root}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9898" || cfg.Server.Mode != ModeSingle {
		t.Errorf("defaults not applied: %+v", cfg.Server)
	}
	if cfg.Mime.TablePath != "/etc/mime.types" || cfg.Mime.Default != "text/plain" {
		t.Errorf("mime defaults not applied: %+v", cfg.Mime)
	}
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	os.WriteFile(file, nil, 0644)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad mode", func(c *Config) { c.Server.Mode = "threaded" }, "invalid concurrency mode"},
		{"missing root", func(c *Config) { c.Server.Root = filepath.Join(root, "nope") }, "root"},
		{"root is file", func(c *Config) { c.Server.Root = file }, "not a directory"},
		{"empty port", func(c *Config) { c.Server.Port = "" }, "port"},
		{"ok", func(c *Config) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.Server.Mode = ModeSingle
			c.Server.Port = "9898"
			c.Server.Root = root
			c.Mime.Default = "text/plain"
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	c := &Config{}
	c.Server.IPv4 = "127.0.0.1"
	c.Server.Port = "22222"
	if got := c.Addr(); got != "127.0.0.1:22222" {
		t.Errorf("Addr = %q", got)
	}
}
