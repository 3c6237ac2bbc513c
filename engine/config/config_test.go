package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	def := Default()
	if cfg.Window.Width != def.Window.Width || cfg.Window.Height != def.Window.Height {
		t.Errorf("expected default window size %dx%d, got %dx%d",
			def.Window.Width, def.Window.Height, cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Panel.Width != 1280 || cfg.Panel.Height != 720 {
		t.Errorf("expected default panel 1280x720, got %dx%d", cfg.Panel.Width, cfg.Panel.Height)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	body := `
[window]
title = "Test"
width = 800
height = 600
vsync = true

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window.Title != "Test" || cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window override not applied: %+v", cfg.Window)
	}
	if !cfg.Window.VSync {
		t.Error("vsync override not applied")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level override not applied: %q", cfg.Log.Level)
	}
	// Untouched sections keep defaults.
	if cfg.Shaders.Dir != "assets/shaders" {
		t.Errorf("shaders dir default lost: %q", cfg.Shaders.Dir)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[window\nwidth="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config should error")
	}
}

func TestLoadRejectsZeroWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.toml")
	if err := os.WriteFile(path, []byte("[window]\nwidth = 0\nheight = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("zero window size should error")
	}
}
