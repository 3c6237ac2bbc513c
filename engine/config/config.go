package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, loaded from a TOML file at
// startup. Every field has a usable default so the file is optional.
type Config struct {
	Window  Window  `toml:"window"`
	Panel   Panel   `toml:"panel"`
	Shaders Shaders `toml:"shaders"`
	Log     Log     `toml:"log"`
	Debug   Debug   `toml:"debug"`
}

type Window struct {
	Title  string `toml:"title"`
	PosX   int    `toml:"pos_x"`
	PosY   int    `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// VSync forces the FIFO present mode; when false, mailbox is preferred
	// if the surface supports it.
	VSync bool `toml:"vsync"`
}

type Panel struct {
	// Default pixel size of the offscreen viewport targets before the GUI
	// layer reports a measured size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Shaders struct {
	// Dir is the directory the precompiled .spv binaries are loaded from.
	Dir string `toml:"dir"`
	// Watch enables the fsnotify rebuild watcher on Dir.
	Watch bool `toml:"watch"`
	// Font is an optional BMFont .fnt file for the GUI overlay; empty uses
	// the built-in face.
	Font string `toml:"font"`
}

type Log struct {
	Level string `toml:"level"`
}

type Debug struct {
	// Validation enables the Khronos validation layer and debug callback.
	Validation bool `toml:"validation"`
}

func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "Prism",
			PosX:   100,
			PosY:   100,
			Width:  1600,
			Height: 900,
			VSync:  false,
		},
		Panel: Panel{
			Width:  1280,
			Height: 720,
		},
		Shaders: Shaders{
			Dir:   "assets/shaders",
			Watch: true,
		},
		Log: Log{
			Level: "info",
		},
		Debug: Debug{
			Validation: false,
		},
	}
}

// Load reads the config at path on top of the defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Window.Width == 0 || cfg.Window.Height == 0 {
		return nil, fmt.Errorf("config %s: window size must be non-zero", path)
	}

	return cfg, nil
}
