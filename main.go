package main

import (
	"os"

	"github.com/cubeworks/prism/engine"
	"github.com/cubeworks/prism/engine/config"
	"github.com/cubeworks/prism/engine/core"
)

func main() {
	configPath := "prism.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		core.LogFatal("%s", err)
	}

	app := engine.New(cfg)
	if err := app.Initialize(); err != nil {
		core.LogFatal("Initialization failed: %s", err)
	}

	if err := app.Run(); err != nil {
		app.Shutdown()
		core.LogFatal("%s", err)
	}

	app.Shutdown()
}
