package main

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"geminidesk/internal/config"
	"geminidesk/internal/logging"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

//go:embed all:frontend/dist
var assets embed.FS

const appID = "com.geminidesk.app"

func main() {
	dir, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating home directory: %v\n", err)
		os.Exit(1)
	}

	cfg, cfgPath, warnings, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v, using defaults\n", cfgPath, err)
		cfg = config.Default()
		cfg.ApplyEnvOverrides()
		cfg.Validate()
	}

	// Initialize logger first
	if err := logging.Init(logging.Config{
		Dir:        cfg.Logging.Dir,
		MaxAge:     time.Duration(cfg.Logging.MaxAgeHours) * time.Hour,
		Level:      cfg.Logging.Level,
		JSONOutput: cfg.Logging.JSON,
		DevMode:    cfg.Logging.Dev,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
	}
	defer logging.Close()

	logging.Info("Application starting", "config", logging.MaskPath(cfgPath), "home", cfg.Webview.HomeURL)
	if warnings != nil {
		for _, w := range warnings.Warnings {
			logging.Warn("Config value replaced", "warning", w)
		}
	}

	app, err := NewApp(cfg, dir)
	if err != nil {
		logging.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	err = wails.Run(&options.App{
		Title:             "Gemini",
		Width:             cfg.Window.Width,
		Height:            cfg.Window.Height,
		MinWidth:          480,
		MinHeight:         360,
		StartHidden:       cfg.Window.StartHidden,
		HideWindowOnClose: true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Menu:                   app.buildMenu(),
		BackgroundColour:       &options.RGBA{R: 255, G: 255, B: 255, A: 1},
		BindingsAllowedOrigins: allowedOrigin(cfg.Webview.HomeURL),
		OnStartup:              app.startup,
		OnDomReady:             app.domReady,
		OnShutdown:             app.shutdown,
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId:               appID,
			OnSecondInstanceLaunch: app.onSecondInstanceLaunch,
		},
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar:             mac.TitleBarHiddenInset(),
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
		},
		Debug: options.Debug{
			OpenInspectorOnStartup: false,
		},
	})

	if err != nil {
		logging.Error("Application exited with error", "error", err)
		println("Error:", err.Error())
	}
}

// allowedOrigin returns scheme://host of the hosted page, which the page
// agent needs to post events back
func allowedOrigin(home string) string {
	u, err := url.Parse(home)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
