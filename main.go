package main

import (
	"context"
	"embed"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reelgen/reelgen/internal/api"
	"github.com/reelgen/reelgen/internal/bindings"
	"github.com/reelgen/reelgen/internal/config"
	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/service"
)

//go:embed all:frontend/dist
var assets embed.FS

const (
	docsURL = "https://github.com/reelgen/reelgen/blob/main/README.md"
	repoURL = "https://github.com/reelgen/reelgen"
)

var (
	appCtx   context.Context
	appCtxMu sync.RWMutex
)

// buildWindowsOptions configures Windows-specific application settings
func buildWindowsOptions(log *zap.Logger) *windows.Options {
	return &windows.Options{
		BackdropType: windows.Mica,
		Theme:        windows.SystemDefault,
		CustomTheme: &windows.ThemeSettings{
			DarkModeTitleBar:   windows.RGB(20, 29, 43),
			DarkModeTitleText:  windows.RGB(242, 242, 242),
			DarkModeBorder:     windows.RGB(42, 56, 80),
			LightModeTitleBar:  windows.RGB(244, 245, 246),
			LightModeTitleText: windows.RGB(16, 31, 56),
			LightModeBorder:    windows.RGB(220, 224, 229),
		},
		WebviewIsTransparent: false,
		WindowIsTranslucent:  false,
		DisablePinchZoom:     true,
		IsZoomControlEnabled: false,
		ZoomFactor:           1.0,
		WindowClassName:      "ReelgenWindow",
		OnSuspend: func() {
			log.Info("entering low power mode")
		},
		OnResume: func() {
			log.Info("resuming from low power mode")
		},
	}
}

// buildMacOptions configures macOS-specific application settings
func buildMacOptions() *mac.Options {
	return &mac.Options{
		TitleBar:             mac.TitleBarDefault(),
		WebviewIsTransparent: false,
		WindowIsTranslucent:  false,
		About: &mac.AboutInfo{
			Title: "Reelgen",
			Message: "Provably fair reel grid generator.\n\n" +
				"Every spin is reproducible from its seeds and nonce.\n" +
				"Engine " + engine.Version,
		},
	}
}

// buildLinuxOptions configures Linux-specific application settings
func buildLinuxOptions() *linux.Options {
	return &linux.Options{
		WindowIsTranslucent: false,
		WebviewGpuPolicy:    linux.WebviewGpuPolicyOnDemand,
		ProgramName:         "reelgen",
	}
}

func newLogger(level string) *zap.Logger {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	log, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	cfg, cfgErr := config.Load(".env", "")
	if cfgErr != nil {
		cfg = config.Default()
	}
	log := newLogger(cfg.Log.Level)
	defer log.Sync()
	if cfgErr != nil {
		log.Warn("config rejected, using defaults", zap.Error(cfgErr))
	}
	log.Info("starting reelgen desktop",
		zap.String("go", runtime.Version()),
		zap.String("engine_version", engine.Version),
		zap.String("store", cfg.Store.Driver))

	// The local API mirrors the window for external viewers.
	var (
		listenerMu sync.Mutex
		listener   *api.Listener
	)
	serveLocal := func(ctx context.Context, reels *service.Reels) {
		srv := api.NewServer(reels, log, cfg.HTTP.AllowedOrigins)
		l, err := srv.Listen(cfg.HTTP.Addr)
		if err != nil {
			log.Warn("local api failed to start", zap.String("addr", cfg.HTTP.Addr), zap.Error(err))
			return
		}
		listenerMu.Lock()
		listener = l
		listenerMu.Unlock()
	}

	app := bindings.New(cfg, log, bindings.WithOnReady(serveLocal))

	startup := func(ctx context.Context) {
		setAppContext(ctx)
		app.Startup(ctx)
	}

	beforeClose := func(ctx context.Context) (prevent bool) {
		listenerMu.Lock()
		l := listener
		listenerMu.Unlock()
		if l != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := l.Shutdown(shutdownCtx); err != nil {
				log.Warn("local api shutdown error", zap.Error(err))
			}
		}
		setAppContext(nil)
		log.Info("application is closing")
		return false
	}

	if err := wails.Run(&options.App{
		Title:            "Reelgen",
		Width:            1280,
		Height:           800,
		MinWidth:         960,
		MinHeight:        640,
		WindowStartState: options.Normal,
		BackgroundColour: &options.RGBA{R: 20, G: 29, B: 43, A: 255},

		AssetServer: &assetserver.Options{
			Assets: assets,
		},

		OnStartup:     startup,
		OnBeforeClose: beforeClose,
		OnShutdown:    app.Shutdown,

		Menu: buildAppMenu(cfg, log),
		Bind: []interface{}{app},

		LogLevel:           logger.INFO,
		LogLevelProduction: logger.ERROR,

		EnableDefaultContextMenu:         false,
		EnableFraudulentWebsiteDetection: false,

		ErrorFormatter: func(err error) any {
			if err == nil {
				return nil
			}
			return err.Error()
		},

		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "4f0c2a8e-reelgen-desktop",
			OnSecondInstanceLaunch: func(data options.SecondInstanceData) {
				log.Info("second instance launch prevented", zap.Strings("args", data.Args))
			},
		},

		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     false,
			DisableWebViewDrop: true,
		},

		Windows: buildWindowsOptions(log),
		Mac:     buildMacOptions(),
		Linux:   buildLinuxOptions(),
	}); err != nil {
		log.Error("wails run failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}

	log.Info("application exited normally")
}

func buildAppMenu(cfg config.Config, log *zap.Logger) *menu.Menu {
	rootMenu := menu.NewMenu()

	if runtime.GOOS == "darwin" {
		if appMenu := menu.AppMenu(); appMenu != nil {
			rootMenu.Append(appMenu)
		}
	}

	fileMenu := menu.NewMenu()
	if cfg.Store.Driver == config.DriverSQLite {
		fileMenu.AddText("Open Data Directory", keys.CmdOrCtrl("o"), func(_ *menu.CallbackData) {
			withAppContext(log, func(ctx context.Context) {
				openPathInExplorer(ctx, log, filepath.Dir(cfg.Store.Path))
			})
		})
		fileMenu.AddSeparator()
	}
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			wruntime.Quit(ctx)
		})
	})
	rootMenu.Append(menu.SubMenu("File", fileMenu))

	viewMenu := menu.NewMenu()
	viewMenu.AddText("Reload Frontend", keys.CmdOrCtrl("r"), func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			wruntime.WindowReloadApp(ctx)
		})
	})
	viewMenu.AddText("Toggle Fullscreen", keys.Combo("f", keys.CmdOrCtrlKey, keys.ShiftKey), func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			toggleFullscreen(ctx)
		})
	})
	rootMenu.Append(menu.SubMenu("View", viewMenu))

	helpMenu := menu.NewMenu()
	helpMenu.AddText("Documentation", nil, func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			wruntime.BrowserOpenURL(ctx, docsURL)
		})
	})
	helpMenu.AddText("Project Repository", nil, func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			wruntime.BrowserOpenURL(ctx, repoURL)
		})
	})
	rootMenu.Append(menu.SubMenu("Help", helpMenu))

	return rootMenu
}

func openPathInExplorer(ctx context.Context, log *zap.Logger, path string) {
	if path == "" {
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		log.Warn("resolve path failed", zap.String("path", path), zap.Error(err))
		abs = path
	}

	wruntime.BrowserOpenURL(ctx, fileURI(abs))
}

func fileURI(path string) string {
	clean := filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(clean) > 0 && clean[0] != '/' {
		clean = "/" + clean
	}

	u := url.URL{Scheme: "file", Path: clean}
	return u.String()
}

func toggleFullscreen(ctx context.Context) {
	if wruntime.WindowIsFullscreen(ctx) {
		wruntime.WindowUnfullscreen(ctx)
		return
	}
	wruntime.WindowFullscreen(ctx)
}

func setAppContext(ctx context.Context) {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()
	appCtx = ctx
}

func withAppContext(log *zap.Logger, action func(context.Context)) {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()
	if ctx == nil {
		log.Debug("application context not initialised; ignoring menu action")
		return
	}
	action(ctx)
}
