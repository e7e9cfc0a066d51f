package main

import (
	"beadgrid/internal/catalog"
	"beadgrid/internal/config"
	"beadgrid/internal/db"
	"beadgrid/internal/pattern"
	"beadgrid/internal/task"
	"embed"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/wailsapp/wails/v3/pkg/application"
)

//go:embed all:frontend/dist
var assets embed.FS

func init() {
	application.RegisterEvent[pattern.State](pattern.EventStateChanged)
	application.RegisterEvent[[]catalog.Summary](catalog.EventCatalogChanged)
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	paths, err := config.ResolvePaths("beadgrid")
	if err != nil {
		log.Fatal(err)
	}

	sqliteDB, err := db.Bootstrap(paths.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer sqliteDB.Close()

	registry, err := catalog.NewDefaultRegistry(paths.PaletteDir)
	if registry == nil {
		log.Fatal(err)
	}
	if err != nil {
		logger.Warn("some user palettes could not be loaded", "dir", paths.PaletteDir, "error", err)
	}

	selections := catalog.NewSelectionRepository(sqliteDB)
	patternStore := pattern.NewStore(sqliteDB)
	runner := task.NewRunner(logger.With("component", "runner"))
	defer runner.Close()
	runner.SetOnResponse(func(response task.Response) {
		if _, applied := patternStore.Apply(response); !applied {
			logger.Debug("pattern ignored superseded response", "request", response.ID)
		}
	})

	paletteWatcher := catalog.NewWatcher(registry, paths.PaletteDir, logger.With("component", "palettes"))
	settingsService := NewSettingsService(selections, registry)
	quantizeService := NewQuantizeService(registry, runner, patternStore, selections, logger)
	paletteService := NewPaletteService(registry, paletteWatcher)
	patternService := NewPatternService(patternStore, paths.ExportDir)
	bootstrapService := NewBootstrapService(registry, patternStore, settingsService)

	app := application.New(application.Options{
		Name:        "Beadgrid",
		Description: "Turn pictures into fuse bead patterns",
		Logger:      logger,
		Services: []application.Service{
			application.NewService(bootstrapService),
			application.NewService(settingsService),
			application.NewService(quantizeService),
			application.NewService(paletteService),
			application.NewService(patternService),
		},
		Assets: application.AssetOptions{
			Handler: application.AssetFileServerFS(assets),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
	})

	patternStore.SetEmitter(func(eventName string, payload any) {
		app.Event.Emit(eventName, payload)
	})
	paletteWatcher.SetEmitter(func(eventName string, payload any) {
		app.Event.Emit(eventName, payload)
	})

	if err := paletteWatcher.Start(); err != nil {
		logger.Warn("palette watcher disabled", "error", err)
	}
	defer paletteWatcher.Stop()

	app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title: "Beadgrid",
		Mac: application.MacWindow{
			InvisibleTitleBarHeight: 50,
			Backdrop:                application.MacBackdropTranslucent,
			TitleBar:                application.MacTitleBarHiddenInset,
		},
		BackgroundColour: application.NewRGB(12, 18, 24),
		URL:              "/",
	})

	err = app.Run()
	if err != nil {
		log.Fatal(err)
	}
}
