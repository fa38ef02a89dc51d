package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/media"
	"desktop-thumbnailer/internal/metrics"
	"desktop-thumbnailer/internal/settings"
	"desktop-thumbnailer/internal/startup"
	"desktop-thumbnailer/internal/thumbnail"
)

// components is everything a command needs to work on the cache.
type components struct {
	store   *settings.Store
	factory *thumbnail.Factory
	vips    bool
}

func (c *components) Close() {
	c.factory.Close()
	if err := c.store.Close(); err != nil {
		logging.Warn("failed to close settings store: %v", err)
	}
	if c.vips {
		media.ShutdownVips()
	}
}

// openSettings opens the configured settings backend and imports the
// thumbnailers file into it, if one is set.
func openSettings(ctx context.Context, cfg *startup.Config) (*settings.Store, error) {
	var backend settings.Backend = settings.NewMemoryBackend()
	if cfg.SettingsDB != "" {
		db, err := settings.NewSQLiteBackend(ctx, cfg.SettingsDB)
		if err != nil {
			return nil, err
		}
		backend = db
	}
	store := settings.NewStore(backend)

	if cfg.ThumbnailersFile != "" {
		if err := settings.ImportYAML(store, cfg.ThumbnailersFile); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// newCodecs registers libvips ahead of the builtin codec when enabled. A
// libvips failure leaves the builtin codec in place.
func newCodecs(cfg *startup.Config) (*thumbnail.Codecs, bool) {
	var list []thumbnail.Codec
	vipsOK := false
	if cfg.UseVips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using builtin decoders only: %v", err)
		} else {
			list = append(list, media.VipsCodec{})
			vipsOK = true
		}
	}
	list = append(list, thumbnail.BuiltinCodec{})
	return thumbnail.NewCodecs(list...), vipsOK
}

func setup(ctx context.Context, cfg *startup.Config) (*components, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(newVolumeResolver(cfg))

	store, err := openSettings(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	codecs, vipsOK := newCodecs(cfg)
	factory, err := thumbnail.New(thumbnail.Options{
		CacheRoot: cfg.CacheDir,
		AppID:     cfg.AppID,
		Size:      cfg.SizeClass,
		Codecs:    codecs,
		Config:    store,
	})
	if err != nil {
		_ = store.Close()
		if vipsOK {
			media.ShutdownVips()
		}
		return nil, err
	}

	return &components{store: store, factory: factory, vips: vipsOK}, nil
}

// newVolumeResolver labels retry metrics: "cache" for the thumbnails tree
// and "media" for the user's home, where most thumbnailed files live.
func newVolumeResolver(cfg *startup.Config) *filesystem.VolumeResolver {
	volumes := map[string]string{
		"cache": thumbnail.NewPathResolver(cfg.CacheDir).Root(),
	}
	if home, err := os.UserHomeDir(); err == nil {
		volumes["media"] = home
	}
	return filesystem.NewVolumeResolver(volumes)
}

// cacheStatsAdapter exposes cache usage to the metrics collector.
type cacheStatsAdapter struct {
	paths *thumbnail.PathResolver
}

// GetStats implements metrics.StatsProvider.
func (a cacheStatsAdapter) GetStats() metrics.Stats {
	stats, err := a.paths.Usage()
	if err != nil {
		logging.Warn("Failed to measure thumbnail cache: %v", err)
	}
	return stats
}
