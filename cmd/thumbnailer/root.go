package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/startup"
	"desktop-thumbnailer/internal/thumbnail"
)

// options holds flag overrides applied on top of the environment config.
type options struct {
	logLevel string
	cacheDir string
	appID    string
	size     string
	settings string
	file     string
	noVips   bool
	listen   string

	cfg *startup.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "thumbnailer",
		Short: "Freedesktop thumbnail cache service and tools",
		Long: `thumbnailer looks up, generates and stores thumbnails in the shared
freedesktop.org cache (~/.cache/thumbnails).

Configuration is read from THUMBNAILER_* environment variables; flags
override them. Run "thumbnailer env" for the full list.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Directory holding the thumbnails tree")
	flags.StringVar(&opts.appID, "app-id", "", "Application id used to namespace failure markers")
	flags.StringVar(&opts.size, "size", "", "Size class: normal or large")
	flags.StringVar(&opts.settings, "settings-db", "", "SQLite settings database (default in memory)")
	flags.StringVar(&opts.file, "thumbnailers", "", "YAML file of external thumbnailers to import")
	flags.BoolVar(&opts.noVips, "no-vips", false, "Do not register the libvips codec")

	root.AddCommand(
		newServeCmd(opts),
		newLookupCmd(opts),
		newGenerateCmd(opts),
		newFailCheckCmd(opts),
		newScriptsCmd(opts),
		newVersionCmd(),
		newEnvCmd(),
	)
	return root
}

// load reads the environment config and applies flag overrides.
func (o *options) load(cmd *cobra.Command) error {
	if o.logLevel != "" {
		level, ok := logging.ParseLevel(o.logLevel)
		if !ok {
			return fmt.Errorf("invalid log level %q", o.logLevel)
		}
		logging.SetLevel(level)
	}

	cfg, err := startup.LoadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if flags.Changed("app-id") {
		cfg.AppID = o.appID
	}
	if flags.Changed("size") {
		size, err := thumbnail.ParseSize(o.size)
		if err != nil {
			return err
		}
		cfg.Size, cfg.SizeClass = size.String(), size
	}
	if flags.Changed("settings-db") {
		cfg.SettingsDB = o.settings
	}
	if flags.Changed("thumbnailers") {
		cfg.ThumbnailersFile = o.file
	}
	if o.noVips {
		cfg.UseVips = false
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = o.listen
	}

	if err := startup.Validate(cfg); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}
