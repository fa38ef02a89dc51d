package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/mediatypes"
	"desktop-thumbnailer/internal/memory"
	"desktop-thumbnailer/internal/startup"
	"desktop-thumbnailer/internal/thumbnail"
	"desktop-thumbnailer/internal/workers"
)

// target is a resource named on the command line.
type target struct {
	arg   string
	uri   string
	mtime int64
	mime  string
}

// resolveTarget accepts a local path or a URI. Local files supply their own
// mtime and MIME type; for other URIs mtime must be given.
func resolveTarget(arg string, mtime int64, detectMime bool) (target, error) {
	t := target{arg: arg, mtime: mtime}

	if path, ok := thumbnail.LocalPath(arg); ok {
		t.uri = arg
		arg = path
	} else if filepath.IsAbs(arg) || !looksLikeURI(arg) {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return t, err
		}
		if t.uri, err = thumbnail.FileURI(abs); err != nil {
			return t, err
		}
		arg = abs
	} else {
		t.uri = arg
		if mtime == 0 {
			return t, fmt.Errorf("%s: --mtime is required for non-local URIs", t.arg)
		}
		return t, nil
	}

	if mtime == 0 {
		info, err := filesystem.StatWithRetry(arg, filesystem.DefaultRetryConfig())
		if err != nil {
			return t, err
		}
		t.mtime = info.ModTime().Unix()
	}
	if detectMime {
		mime, err := mediatypes.Detect(arg)
		if err != nil {
			return t, err
		}
		t.mime = mime
	}
	return t, nil
}

func looksLikeURI(s string) bool {
	for i, r := range s {
		switch {
		case r == ':':
			return i > 0
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return false
}

func newLookupCmd(opts *options) *cobra.Command {
	var mtime int64
	cmd := &cobra.Command{
		Use:   "lookup <path-or-uri>",
		Short: "Print the path of a valid cached thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(args[0], mtime, false)
			if err != nil {
				return err
			}
			c, err := setup(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			path, ok := c.factory.Lookup(t.uri, t.mtime)
			if !ok {
				return fmt.Errorf("no valid %s thumbnail for %s", c.factory.Size(), t.uri)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().Int64Var(&mtime, "mtime", 0, "Modification time of the resource (unix seconds)")
	return cmd
}

func newFailCheckCmd(opts *options) *cobra.Command {
	var mtime int64
	cmd := &cobra.Command{
		Use:   "fail-check <path-or-uri>",
		Short: "Report whether a current failure marker exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(args[0], mtime, false)
			if err != nil {
				return err
			}
			c, err := setup(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			failed := c.factory.HasValidFailure(t.uri, t.mtime)
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(failed))
			return nil
		},
	}
	cmd.Flags().Int64Var(&mtime, "mtime", 0, "Modification time of the resource (unix seconds)")
	return cmd
}

// result is the outcome of generating one thumbnail.
type result struct {
	target target
	path   string
	err    error
}

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		jobs  int
		mtime int64
		mime  string
	)
	cmd := &cobra.Command{
		Use:   "generate <path-or-uri>...",
		Short: "Generate and store thumbnails",
		Long: `generate looks up each resource and generates a thumbnail when no valid
entry exists. Resources that cannot be thumbnailed get a failure marker.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]target, 0, len(args))
			for _, arg := range args {
				t, err := resolveTarget(arg, mtime, mime == "")
				if err != nil {
					return err
				}
				if mime != "" {
					t.mime = mime
				}
				targets = append(targets, t)
			}

			c, err := setup(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			memory.Configure(opts.cfg.MemoryLimit, opts.cfg.MemoryRatio)
			monitor := memory.NewMonitor(memory.DefaultMonitorConfig())
			monitor.Start()
			defer monitor.Stop()

			results := generateAll(cmd.Context(), c.factory, monitor, targets, jobs)
			failed := printResults(cmd.OutOrStdout(), results, isTerminal(cmd.OutOrStdout()))
			if failed > 0 {
				return fmt.Errorf("%d of %d thumbnails could not be generated", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", workers.ForMixed(0), "Number of concurrent generations")
	cmd.Flags().Int64Var(&mtime, "mtime", 0, "Modification time for every resource (unix seconds)")
	cmd.Flags().StringVar(&mime, "mime", "", "MIME type for every resource (default: detect)")
	return cmd
}

// generateAll runs up to jobs generations at once. Each one first waits
// out any memory pause.
func generateAll(ctx context.Context, f *thumbnail.Factory, monitor *memory.Monitor, targets []target, jobs int) []result {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]result, len(targets))

	indexes := make([]int, len(targets))
	for i := range indexes {
		indexes[i] = i
	}

	_ = workers.ForEach(ctx, jobs, indexes, func(ctx context.Context, i int) error {
		t := targets[i]
		if err := monitor.Wait(ctx); err != nil {
			results[i] = result{target: t, err: err}
			return err
		}
		path, err := f.Thumbnail(ctx, t.uri, t.mime, t.mtime)
		results[i] = result{target: t, path: path, err: err}
		return err
	})

	for i := range results {
		if results[i].target.uri == "" {
			results[i] = result{target: targets[i], err: context.Canceled}
		}
	}
	return results
}

// printResults writes one line per result and returns the failure count.
// Terminals get aligned columns; pipes get tab-separated fields.
func printResults(w io.Writer, results []result, tty bool) int {
	failed := 0
	out := w
	var tw *tabwriter.Writer
	if tty {
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		out = tw
	}

	for _, r := range results {
		status, detail := "ok", r.path
		if r.err != nil {
			failed++
			status, detail = "failed", r.err.Error()
			if errors.Is(r.err, thumbnail.ErrNoThumbnail) {
				status = "none"
			}
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", status, r.target.arg, detail)
	}

	if tw != nil {
		_ = tw.Flush()
	}
	return failed
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newScriptsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List registered external thumbnailers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := setup(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			scripts := c.factory.Scripts().Snapshot()
			types := make([]string, 0, len(scripts))
			for t := range scripts {
				types = append(types, t)
			}
			sort.Strings(types)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range types {
				fmt.Fprintf(w, "%s\t%s\n", t, scripts[t])
			}
			return w.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "thumbnailer %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List supported environment variables",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return startup.Usage()
		},
	}
}
