package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/symdex/internal/config"
	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/daemon"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/httpapi"
	"github.com/Aman-CERP/symdex/internal/mcp"
	"github.com/Aman-CERP/symdex/internal/profiling"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/telemetry"
	"github.com/Aman-CERP/symdex/internal/watcher"
)

// serveOptions are the settings of one serve run after flags have been
// applied over the configuration.
type serveOptions struct {
	snapshot   string
	http       bool
	daemon     bool
	mcp        bool
	watch      bool
	debounce   time.Duration
	addr       string
	socketPath string
	pidPath    string

	maxCacheSize int
	telemetry    bool
	telemetryDB  string
	debug        bool
	profile      profiling.Options

	// stdin is read for the snapshot when no file is given.
	stdin *os.File
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		snapshot   string
		host       string
		port       int
		socketPath string
		enableHTTP bool
		enableRPC  bool
		enableMCP  bool
		watch      bool
		profile    profiling.Options
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a snapshot and serve queries",
		Long: `Load a snapshot and serve queries until interrupted.

The snapshot is read from --snapshot, or from stdin when no file is given.
With --mcp stdin carries the MCP protocol instead, so a snapshot file is
required to have anything to search.

Transports:
  --http    loopback HTTP API (default 127.0.0.1:5015)
  --daemon  JSON-RPC over a unix socket, used by 'symdex search|lookup|refs'
  --mcp     Model Context Protocol over stdio

--watch reloads the snapshot file whenever it changes.`,
		Example: `  # HTTP API over a snapshot file, reloading on change
  symdex serve --snapshot modules.json --watch

  # Pipe a snapshot and serve the CLI daemon as well
  dump-modules | symdex serve --daemon

  # MCP server for an AI client
  symdex serve --mcp --http=false --snapshot modules.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.config()
			flags := cmd.Flags()

			opts := serveOptionsFromConfig(cfg)
			opts.debug = root.debug
			opts.profile = profile
			if flags.Changed("snapshot") {
				opts.snapshot = snapshot
			}
			if flags.Changed("http") {
				opts.http = enableHTTP
			}
			if flags.Changed("daemon") {
				opts.daemon = enableRPC
			}
			if flags.Changed("mcp") {
				opts.mcp = enableMCP
			}
			if flags.Changed("watch") {
				opts.watch = watch
			}
			if flags.Changed("socket") {
				opts.socketPath = socketPath
			}
			if flags.Changed("host") || flags.Changed("port") {
				h, p := cfg.Server.Host, cfg.Server.Port
				if flags.Changed("host") {
					h = host
				}
				if flags.Changed("port") {
					p = port
				}
				opts.addr = net.JoinHostPort(h, strconv.Itoa(p))
			}

			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "Snapshot file (default: stdin)")
	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "HTTP listen host")
	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "HTTP listen port")
	cmd.Flags().StringVar(&socketPath, "socket", "", "Daemon socket path (default: ~/.symdex/daemon.sock)")
	cmd.Flags().BoolVar(&enableHTTP, "http", true, "Serve the HTTP API")
	cmd.Flags().BoolVar(&enableRPC, "daemon", false, "Serve JSON-RPC on the daemon socket")
	cmd.Flags().BoolVar(&enableMCP, "mcp", false, "Serve MCP over stdio")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the snapshot file when it changes")
	cmd.Flags().StringVar(&profile.CPUPath, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&profile.HeapPath, "memprofile", "", "Write a heap profile to this file on exit")
	cmd.Flags().StringVar(&profile.TracePath, "trace", "", "Write an execution trace to this file")

	return cmd
}

func serveOptionsFromConfig(cfg *config.Config) serveOptions {
	return serveOptions{
		snapshot:     cfg.Snapshot.Path,
		http:         cfg.Server.HTTP,
		daemon:       cfg.Server.Daemon,
		mcp:          cfg.Server.MCP,
		watch:        cfg.Snapshot.Watch,
		debounce:     cfg.DebounceDuration(),
		addr:         cfg.Addr(),
		socketPath:   cfg.Server.SocketPath,
		pidPath:      cfg.Server.PIDPath,
		maxCacheSize: cfg.Search.PatternCacheSize,
		telemetry:    cfg.Telemetry.Enabled,
		telemetryDB:  cfg.Telemetry.DBPath,
		stdin:        os.Stdin,
	}
}

// runServe runs every enabled transport until ctx is cancelled or one of
// them fails.
func runServe(ctx context.Context, opts serveOptions) error {
	if !opts.http && !opts.daemon && !opts.mcp {
		return symerrors.ConfigError("no transport enabled", nil).
			WithSuggestion("enable at least one of --http, --daemon, or --mcp")
	}

	httpapi.SetMode(opts.debug)

	if opts.profile.Enabled() {
		prof, err := profiling.Start(opts.profile)
		if err != nil {
			return symerrors.IOError("failed to start profiling", err)
		}
		defer func() {
			if perr := prof.Stop(); perr != nil {
				slog.Warn("profile not written", slog.String("error", perr.Error()))
			}
		}()
	}

	holder := corpus.NewHolder(loadInitialCorpus(opts))

	metrics, err := openMetrics(opts)
	if err != nil {
		return err
	}
	if metrics != nil {
		defer func() {
			if cerr := metrics.Close(); cerr != nil {
				slog.Warn("telemetry close failed", slog.String("error", cerr.Error()))
			}
		}()
	}

	searchOpts := []search.SearcherOption{search.WithPatternCacheSize(opts.maxCacheSize)}
	if metrics != nil {
		searchOpts = append(searchOpts, search.WithRecorder(metrics))
	}
	searcher := search.NewSearcher(holder, searchOpts...)

	var (
		httpSrv *httpapi.Server
		rpcSrv  *daemon.Server
		mcpSrv  *mcp.Server
	)
	if opts.http {
		var httpOpts []httpapi.Option
		if metrics != nil {
			httpOpts = append(httpOpts, httpapi.WithMetrics(metrics))
		}
		httpSrv = httpapi.NewServer(searcher, httpOpts...)
	}
	if opts.daemon {
		if rpcSrv, err = newDaemonServer(opts, searcher, metrics); err != nil {
			return err
		}
	}
	if opts.mcp {
		var mcpOpts []mcp.Option
		if metrics != nil {
			mcpOpts = append(mcpOpts, mcp.WithMetrics(metrics))
		}
		if mcpSrv, err = mcp.NewServer(searcher, mcpOpts...); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if httpSrv != nil {
		g.Go(func() error {
			return httpSrv.ListenAndServe(gctx, opts.addr)
		})
	}
	if rpcSrv != nil {
		g.Go(func() error {
			if err := rpcSrv.ListenAndServe(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if mcpSrv != nil {
		g.Go(func() error {
			// The client closing stdio ends the whole process.
			defer cancel()
			return mcpSrv.Serve(gctx, "stdio")
		})
	}

	if opts.watch {
		if opts.snapshot == "" {
			slog.Warn("--watch needs a snapshot file, not watching stdin")
		} else {
			reloader := watcher.NewReloader(opts.snapshot, holder,
				watcher.Options{DebounceWindow: opts.debounce})
			g.Go(func() error {
				return reloader.Run(gctx)
			})
		}
	}

	stats := holder.Load().Stats()
	slog.Info("symdex serving",
		slog.Bool("http", opts.http),
		slog.Bool("daemon", opts.daemon),
		slog.Bool("mcp", opts.mcp),
		slog.Bool("watch", opts.watch),
		slog.Int("modules", stats.Modules),
		slog.Int("types", stats.Types),
		slog.Int("members", stats.Members),
		slog.String("heap", profiling.FormatBytes(profiling.MemStats().HeapAlloc)))

	err = g.Wait()
	slog.Info("symdex stopped")
	return err
}

func newDaemonServer(opts serveOptions, searcher *search.Searcher, metrics *telemetry.QueryMetrics) (*daemon.Server, error) {
	dcfg := daemon.DefaultConfig().WithPaths(opts.socketPath, opts.pidPath)
	if err := dcfg.Validate(); err != nil {
		return nil, err
	}
	if err := dcfg.EnsureDir(); err != nil {
		return nil, err
	}
	rpcOpts := []daemon.ServerOption{daemon.WithPIDFile(daemon.NewPIDFile(dcfg.PIDPath))}
	if metrics != nil {
		rpcOpts = append(rpcOpts, daemon.WithMetrics(metrics))
	}
	return daemon.NewServer(dcfg.SocketPath, searcher, rpcOpts...)
}

// loadInitialCorpus reads the snapshot named by opts. Read and decode
// failures are logged and served as an empty corpus.
func loadInitialCorpus(opts serveOptions) *corpus.Corpus {
	var (
		c   *corpus.Corpus
		err error
	)
	switch {
	case opts.snapshot != "":
		c, err = corpus.LoadFile(opts.snapshot)
	case opts.mcp:
		slog.Warn("no snapshot file given and stdin is reserved for MCP, serving an empty corpus")
		return corpus.Empty()
	default:
		c, err = corpus.LoadStdin(opts.stdin)
	}
	if err != nil {
		slog.Warn("snapshot not loaded, serving an empty corpus", symerrors.LogAttrs(err)...)
	}
	if c == nil {
		c = corpus.Empty()
	}
	return c
}

// openMetrics returns nil when telemetry is disabled.
func openMetrics(opts serveOptions) (*telemetry.QueryMetrics, error) {
	if !opts.telemetry {
		return nil, nil
	}
	if opts.telemetryDB == "" {
		return telemetry.NewQueryMetrics(nil), nil
	}
	store, err := telemetry.OpenSQLiteMetricsStore(opts.telemetryDB)
	if err != nil {
		return nil, symerrors.IOError("failed to open telemetry database", err).
			WithDetail("path", opts.telemetryDB).
			WithSuggestion("set telemetry.db_path to a writable file, or leave it empty to keep metrics in memory")
	}
	return telemetry.NewQueryMetrics(store), nil
}
