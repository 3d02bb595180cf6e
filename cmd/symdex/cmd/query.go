package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/daemon"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/output"
	"github.com/Aman-CERP/symdex/internal/search"
)

// querier answers the three query classes either from a running daemon or
// from a snapshot loaded into this process.
type querier interface {
	BroadSearch(ctx context.Context, pattern string, opts search.BroadSearchOptions) ([]search.SearchHit, error)
	ResolveClear(ctx context.Context, identifier string) (search.Resolution, error)
	FindTypeReferences(ctx context.Context, identifier string, maxResults int) (*search.ReferenceResult, error)
}

type localQuerier struct {
	searcher *search.Searcher
}

func (q localQuerier) BroadSearch(_ context.Context, pattern string, opts search.BroadSearchOptions) ([]search.SearchHit, error) {
	return q.searcher.BroadSearch(pattern, opts)
}

func (q localQuerier) ResolveClear(_ context.Context, identifier string) (search.Resolution, error) {
	return q.searcher.ResolveClear(identifier), nil
}

func (q localQuerier) FindTypeReferences(_ context.Context, identifier string, maxResults int) (*search.ReferenceResult, error) {
	return q.searcher.FindTypeReferences(identifier, maxResults)
}

type daemonQuerier struct {
	client *daemon.Client
}

func (q daemonQuerier) BroadSearch(ctx context.Context, pattern string, opts search.BroadSearchOptions) ([]search.SearchHit, error) {
	return q.client.BroadSearch(ctx, daemon.BroadSearchParams{
		Pattern:    pattern,
		MaxResults: opts.MaxResults,
		Exclude:    opts.ExcludeModules,
	})
}

func (q daemonQuerier) ResolveClear(ctx context.Context, identifier string) (search.Resolution, error) {
	res, err := q.client.ResolveClear(ctx, identifier)
	if err != nil {
		return search.Resolution{}, err
	}
	return *res, nil
}

func (q daemonQuerier) FindTypeReferences(ctx context.Context, identifier string, maxResults int) (*search.ReferenceResult, error) {
	return q.client.FindTypeReferences(ctx, daemon.ReferencesParams{Identifier: identifier, MaxResults: maxResults})
}

// queryFlags are shared by search, lookup, and refs.
type queryFlags struct {
	snapshot   string
	socketPath string
	format     string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.snapshot, "snapshot", "s", "", "Query this snapshot file locally instead of a running daemon")
	cmd.Flags().StringVar(&f.socketPath, "socket", "", "Daemon socket path (default: ~/.symdex/daemon.sock)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "Output format: text, json")
}

// open picks the local snapshot when --snapshot is set and the daemon
// otherwise.
func (f *queryFlags) open(root *rootOptions) (querier, error) {
	cfg := root.config()

	if f.snapshot != "" {
		c, err := corpus.LoadFile(f.snapshot)
		if err != nil && symerrors.GetCode(err) != symerrors.ErrCodeUnrecognizedSnapshot {
			return nil, err
		}
		if err != nil {
			slog.Warn("snapshot not recognized, searching an empty corpus", symerrors.LogAttrs(err)...)
		}
		return localQuerier{searcher: search.NewSearcher(corpus.NewHolder(c))}, nil
	}

	socketPath := f.socketPath
	if socketPath == "" {
		socketPath = cfg.Server.SocketPath
	}
	dcfg := daemon.DefaultConfig().WithPaths(socketPath, "")
	client := daemon.NewClient(dcfg)
	if !client.IsRunning() {
		return nil, symerrors.NetworkError("no symdex daemon is running", nil).
			WithDetail("socket", dcfg.SocketPath).
			WithSuggestion("start one with 'symdex serve --daemon', or pass --snapshot to search a file directly")
	}
	return daemonQuerier{client: client}, nil
}

func (f *queryFlags) writer(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(f.format)
	if err != nil {
		return nil, symerrors.ValidationError(err.Error(), nil)
	}
	return output.New(cmd.OutOrStdout(), format), nil
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		flags      queryFlags
		maxResults int
		exclude    []string
	)

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Regex search over modules, types, and members",
		Long: `Search module names, type names and full names, and member names, full
names, and signatures with a case-insensitive regular expression.

Results are listed in snapshot order.`,
		Example: `  symdex search 'enemy.*spawn'
  symdex search Inventory --exclude Test --exclude Editor -n 20
  symdex search '^Get' --snapshot modules.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.writer(cmd)
			if err != nil {
				return err
			}
			q, err := flags.open(root)
			if err != nil {
				return err
			}
			hits, err := q.BroadSearch(cmd.Context(), args[0], search.BroadSearchOptions{
				MaxResults:     maxResults,
				ExcludeModules: splitList(exclude),
			})
			if err != nil {
				return err
			}
			return out.Hits(hits)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", search.MaxResultsLimit, "Maximum number of hits")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Skip modules whose name contains this substring (repeatable)")

	return cmd
}

func newLookupCmd(root *rootOptions) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "lookup <identifier>",
		Short: "Resolve a type name to its module and source file",
		Long: `Resolve a short or fully qualified type name.

An exact full-name match wins. Otherwise every type whose full name contains
the identifier is a candidate; more than one is reported as ambiguous, and
none gives near-miss suggestions.`,
		Example: `  symdex lookup Game.Core.Player
  symdex lookup PlayerController --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.writer(cmd)
			if err != nil {
				return err
			}
			q, err := flags.open(root)
			if err != nil {
				return err
			}
			res, err := q.ResolveClear(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.Status == search.StatusBadRequest {
				return symerrors.ValidationError(res.Error, nil)
			}
			return out.Resolution(res)
		},
	}

	flags.register(cmd)
	return cmd
}

func newRefsCmd(root *rootOptions) *cobra.Command {
	var (
		flags      queryFlags
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "refs <identifier>",
		Short: "List types that reference a type",
		Long: `List the types whose base type, interfaces, fields, properties, or method
signatures mention the given type, with the reason for each.`,
		Example: `  symdex refs Player
  symdex refs Game.Core.Entity -n 50 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.writer(cmd)
			if err != nil {
				return err
			}
			q, err := flags.open(root)
			if err != nil {
				return err
			}
			res, err := q.FindTypeReferences(cmd.Context(), args[0], maxResults)
			if err != nil {
				return err
			}
			return out.References(res)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", search.MaxResultsLimit, "Maximum number of referencing types")

	return cmd
}

// splitList flattens comma-separated values and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
