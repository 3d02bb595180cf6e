package cmd

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/symdex/internal/daemon"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/output"
	"github.com/Aman-CERP/symdex/internal/search"
	"github.com/Aman-CERP/symdex/internal/ui"
)

// daemonConfig applies --socket and the configured paths over the defaults.
func daemonConfig(root *rootOptions, socketFlag string) daemon.Config {
	cfg := root.config()
	socketPath := socketFlag
	if socketPath == "" {
		socketPath = cfg.Server.SocketPath
	}
	return daemon.DefaultConfig().WithPaths(socketPath, cfg.Server.PIDPath)
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var (
		socketPath string
		jsonOutput bool
		watch      bool
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's corpus and query metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := output.FormatText
			if jsonOutput {
				format = output.FormatJSON
			}
			out := output.New(cmd.OutOrStdout(), format)

			dcfg := daemonConfig(root, socketPath)
			client := daemon.NewClient(dcfg)

			if watch {
				if jsonOutput || !output.IsTTY(cmd.OutOrStdout()) {
					return symerrors.ValidationError("--watch needs a terminal", nil).
						WithSuggestion("drop --watch (and keep --json) to print a single status")
				}
				return ui.RunDashboard(cmd.Context(), client, ui.DashboardOptions{
					Interval: interval,
					Output:   cmd.OutOrStdout(),
					Input:    cmd.InOrStdin(),
					NoColor:  output.DetectNoColor(),
				})
			}

			if !client.IsRunning() {
				if jsonOutput {
					return out.JSON(daemon.StatusResult{Running: false})
				}
				out.Status("", "Daemon is not running")
				out.Statusf("", "Socket: %s", dcfg.SocketPath)
				return nil
			}

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return out.JSON(status)
			}

			out.Successf("Daemon running (pid: %d, uptime: %s)", status.PID, status.Uptime)
			if err := out.Stats(status.Corpus); err != nil {
				return err
			}
			if m := status.Metrics; m != nil {
				out.Newline()
				out.Statusf("", "queries: %d (%.1f%% without results)", m.TotalQueries, m.ZeroResultPercentage())
				for _, op := range []string{search.OpBroad, search.OpResolve, search.OpReferences} {
					out.Statusf("", "  %-10s %d", op, m.OperationCounts[op])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "Daemon socket path (default: ~/.symdex/daemon.sock)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Show a live dashboard until q is pressed")
	cmd.Flags().DurationVar(&interval, "interval", ui.DefaultInterval, "Refresh period for --watch")

	return cmd
}

func newStopCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the server that owns the daemon PID file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout(), output.FormatText)
			pf := daemon.NewPIDFile(daemonConfig(root, "").PIDPath)

			if !pf.IsRunning() {
				out.Status("", "Daemon is not running")
				return nil
			}
			pid, err := pf.Read()
			if err != nil {
				return err
			}
			if err := pf.Signal(syscall.SIGTERM); err != nil {
				return symerrors.InternalError(fmt.Sprintf("failed to signal pid %d", pid), err)
			}

			deadline := time.Now().Add(timeout)
			for time.Now().Before(deadline) {
				if !pf.IsRunning() {
					out.Successf("Daemon stopped (pid: %d)", pid)
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}
			return symerrors.InternalError(fmt.Sprintf("daemon (pid %d) did not stop within %s", pid, timeout), nil)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the server to exit")

	return cmd
}
