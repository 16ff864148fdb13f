package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charliek/revive/internal/api"
	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/daemon"
	"github.com/charliek/revive/internal/tui"
	"github.com/spf13/cobra"
)

// App runs the client commands against one API address
type App struct {
	apiAddr string
	out     io.Writer
	errOut  io.Writer
}

// NewApp creates an App writing to out and errOut
func NewApp(apiAddr string, out, errOut io.Writer) *App {
	return &App{apiAddr: apiAddr, out: out, errOut: errOut}
}

func (a *App) client() *Client {
	return NewClient(a.apiAddr)
}

// notRunningHint adds a hint when the daemon could not be reached
func notRunningHint(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("%w\nIs revive running? Try 'revive run -d' first", err)
}

// Status prints the watchdog status
func (a *App) Status(jsonOutput bool) error {
	status, err := a.client().GetStatus()
	if err != nil {
		return notRunningHint(err)
	}

	if jsonOutput {
		return json.NewEncoder(a.out).Encode(status)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", status.Status)
	fmt.Fprintf(w, "Uptime:\t%s\n", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	if status.ConfigFile != "" {
		fmt.Fprintf(w, "Config:\t%s\n", status.ConfigFile)
	}
	fmt.Fprintln(w)

	if status.Target == nil {
		fmt.Fprintln(w, "Target:\tnone (use 'revive watch <server-id>')")
		return w.Flush()
	}

	t := status.Target
	fmt.Fprintf(w, "Target:\t%s (%s)\n", t.Name, t.ServerID)
	fmt.Fprintf(w, "Address:\t%s\n", valueOr(t.Address, "unknown"))
	fmt.Fprintf(w, "Spec:\t%s / %s / %s\n", t.ServerType, t.Image, t.Location)
	fmt.Fprintf(w, "Health:\t%s (%d/%d failures)\n", status.Health, status.ConsecutiveFailures, status.Threshold)
	if status.RecoveryInProgress {
		fmt.Fprintln(w, "Recovery:\tin progress")
	}
	if p := status.LastProbe; p != nil {
		line := fmt.Sprintf("%s in %.1fms", p.Outcome, p.LatencyMS)
		if p.Error != "" {
			line += " (" + p.Error + ")"
		}
		fmt.Fprintf(w, "Last probe:\t%s\n", line)
	}
	if r := status.LastRecovery; r != nil {
		line := fmt.Sprintf("%s at %s, %s -> %s", r.Result, r.StartedAt, r.OldServerID, valueOr(r.NewServerID, "none"))
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		fmt.Fprintf(w, "Last recovery:\t%s\n", line)
	}
	if t.Recoveries > 0 {
		fmt.Fprintf(w, "Recoveries:\t%d\n", t.Recoveries)
	}

	return w.Flush()
}

// Watch registers serverID as the monitored target
func (a *App) Watch(serverID string) error {
	target, err := a.client().Watch(serverID)
	if err != nil {
		return notRunningHint(err)
	}
	fmt.Fprintf(a.out, "Watching %s (%s) at %s\n", target.Name, target.ServerID, valueOr(target.Address, "unknown address"))
	return nil
}

// Unwatch clears the monitored target
func (a *App) Unwatch() error {
	if err := a.client().Unwatch(); err != nil {
		return notRunningHint(err)
	}
	fmt.Fprintln(a.out, "Monitoring stopped")
	return nil
}

// Recover starts a manual recovery
func (a *App) Recover(reason string) error {
	id, err := a.client().Recover(reason)
	if err != nil {
		return notRunningHint(err)
	}
	fmt.Fprintf(a.out, "Recovery %s started\n", id)
	return nil
}

// Stop asks the daemon to shut down
func (a *App) Stop() error {
	if err := a.client().Shutdown(); err != nil {
		return notRunningHint(err)
	}
	fmt.Fprintln(a.out, "Shutdown initiated")
	return nil
}

// Events prints journal events, following new ones when follow is set
func (a *App) Events(ctx context.Context, params EventParams, follow, jsonOutput bool) error {
	printer := &EventPrinter{out: a.out, json: jsonOutput}
	client := a.client()

	if follow {
		if err := client.StreamEvents(ctx, params, printer.Print); err != nil {
			return notRunningHint(err)
		}
		return nil
	}

	resp, err := client.GetEvents(params)
	if err != nil {
		return notRunningHint(err)
	}
	if jsonOutput {
		return json.NewEncoder(a.out).Encode(resp)
	}
	for _, event := range resp.Events {
		printer.Print(event)
	}
	if len(resp.Events) < resp.FilteredCount {
		fmt.Fprintf(a.out, "\n(showing %d of %d events)\n", len(resp.Events), resp.FilteredCount)
	}
	return nil
}

// Dashboard opens the terminal dashboard
func (a *App) Dashboard() error {
	client := a.client()
	if _, err := client.GetStatus(); err != nil {
		return notRunningHint(err)
	}
	return tui.RunClient(client)
}

// EventPrinter writes events as coloured lines or JSON
type EventPrinter struct {
	out  io.Writer
	json bool
}

// Print writes one event
func (p *EventPrinter) Print(event api.EventResponse) {
	if p.json {
		_ = json.NewEncoder(p.out).Encode(event)
		return
	}

	ts, err := time.Parse(time.RFC3339Nano, event.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	color := constants.SeverityColors[event.Severity]
	server := ""
	if event.ServerID != "" {
		server = "[" + event.ServerID + "] "
	}
	fmt.Fprintf(p.out, "%s %s%-5s%s │ %-18s %s%s\n",
		ts.Local().Format("15:04:05"),
		color, event.Severity, constants.ColorReset,
		event.Type, server, event.Message)
}

// formatDuration formats a duration nicely
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func appFor(cmd *cobra.Command) *App {
	return NewApp(apiAddr, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

var (
	statusJSON    bool
	recoverReason string

	eventsFollow  bool
	eventsLimit   int
	eventsTypes   []string
	eventsPattern string
	eventsRegex   bool
	eventsJSON    bool

	logsLines int
)

var statusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show the monitored server and its health",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return appFor(cmd).Status(statusJSON)
	},
}

var watchCmd = &cobra.Command{
	Use:         "watch <server-id>",
	Short:       "Monitor a server",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return appFor(cmd).Watch(args[0])
	},
}

var unwatchCmd = &cobra.Command{
	Use:         "unwatch",
	Short:       "Stop monitoring",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return appFor(cmd).Unwatch()
	},
}

var recoverCmd = &cobra.Command{
	Use:         "recover",
	Short:       "Replace the monitored server now",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return appFor(cmd).Recover(recoverReason)
	},
}

var stopCmd = &cobra.Command{
	Use:         "stop",
	Short:       "Stop the running watchdog",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return appFor(cmd).Stop()
	},
}

var eventsCmd = &cobra.Command{
	Use:         "events",
	Short:       "Show the event journal",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsLimit < 1 {
			return fmt.Errorf("invalid -n value %d (must be a positive integer)", eventsLimit)
		}
		params := EventParams{
			Limit:   eventsLimit,
			Pattern: eventsPattern,
			Regex:   eventsRegex,
		}
		for _, t := range eventsTypes {
			if t = strings.TrimSpace(t); t != "" {
				params.Types = append(params.Types, t)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return appFor(cmd).Events(ctx, params, eventsFollow, eventsJSON)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the log of the background watchdog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		return daemon.TailLog(cwd, logsLines, cmd.OutOrStdout())
	},
}

var dashboardCmd = &cobra.Command{
	Use:         "dashboard",
	Short:       "Open the terminal dashboard",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{clientAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return appFor(cmd).Dashboard()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	recoverCmd.Flags().StringVar(&recoverReason, "reason", "", "Reason recorded with the recovery")

	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "Stream new events")
	eventsCmd.Flags().IntVarP(&eventsLimit, "lines", "n", constants.DefaultEventLimit, "Number of events")
	eventsCmd.Flags().StringSliceVar(&eventsTypes, "type", nil, "Only show these event types")
	eventsCmd.Flags().StringVar(&eventsPattern, "pattern", "", "Only show events whose message matches")
	eventsCmd.Flags().BoolVar(&eventsRegex, "regex", false, "Treat --pattern as a regular expression")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output as JSON")

	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines")

	rootCmd.AddCommand(statusCmd, watchCmd, unwatchCmd, recoverCmd, stopCmd, eventsCmd, logsCmd, dashboardCmd)
}
