package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-rights/pkg/simplerights"
	"github.com/tendant/simple-rights/pkg/simplerights/config"
	"github.com/tendant/simple-rights/pkg/simplerights/sweep"
)

const usage = `Simple Rights Admin CLI

Inspect rights records, validate downloads and produce compliance reports
against the configured repository.

USAGE:
  rights-admin <command> [options]

COMMANDS:
  status     Show the rights status of one or more assets
  expiring   List rights expiring within a window
  validate   Validate a download request without recording it
  report     Generate a rights compliance report
  sweep      Emit expiry notifications for rights inside the window

ENVIRONMENT VARIABLES:
  DATABASE_URL      "memory" (default) or a PostgreSQL connection string
  DB_SCHEMA         PostgreSQL schema name (default: rights)
  ARCHIVE_URL       Report archive: none, memory://, file:///path, s3://bucket

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  rights-admin status asset-1 asset-2
  rights-admin expiring --days=60
  rights-admin validate --asset-id=asset-1 --usage=digital --territory=US
  rights-admin report --archive
  rights-admin sweep --dry-run

OPTIONS:
  --days=<n>              Expiry window in days (expiring, sweep)
  --asset-id=<id>         Asset to validate (validate)
  --usage=<type>          Intended usage (validate)
  --territory=<code>      Territory code (validate)
  --requester=<id>        Requester ID (validate)
  --archive               Store the report in the configured archive (report)
  --dry-run               Count matches without emitting events (sweep)
  --json                  Output as JSON
`

// options holds the parsed command line flags
type options struct {
	args      []string
	json      bool
	days      int
	assetID   string
	usage     string
	territory string
	requester string
	archive   bool
	dryRun    bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage + "\n")
		os.Exit(0)
	}

	opts, err := parseOptions(os.Args[2:])
	if err != nil {
		slog.Error("Invalid options", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.WithEnv(), config.WithEventLogging(false))
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, err := cfg.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build rights service", "err", err)
		os.Exit(1)
	}

	if opts.days == 0 {
		opts.days = cfg.ExpiringWindowDays
	}

	if err := run(ctx, svc, command, opts, os.Stdout); err != nil {
		slog.Error("Command failed", "command", command, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc simplerights.Service, command string, opts options, out io.Writer) error {
	switch command {
	case "status":
		return handleStatus(ctx, svc, opts, out)
	case "expiring":
		return handleExpiring(ctx, svc, opts, out)
	case "validate":
		return handleValidate(ctx, svc, opts, out)
	case "report":
		return handleReport(ctx, svc, opts, out)
	case "sweep":
		return handleSweep(ctx, svc, opts, out)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func parseOptions(args []string) (options, error) {
	var opts options
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			opts.args = append(opts.args, arg)
			continue
		}

		key, value := parseFlag(arg)
		switch key {
		case "json":
			opts.json = true
		case "archive":
			opts.archive = true
		case "dry-run":
			opts.dryRun = true
		case "days":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return opts, fmt.Errorf("--days must be a positive integer, got %q", value)
			}
			opts.days = n
		case "asset-id":
			opts.assetID = value
		case "usage":
			opts.usage = value
		case "territory":
			opts.territory = value
		case "requester":
			opts.requester = value
		default:
			return opts, fmt.Errorf("unknown option: --%s", key)
		}
	}
	return opts, nil
}

func parseFlag(arg string) (string, string) {
	arg = strings.TrimPrefix(arg, "--")
	if key, value, ok := strings.Cut(arg, "="); ok {
		return key, value
	}
	return arg, "true"
}

func handleStatus(ctx context.Context, svc simplerights.Service, opts options, out io.Writer) error {
	if len(opts.args) == 0 {
		return errors.New("status requires at least one asset ID")
	}

	type statusRow struct {
		AssetID string                    `json:"asset_id"`
		Status  simplerights.RightsStatus `json:"status"`
	}
	rows := make([]statusRow, 0, len(opts.args))
	for _, id := range opts.args {
		status, err := svc.GetRightsStatus(ctx, id)
		if err != nil {
			return err
		}
		rows = append(rows, statusRow{AssetID: id, Status: status})
	}

	if opts.json {
		return writeJSON(out, rows)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ASSET\tSTATUS\n")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row.AssetID, row.Status)
	}
	return w.Flush()
}

func handleExpiring(ctx context.Context, svc simplerights.Service, opts options, out io.Writer) error {
	rights, err := svc.GetExpiringRights(ctx, opts.days)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, rights)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ASSET\tNAME\tHOLDER\tEXPIRES\n")
	for _, r := range rights {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.AssetID,
			dash(truncate(r.AssetName, 30)),
			dash(r.RightsHolder.Name),
			r.ValidUntil.Format("2006-01-02"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %d expiring within %d days\n", len(rights), opts.days)
	return nil
}

func handleValidate(ctx context.Context, svc simplerights.Service, opts options, out io.Writer) error {
	result, err := svc.ValidateDownload(ctx, simplerights.ValidateDownloadInput{
		AssetID:       opts.assetID,
		RequesterID:   opts.requester,
		IntendedUsage: simplerights.UsageType(opts.usage),
		Territory:     simplerights.Territory(opts.territory),
	})
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, result)
	}

	verdict := "ALLOWED"
	if !result.Allowed {
		verdict = "DENIED"
	}
	fmt.Fprintf(out, "Download %s for asset %s\n\n", verdict, opts.assetID)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	for _, check := range result.Checks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", check.Name, check.Status, check.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggestions:")
		for _, s := range result.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	return nil
}

func handleReport(ctx context.Context, svc simplerights.Service, opts options, out io.Writer) error {
	report, err := svc.GenerateReport(ctx)
	if err != nil {
		return err
	}

	var archived *simplerights.ArchivedReport
	if opts.archive {
		archived, err = svc.ArchiveReport(ctx, report)
		if err != nil {
			return err
		}
	}

	if opts.json {
		return writeJSON(out, report)
	}

	s := report.Summary
	fmt.Fprintln(out, "=== Rights Report ===")
	fmt.Fprintf(out, "\nGenerated at: %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  %-26s: %d\n", "Total assets", s.TotalAssets)
	fmt.Fprintf(out, "  %-26s: %d\n", "Assets with rights", s.AssetsWithRights)
	fmt.Fprintf(out, "  %-26s: %d\n", "Valid rights", s.AssetsWithValidRights)
	fmt.Fprintf(out, "  %-26s: %d\n", "Expiring soon", s.AssetsExpiringSoon)
	fmt.Fprintf(out, "  %-26s: %d\n", "Expired rights", s.AssetsWithExpiredRights)
	fmt.Fprintf(out, "  %-26s: %d\n", "No rights", s.AssetsWithNoRights)
	fmt.Fprintf(out, "  %-26s: %d\n", "Total downloads", s.TotalDownloads)

	var flagged []simplerights.AssetReport
	for _, a := range report.Assets {
		if len(a.Issues) > 0 {
			flagged = append(flagged, a)
		}
	}
	if len(flagged) > 0 {
		fmt.Fprintln(out, "\nAssets with issues:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ASSET\tSTATUS\tISSUES\n")
		for _, a := range flagged {
			fmt.Fprintf(w, "%s\t%s\t%s\n", a.AssetID, a.Status, strings.Join(a.Issues, "; "))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if archived != nil {
		fmt.Fprintf(out, "\nArchived as %s\n", archived.ObjectKey)
		if archived.DownloadURL != "" {
			fmt.Fprintf(out, "Download URL: %s\n", archived.DownloadURL)
		}
	}
	return nil
}

func handleSweep(ctx context.Context, svc simplerights.Service, opts options, out io.Writer) error {
	notifier := sweep.NewExpiryNotifier(
		simplerights.NewLogEventSink(slog.Default()),
		simplerights.SystemClock(),
		opts.days,
	)
	result, err := sweep.New(svc, slog.Default()).NotifyExpiring(ctx, notifier, opts.dryRun)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, result)
	}

	fmt.Fprintf(out, "Found: %d  Notified: %d  Failed: %d\n", result.TotalFound, result.TotalProcessed, result.TotalFailed)
	if len(result.FailedIDs) > 0 {
		fmt.Fprintf(out, "Failed assets: %s\n", strings.Join(result.FailedIDs, ", "))
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
