// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/keyfob/internal/config"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/listener"
	"github.com/toeirei/keyfob/internal/logging"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
	"github.com/toeirei/keyfob/internal/service"
	"github.com/toeirei/keyfob/internal/tui"
)

const dateLayout = "2006-01-02"

// signalContext cancels on SIGINT and SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runTUI starts the listener in the background and the TUI in front of it.
func runTUI(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	st, err := newStation(appConfig, db.Default())
	if err != nil {
		return err
	}
	defer st.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := st.listener.Run(ctx); err != nil {
			logging.Errorf("listener stopped: %v", err)
		}
	}()

	err = tui.Run(ctx, tui.Deps{
		Listener:     st.listener,
		Logs:         st.logs,
		Tags:         st.tags,
		Registrar:    st.registrar,
		Exporter:     st.exporter,
		Mock:         st.mock,
		SaveLanguage: saveLanguage,
	})
	stop()
	<-done
	return err
}

// saveLanguage persists a language picked in the TUI.
func saveLanguage(lang string) error {
	appConfig.Language = lang
	if used := cfgFile; used != "" {
		return config.WriteConfigFileTo(&appConfig, used)
	}
	return config.WriteConfigFile(&appConfig, false)
}

// listenCmd runs the tap loop on the console.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Process taps on the console without the TUI",
	Long: `Starts the reader loop and prints every tap result until interrupted.
With --mock, taps are read from standard input, one per line, as
"uid[,text]" with a hexadecimal UID. Lines starting with # are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		st, err := newStation(appConfig, db.Default())
		if err != nil {
			return err
		}
		defer st.Close()
		return runListen(ctx, st, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runListen prints listener events to out until ctx is done. With the mock
// reader, in feeds the taps.
func runListen(ctx context.Context, st *station, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	label := st.labeler(ctx)
	errc := make(chan error, 1)
	go func() { errc <- st.listener.Run(ctx) }()

	if st.mock != nil && in != nil {
		_, _ = fmt.Fprintln(out, i18n.T("cli.mock_hint"))
		go feedMock(ctx, in, st.mock)
	}
	_, _ = fmt.Fprintln(out, i18n.T("cli.listening"))

	for {
		select {
		case <-ctx.Done():
			return <-errc
		case err := <-errc:
			return err
		case ev := <-st.listener.Events():
			_, _ = fmt.Fprintln(out, formatEvent(ev, label))
		}
	}
}

// formatEvent renders one listener event as a console line.
func formatEvent(ev listener.Event, label func(uint64) string) string {
	ts := ev.At.Local().Format("15:04:05")
	switch {
	case ev.Result != nil:
		return ts + "  " + tui.Describe(*ev.Result, label)
	case ev.Expired:
		return ts + "  " + i18n.T("tap.expired")
	case ev.ReaderErr != nil:
		return ts + "  " + i18n.T("tap.reader_error", ev.ReaderErr)
	}
	return ts
}

// feedMock queues every "uid[,text]" line of in on m.
func feedMock(ctx context.Context, in io.Reader, m *reader.Mock) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uid, text, err := reader.ParseMockLine(line)
		if err != nil {
			logging.Warnf("mock: %v", err)
			continue
		}
		if !m.SetNext(uid, text) {
			logging.Warnf("%s", i18n.T("mock.queue_full"))
		}
	}
	if err := sc.Err(); err != nil {
		logging.Warnf("mock: reading input: %v", err)
	}
}

// registerCmd enrolls one badge or fob.
var registerCmd = &cobra.Command{
	Use:   "register --kind employee|key --label <name>",
	Short: "Register an employee badge or a key fob",
	Long: `Waits for a tap on the configured reader, writes a fresh content id to
the tag, verifies it and stores the encrypted label.`,
	Example: `  keyfob register --kind employee --label "Jane Doe"
  echo 04A1B2C3 | keyfob register --mock --kind key --label "Van 2"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kindFlag, _ := cmd.Flags().GetString("kind")
		labelFlag, _ := cmd.Flags().GetString("label")
		uidFlag, _ := cmd.Flags().GetString("uid")

		kind, err := model.ParseTagKind(kindFlag)
		if err != nil {
			return err
		}
		var uid uint64
		if uidFlag != "" {
			if uid, err = parseUID(uidFlag); err != nil {
				return err
			}
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		st, err := newStation(appConfig, db.Default())
		if err != nil {
			return err
		}
		defer st.Close()
		return runRegister(ctx, st, service.RegisterRequest{Kind: kind, Label: labelFlag, UID: uid}, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runRegister(ctx context.Context, st *station, req service.RegisterRequest, in io.Reader, out io.Writer) error {
	if strings.TrimSpace(req.Label) == "" {
		return service.ErrEmptyLabel
	}
	if st.mock != nil && in != nil {
		go feedMock(ctx, in, st.mock)
	}
	kindLabel := i18n.T("kind." + string(req.Kind))
	_, _ = fmt.Fprintln(out, i18n.T("register.tap_now", kindLabel, req.Label))

	tag, err := st.registrar.Register(ctx, req, st.reader)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	_, _ = fmt.Fprintln(out, i18n.T("register.done", kindLabel, req.Label))
	_, _ = fmt.Fprintf(out, "UID %X\n", tag.UID)
	_, _ = fmt.Fprintln(out, i18n.T("register.content", tag.ContentUUID))
	return nil
}

// parseUID reads a hexadecimal UID with an optional 0x prefix.
func parseUID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	uid, err := strconv.ParseUint(s, 16, 64)
	if err != nil || uid == 0 {
		return 0, errors.New(i18n.T("cli.error_uid", s))
	}
	return uid, nil
}

// tagsCmd groups the tag management subcommands.
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List, activate and deactivate registered tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered badges and fobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newServices(appConfig, db.Default())
		if err != nil {
			return err
		}
		return runTagsList(cmd.Context(), st, cmd.OutOrStdout())
	},
}

func runTagsList(ctx context.Context, st *station, out io.Writer) error {
	rows, err := st.tags.List(ctx)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, i18n.T("tags.empty"))
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tLABEL\tUID\tACTIVE\tREGISTERED")
	for _, r := range rows {
		active := "yes"
		if !r.Active {
			active = "no"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%X\t%s\t%s\n",
			r.Kind, r.Label, r.UID, active, r.RegisteredAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <uid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := parseUID(args[0])
			if err != nil {
				return err
			}
			st, err := newServices(appConfig, db.Default())
			if err != nil {
				return err
			}
			if err := st.tags.SetActive(cmd.Context(), uid, active); err != nil {
				return fmt.Errorf("update tag %X: %w", uid, err)
			}
			key := "cli.tag_deactivated"
			if active {
				key = "cli.tag_activated"
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T(key, fmt.Sprintf("%X", uid)))
			return nil
		},
	}
}

var tagsActivateCmd = setActiveCmd("activate", "Allow taps of a tag again", true)
var tagsDeactivateCmd = setActiveCmd("deactivate", "Ignore taps of a tag", false)

// logsCmd prints check-outs with their returns.
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show check-outs and returns",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, f, err := logQueryFromFlags(cmd)
		if err != nil {
			return err
		}
		st, err := newServices(appConfig, db.Default())
		if err != nil {
			return err
		}
		return runLogs(cmd.Context(), st, f, q, time.Now(), cmd.OutOrStdout())
	},
}

func logQueryFromFlags(cmd *cobra.Command) (service.LogQuery, db.LogFilter, error) {
	var q service.LogQuery
	var f db.LogFilter
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	status, _ := cmd.Flags().GetString("status")
	q.Employee, _ = cmd.Flags().GetString("employee")
	q.Key, _ = cmd.Flags().GetString("key")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	var err error
	if from != "" {
		if f.Start, err = parseDay(from); err != nil {
			return q, f, err
		}
	}
	if to != "" {
		if f.End, err = parseDay(to); err != nil {
			return q, f, err
		}
		f.End = endOfDay(f.End)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return q, f, errors.New(i18n.T("export.bad_range"))
	}
	switch strings.ToLower(status) {
	case "", "all":
	case string(model.StatusOut):
		q.Status = model.StatusOut
		f.OpenOnly = true
	case string(model.StatusIn):
		q.Status = model.StatusIn
	default:
		return q, f, errors.New(i18n.T("cli.error_status", status))
	}
	return q, f, nil
}

func runLogs(ctx context.Context, st *station, f db.LogFilter, q service.LogQuery, now time.Time, out io.Writer) error {
	rows, err := st.logs.List(ctx, f)
	if err != nil {
		return fmt.Errorf("list logs: %w", err)
	}
	rows = service.Filter(rows, q)
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, i18n.T("logs.empty"))
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tEMPLOYEE\tCHECKED_OUT\tCHECKED_IN\tSTATUS\tELAPSED")
	for _, r := range rows {
		in := "-"
		if r.CheckedIn != nil {
			in = r.CheckedIn.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.KeyLabel, r.EmployeeName,
			r.CheckedOut.Local().Format("2006-01-02 15:04"), in,
			r.Status(), model.FormatElapsed(r.Elapsed(now)))
	}
	return w.Flush()
}

// parseDay reads YYYY-MM-DD as local midnight.
func parseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, errors.New(i18n.T("cli.error_date", s))
	}
	return d, nil
}

// endOfDay is the last instant of the day that starts at d.
func endOfDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// exportCmd writes check events of a date range as CSV.
var exportCmd = &cobra.Command{
	Use:   "export --from YYYY-MM-DD --to YYYY-MM-DD [-o file]",
	Short: "Export check events as CSV",
	Long: `Writes every check-out and return between the start of --from and the
end of --to. Both days are included. Without -o the CSV goes to standard
output. --compress wraps it in zstd.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		output, _ := cmd.Flags().GetString("output")
		compress, _ := cmd.Flags().GetBool("compress")

		start, end, err := exportRange(from, to, time.Now())
		if err != nil {
			return err
		}
		st, err := newServices(appConfig, db.Default())
		if err != nil {
			return err
		}
		return runExport(cmd.Context(), st, start, end, output, compress, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// exportRange resolves the flags to [start, end]. Missing values default to
// the last 30 days up to today.
func exportRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	start, end := today.AddDate(0, 0, -30), today
	var err error
	if from != "" {
		if start, err = parseDay(from); err != nil {
			return start, end, err
		}
	}
	if to != "" {
		if end, err = parseDay(to); err != nil {
			return start, end, err
		}
	}
	if end.Before(start) {
		return start, end, errors.New(i18n.T("export.bad_range"))
	}
	return start, endOfDay(end), nil
}

func runExport(ctx context.Context, st *station, start, end time.Time, output string, compress bool, stdout, stderr io.Writer) error {
	opts := service.ExportOptions{Compress: compress, Location: time.Local}
	if output == "" || output == "-" {
		n, err := st.exporter.WriteCSV(ctx, stdout, start, end, opts)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		_, _ = fmt.Fprintln(stderr, i18n.T("export.done", n, "stdout"))
		return nil
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	n, err := st.exporter.WriteCSV(ctx, f, start, end, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, _ = fmt.Fprintln(stdout, i18n.T("export.done", n, output))
	return nil
}

// backupCmd writes a compressed JSON dump of the database.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the database",
	Long: `Names and labels stay encrypted in the backup. Keep the key file (or the
passphrase) to be able to read them after a restore.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := fmt.Sprintf("keyfob-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		if len(args) > 0 {
			name = args[0]
		}
		return runBackup(cmd.Context(), db.Default(), name, cmd.OutOrStdout())
	},
}

func runBackup(ctx context.Context, store db.Store, name string, out io.Writer) error {
	_, _ = fmt.Fprintln(out, i18n.T("backup.cli_starting"))
	f, err := os.Create(name)
	if err != nil {
		return errors.New(i18n.T("backup.cli_error_write", err))
	}
	data, err := (&service.Backup{Store: store}).Write(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.New(i18n.T("backup.cli_error_export", err))
	}
	_, _ = fmt.Fprintln(out, i18n.T("backup.cli_success", name, len(data.Tags), len(data.Events)))
	return nil
}

// restoreCmd loads a backup written by backupCmd.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore the database from a backup file",
	Long: `Adds the tags and events of the backup that are not in the database yet.
With --full the database is wiped first and replaced by the backup.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if fullRestore && !yes {
			answer := promptForConfirmation(cmd.InOrStdin(), cmd.OutOrStdout(), i18n.T("restore.cli_confirm_full"))
			if answer != "y" && answer != "yes" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("restore.cli_aborted"))
				return nil
			}
		}
		return runRestore(cmd.Context(), db.Default(), args[0], fullRestore, cmd.OutOrStdout())
	},
}

func runRestore(ctx context.Context, store db.Store, name string, full bool, out io.Writer) error {
	_, _ = fmt.Fprintln(out, i18n.T("restore.cli_starting", name))
	f, err := os.Open(name)
	if err != nil {
		return errors.New(i18n.T("restore.cli_error_read", err))
	}
	defer func() { _ = f.Close() }()
	data, err := (&service.Backup{Store: store}).Restore(ctx, f, full)
	if err != nil {
		return errors.New(i18n.T("restore.cli_error_import", err))
	}
	_, _ = fmt.Fprintln(out, i18n.T("restore.cli_success", len(data.Tags), len(data.Events)))
	return nil
}

func promptForConfirmation(in io.Reader, out io.Writer, prompt string) string {
	_, _ = fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}

// dbCmd groups database housekeeping.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database housekeeping",
}

var dbMaintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run engine-specific maintenance (VACUUM, optimize, integrity check)",
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetBool("skip-integrity")
		timeout, _ := cmd.Flags().GetInt("timeout")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()
		}
		if err := db.Default().Maintain(ctx, db.MaintenanceOptions{SkipIntegrity: skip}); err != nil {
			return errors.New(i18n.T("cli.maintain_failed", err))
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.maintain_done"))
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate --to-type <db-type> --to-dsn <target-dsn>",
	Short: "Copy all data from the current database to a new one",
	Long: `Exports everything from the configured database, applies the schema to
the target and performs a full, destructive restore into it.

Example:
  keyfob db migrate --to-type postgres --to-dsn "postgres://keyfob@localhost/keyfob"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetType, _ := cmd.Flags().GetString("to-type")
		targetDsn, _ := cmd.Flags().GetString("to-dsn")
		return runMigrate(cmd.Context(), db.Default(), targetType, targetDsn, cmd.OutOrStdout())
	},
}

func runMigrate(ctx context.Context, source db.Store, targetType, targetDsn string, out io.Writer) error {
	if targetType == "" || targetDsn == "" {
		return errors.New(i18n.T("migrate.cli_error_flags"))
	}
	_, _ = fmt.Fprintln(out, i18n.T("migrate.cli_starting"))
	target, err := db.NewStoreFromDSN(targetType, targetDsn)
	if err != nil {
		return errors.New(i18n.T("migrate.cli_error_target", err))
	}
	defer func() { _ = target.Close() }()

	data, err := (&service.Backup{Store: source}).Migrate(ctx, target)
	if err != nil {
		return errors.New(i18n.T("migrate.cli_error", err))
	}
	_, _ = fmt.Fprintln(out, i18n.T("migrate.cli_success", len(data.Tags), len(data.Events)))
	_, _ = fmt.Fprintln(out, i18n.T("migrate.cli_next_steps"))
	return nil
}

func init() {
	tagsCmd.AddCommand(tagsListCmd, tagsActivateCmd, tagsDeactivateCmd)
	dbCmd.AddCommand(dbMaintainCmd, dbMigrateCmd)
}

// registerCommandFlags adds the per-command flags once.
func registerCommandFlags() {
	if registerCmd.Flags().Lookup("kind") == nil {
		registerCmd.Flags().String("kind", "employee", "Tag kind: employee or key")
		registerCmd.Flags().String("label", "", "Employee name or key label")
		registerCmd.Flags().String("uid", "", "Only accept this tag UID (hex)")
	}
	if logsCmd.Flags().Lookup("from") == nil {
		logsCmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
		logsCmd.Flags().String("to", "", "Last day, inclusive (YYYY-MM-DD)")
		logsCmd.Flags().String("status", "all", "out, in or all")
		logsCmd.Flags().String("employee", "", "Filter by employee name")
		logsCmd.Flags().String("key", "", "Filter by key label")
		logsCmd.Flags().Int("limit", 0, "Maximum number of rows (0 means all)")
	}
	if exportCmd.Flags().Lookup("from") == nil {
		exportCmd.Flags().String("from", "", "First day (YYYY-MM-DD), default 30 days ago")
		exportCmd.Flags().String("to", "", "Last day, inclusive (YYYY-MM-DD), default today")
		exportCmd.Flags().StringP("output", "o", "", "Output file (default standard output)")
		exportCmd.Flags().Bool("compress", false, "Compress the CSV with zstd")
	}
	if restoreCmd.Flags().Lookup("full") == nil {
		restoreCmd.Flags().BoolVar(&fullRestore, "full", false, "Perform a full, destructive restore (wipes all existing data first)")
		restoreCmd.Flags().BoolP("yes", "y", false, "Do not ask before a full restore")
	}
	if dbMaintainCmd.Flags().Lookup("skip-integrity") == nil {
		dbMaintainCmd.Flags().Bool("skip-integrity", false, "Skip integrity_check (SQLite) during maintenance")
		dbMaintainCmd.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	}
	if dbMigrateCmd.Flags().Lookup("to-type") == nil {
		dbMigrateCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres, mysql)")
		dbMigrateCmd.Flags().String("to-dsn", "", "Target database connection string")
	}
}
