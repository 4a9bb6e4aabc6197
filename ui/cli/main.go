// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for keyfob using Cobra. It
// defines the root command, the persistent flags, configuration loading and
// the version helpers. The subcommands live in commands.go.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/keyfob/buildvars"
	"github.com/toeirei/keyfob/internal/config"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/logging"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var cfgFile string
var verbose bool
var showVersionFlag bool
var mockFlag bool
var askPassphrase bool
var fullRestore bool // Flag for the restore command

var appConfig config.Config

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := config.Defaults()
	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, optionalConfigPath)
	// A missing file is expected on first run. Persist the defaults so the
	// user has something to edit.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Debugf("wrote default config to user config path")
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// Empty values in a hand-edited file fall back to the defaults.
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = defaults["database.type"].(string)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = defaults["database.dsn"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}
	if appConfig.SecretKeyPath == "" {
		appConfig.SecretKeyPath = defaults["secret_key_path"].(string)
	}
	if mockFlag {
		appConfig.Mock = true
	}

	i18n.Init(appConfig.Language)

	if !db.IsInitialized() {
		if _, err := db.New(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return errors.New(i18n.T("config.error_init_db", err))
		}
	}
	return nil
}

// Execute runs the CLI entrypoint. The main packages call this and handle
// the process exit.
func Execute() error {
	rootCmd := NewRootCmd()
	defer func() {
		if s := db.Default(); s != nil {
			if err := s.Close(); err != nil {
				logging.Warnf("closing database: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}

func applyDefaultFlags(cmd *cobra.Command) {
	// NewRootCmd may run several times in tests against the package-level
	// subcommands, and pflag panics on duplicates.
	if cmd.Flags().Lookup("database.type") == nil {
		cmd.Flags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	}
	if cmd.Flags().Lookup("database.dsn") == nil {
		cmd.Flags().String("database.dsn", "./data/keyfob.db", "Database connection string (DSN)")
	}
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only an explicitly set --config flag counts.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// compositeVersion renders "v1.2.3 (abc123) built: date".
func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// NewRootCmd creates and configures a new root cobra command. Tests use it
// to get fresh instances.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyfob",
		Short: "Keyfob logs who takes which key, using RFID badges and fobs.",
		Long: `Keyfob records key check-outs and returns at a single RFID reader.
An employee taps their badge, then taps the key fobs they take. Returning
a key is a single tap of its fob. Names and labels are stored encrypted.

Running without a subcommand starts the reader and the interactive TUI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Println(compositeVersion())
				os.Exit(0)
			}
			if verbose {
				logging.SetDebug(true)
				db.SetDebug(true)
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging, DB logs)")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `UI language ("en", "de")`)
	cmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "Use the mock reader instead of the configured hardware")
	cmd.PersistentFlags().BoolVar(&askPassphrase, "ask-passphrase", false, "Prompt for the passphrase that derives the encryption key")
	applyDefaultFlags(cmd)

	for _, sub := range []*cobra.Command{listenCmd, registerCmd, tagsCmd, logsCmd, exportCmd, backupCmd, restoreCmd, dbCmd} {
		applyDefaultFlags(sub)
	}
	for _, sub := range tagsCmd.Commands() {
		applyDefaultFlags(sub)
	}
	for _, sub := range dbCmd.Commands() {
		applyDefaultFlags(sub)
	}
	registerCommandFlags()

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// No config or database is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		listenCmd,
		registerCmd,
		tagsCmd,
		logsCmd,
		exportCmd,
		backupCmd,
		restoreCmd,
		dbCmd,
		versionCmd,
	)
	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, it reads build info from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	if buildvars.Commit != "" {
		resolvedCommit = buildvars.Commit
	}
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module as a dependency.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/keyfob" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// A development build still gets something identifying.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
