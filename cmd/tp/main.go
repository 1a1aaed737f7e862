package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskpulse/internal/config"
	"taskpulse/internal/db"
	"taskpulse/internal/dispatch"
	"taskpulse/internal/engine"
	"taskpulse/internal/logging"
	"taskpulse/internal/migrate"
	"taskpulse/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "tp",
	Short: "taskpulse CLI",
	Long: `taskpulse turns a personal task list, journal and persona into advice.
Core concepts:
- Workspace: a directory holding taskpulse.yml and the .taskpulse/ SQLite store.
- Tasks: things to do, with optional reminder, recurrence and keywords.
- Journal: free-text entries with an optional mood.
- Persona: preferred and avoided domains plus ambition and momentum in [0,1].
- Analyses: priorities, focus, domino effect, load forecast, burnout risk, patterns, journal insights and categorization.
- Runs: analysis results you chose to keep with --save.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(workspace())
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace directory (default $XDG_DATA_HOME/taskpulse)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level from config")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(journalCmd())
	rootCmd.AddCommand(personaCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(focusCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
}

func workspace() string {
	if ws := viper.GetString("workspace"); ws != "" {
		return ws
	}
	return filepath.Join(xdg.DataHome, "taskpulse")
}

// loadConfig reads taskpulse.yml from the workspace, falling back to the
// defaults, and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(afero.NewOsFs(), workspace())
	if err != nil {
		return nil, err
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if secret := viper.GetString("jwt-secret"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if tz := viper.GetString("timezone"); tz != "" {
		cfg.Engine.Timezone = tz
	}
	return cfg, cfg.Validate()
}

type runtime struct {
	Engine engine.Engine
	Logger *slog.Logger
	closer io.Closer
}

func newRuntime(conn *sql.DB, cfg *config.Config, opts dispatch.Options) (runtime, error) {
	logger, closer := logging.New(cfg, os.Stderr)
	loc, err := cfg.Location()
	if err != nil {
		closer.Close()
		return runtime{}, err
	}
	opts.Location = loc
	opts.Workers = cfg.Engine.Workers
	opts.CacheSize = cfg.Engine.CacheSize
	opts.DominoPool = cfg.Engine.DominoPoolSize
	opts.Logger = logger
	d, err := dispatch.New(opts)
	if err != nil {
		closer.Close()
		return runtime{}, err
	}
	return runtime{Engine: engine.New(conn, cfg, d), Logger: logger, closer: closer}, nil
}

func withRuntime(ctx context.Context, opts dispatch.Options, fn func(context.Context, runtime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace()})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	rt, err := newRuntime(conn, cfg, opts)
	if err != nil {
		return err
	}
	defer rt.closer.Close()
	return fn(ctx, rt)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withRuntime(ctx, dispatch.Options{}, func(ctx context.Context, rt runtime) error {
		return fn(ctx, rt.Engine)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := db.Open(db.Config{Workspace: workspace()})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTime accepts RFC 3339 or a local "2006-01-02 15:04" / "2006-01-02".
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC 3339, YYYY-MM-DD HH:MM or YYYY-MM-DD)", s)
}

func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
