package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"f95api/lib/configutil"
	"f95api/lib/osutil"
	"f95api/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`

	SessionPath       string  `json:"session_path"`
	PlatformCachePath string  `json:"platform_cache_path"`
	LibraryPath       string  `json:"library_path"`
	BaseUrl           string  `json:"base_url"`
	RateLimit         float64 `json:"rate_limit"`
	Concurrency       int     `json:"concurrency"`
	MaxPages          int     `json:"max_pages"`
	TrustedDevice     bool    `json:"trusted_device"`

	Telemetry telemetry.Config `json:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		SessionPath:       osutil.UserStatePath("session.json"),
		PlatformCachePath: osutil.UserStatePath("platform.json"),
		LibraryPath:       osutil.UserStatePath("library.db"),
	}
}

var (
	configPath string
	debug      bool
	dumpDir    string

	cfg Config
	tel telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "f95-cli",
	Short: "f95-cli searches, reads and tracks handiworks on the F95Zone forum.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)

		var err error
		cfg, err = configutil.ReadConfigWithDefaults(configPath, defaultConfig())
		if err != nil {
			fatal("failed to read config", err)
		}

		tel, err = telemetry.Setup(cmd.Context(), "f95-cli", cfg.Telemetry)
		if err != nil {
			fatal("failed to setup telemetry", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "f95.json5", "The configuration file to read.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug messages.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump", "", "Write every http exchange to this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
