package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/spacetraveling"
)

var (
	cfgFile    string
	staticDir  string
	siteConfig spacetraveling.SiteConfig
	logger     = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "spacetraveling",
	Short: "Static blog generator and server for a Prismic repository",
	Long: `spacetraveling renders every post of a Prismic repository into a static
site and serves it, filling in posts published after the last build on
demand.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initializeConfig(cmd.Root())
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./spacetraveling.yaml)")
	flags.StringVar(&staticDir, "static", "public", "directory of static assets served under /public")
	flags.String("content-api", "", "Prismic API endpoint")
	flags.String("output", "", "output directory for the generated site")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(buildCmd, serveCmd, postsCmd, postCmd, statusCmd, versionCmd)
}

func initializeConfig(root *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("spacetraveling")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SPACETRAVELING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	flags := root.PersistentFlags()
	for key, name := range map[string]string{
		"content.api":  "content-api",
		"build.output": "output",
		"log.level":    "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) || cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	logger = newLogger(v.GetString("log.level"))
	slog.SetDefault(logger)
	if readErr == nil {
		logger.Debug("using config file", "path", v.ConfigFileUsed())
	} else {
		logger.Debug("no config file found, using defaults and environment")
	}

	siteConfig = configFromViper(v)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.name", "spacetraveling")
	v.SetDefault("site.url", "http://localhost:3000")
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.more_rate_limit", 30)
	v.SetDefault("server.fallback_retry_after", "30s")
	v.SetDefault("content.timeout", "10s")
	v.SetDefault("content.page_size", 1)
	v.SetDefault("dates.locale", "pt-BR")
	v.SetDefault("dates.timezone", "UTC")
	v.SetDefault("build.output", "out")
	v.SetDefault("build.manifest", "data/manifest.db")
	v.SetDefault("build.concurrency", 4)
	v.SetDefault("log.level", "info")
}

func configFromViper(v *viper.Viper) spacetraveling.SiteConfig {
	return spacetraveling.SiteConfig{
		Name:        v.GetString("site.name"),
		URL:         v.GetString("site.url"),
		Description: v.GetString("site.description"),
		Author:      v.GetString("site.author"),

		Addr: v.GetString("server.addr"),

		ContentAPI:  v.GetString("content.api"),
		AccessToken: v.GetString("content.access_token"),
		APITimeout:  v.GetDuration("content.timeout"),
		PageSize:    v.GetInt("content.page_size"),

		Locale:   v.GetString("dates.locale"),
		TimeZone: v.GetString("dates.timezone"),

		OutputDir:        v.GetString("build.output"),
		ManifestPath:     v.GetString("build.manifest"),
		BuildConcurrency: v.GetInt("build.concurrency"),
		OptimizeBanners:  v.GetBool("build.optimize_banners"),

		SessionSecret: v.GetString("preview.session_secret"),
		CookieSecure:  v.GetBool("preview.cookie_secure"),

		HTMXSrc:            v.GetString("server.htmx_src"),
		MoreRateLimit:      v.GetInt("server.more_rate_limit"),
		FallbackRetryAfter: v.GetDuration("server.fallback_retry_after"),
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newApp() *spacetraveling.App {
	return spacetraveling.New(siteConfig,
		spacetraveling.WithLogger(logger),
		spacetraveling.WithStaticDir(staticDir),
	)
}
