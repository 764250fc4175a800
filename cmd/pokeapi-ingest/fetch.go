package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Sternrassler/pokeapi-ingest/internal/config"
	"github.com/Sternrassler/pokeapi-ingest/pkg/client"
	"github.com/Sternrassler/pokeapi-ingest/pkg/collector"
	"github.com/Sternrassler/pokeapi-ingest/pkg/logging"
	"github.com/Sternrassler/pokeapi-ingest/pkg/metrics"
	"github.com/Sternrassler/pokeapi-ingest/pkg/pagination"
	"github.com/Sternrassler/pokeapi-ingest/pkg/ratelimit"
	"github.com/Sternrassler/pokeapi-ingest/pkg/report"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const redisPingTimeout = 2 * time.Second

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one listing page and export it as CSV",
		Long: `Fetch one listing page from PokéAPI, then the detail document of every
listed Pokémon, one request at a time. Prints a preview, the number of rows
and the average base experience, then writes the CSV table.`,
		Example: `  pokeapi-ingest fetch
  pokeapi-ingest fetch --limit 20 --offset 40 -o out/pokemon.csv
  pokeapi-ingest fetch --redis-addr localhost:6379 --report run.md`,
		Args: cobra.NoArgs,
		RunE: runFetchCmd,
	}

	addFetchFlags(cmd)

	return cmd
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Configuration file (default: ./.pokeapi-ingest.yaml or XDG config dir)")
	cmd.Flags().IntP("limit", "n", config.DefaultLimit, "Number of listing entries to fetch")
	cmd.Flags().Int("offset", 0, "Listing offset")
	cmd.Flags().StringP("output", "o", config.DefaultOutput, "CSV output path")
	cmd.Flags().Int("preview", config.DefaultPreviewRows, "Number of rows to preview on stdout (0 disables)")
	cmd.Flags().String("base-url", config.DefaultBaseURL, "PokéAPI base URL")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().Duration("timeout", config.DefaultTimeout, "Per-request timeout")
	cmd.Flags().Duration("interval", config.DefaultInterval, "Minimum spacing between detail requests (0 disables)")
	cmd.Flags().String("redis-addr", "", "Redis address enabling the response cache (host:port)")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL, "Cache freshness when responses carry no cache headers")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	cmd.Flags().String("report", "", "Write a Markdown run report to this path")
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, cfgPath, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.Setup(logging.Config{
		Level:  level,
		Pretty: cfg.LogPretty,
		Output: cmd.ErrOrStderr(),
	})
	logger := logging.NewLogger("cli")
	if cfgPath != "" {
		logger.Debug().Str("config_file", cfgPath).Msg("Loaded configuration file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runFetch(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig layers flags that were set explicitly over the loaded config.
func buildConfig(cmd *cobra.Command) (*config.Config, string, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, "", err
	}

	cfg, path, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}

	overrides := []struct {
		name  string
		apply func(*pflag.FlagSet, string) error
	}{
		{"limit", intFlag(&cfg.Limit)},
		{"offset", intFlag(&cfg.Offset)},
		{"preview", intFlag(&cfg.PreviewRows)},
		{"output", stringFlag(&cfg.Output)},
		{"base-url", stringFlag(&cfg.BaseURL)},
		{"user-agent", stringFlag(&cfg.UserAgent)},
		{"redis-addr", stringFlag(&cfg.RedisAddr)},
		{"metrics-file", stringFlag(&cfg.MetricsFile)},
		{"report", stringFlag(&cfg.ReportFile)},
		{"log-level", stringFlag(&cfg.LogLevel)},
		{"timeout", durationFlag(&cfg.Timeout)},
		{"interval", durationFlag(&cfg.RequestInterval)},
		{"cache-ttl", durationFlag(&cfg.CacheTTL)},
		{"log-pretty", boolFlag(&cfg.LogPretty)},
	}

	for _, o := range overrides {
		if !flags.Changed(o.name) {
			continue
		}
		if err := o.apply(flags, o.name); err != nil {
			return nil, "", err
		}
	}

	return cfg, path, nil
}

func intFlag(dst *int) func(*pflag.FlagSet, string) error {
	return func(fs *pflag.FlagSet, name string) (err error) {
		*dst, err = fs.GetInt(name)
		return err
	}
}

func stringFlag(dst *string) func(*pflag.FlagSet, string) error {
	return func(fs *pflag.FlagSet, name string) (err error) {
		*dst, err = fs.GetString(name)
		return err
	}
}

func durationFlag(dst *time.Duration) func(*pflag.FlagSet, string) error {
	return func(fs *pflag.FlagSet, name string) (err error) {
		*dst, err = fs.GetDuration(name)
		return err
	}
}

func boolFlag(dst *bool) func(*pflag.FlagSet, string) error {
	return func(fs *pflag.FlagSet, name string) (err error) {
		*dst, err = fs.GetBool(name)
		return err
	}
}

// runFetch runs one ingestion and writes the console summary to out.
// No CSV is written when the listing fails or the run is cancelled.
func runFetch(ctx context.Context, cfg *config.Config, out io.Writer, logger zerolog.Logger) error {
	startedAt := time.Now()

	defer func() {
		if cfg.MetricsFile == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("Failed to write metrics file")
		}
	}()

	clientCfg := client.DefaultConfig(cfg.BaseURL, cfg.UserAgent)
	clientCfg.Timeout = cfg.Timeout
	clientCfg.CacheTTL = cfg.CacheTTL

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Redis unavailable, caching disabled")
		} else {
			clientCfg.Redis = redisClient
			logger.Debug().Str("redis_addr", cfg.RedisAddr).Msg("Response cache enabled")
		}
	}

	api, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer api.Close()

	listingURL, err := cfg.ListingURL()
	if err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter(cfg.RequestInterval, ratelimit.WithLogger(logger))
	coll := collector.New(api, listingURL, collector.WithLimiter(limiter))

	result, err := coll.Collect(ctx, pagination.Params{Limit: cfg.Limit, Offset: cfg.Offset})
	if err != nil {
		return err
	}

	summary := report.Summarize(result.Rows)

	if cfg.PreviewRows > 0 && len(result.Rows) > 0 {
		fmt.Fprintln(out, "Data Preview:")
		if err := report.WritePreview(out, result.Rows, cfg.PreviewRows); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		fmt.Fprintln(out)
	}
	if err := report.WriteSummary(out, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if err := report.Export(cfg.Output, result.Rows); err != nil {
		logger.Error().Err(err).Str("path", cfg.Output).Msg("Export failed")
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(out, "Saved %d rows to %s\n", len(result.Rows), cfg.Output)
	logger.Info().
		Str("path", cfg.Output).
		Int(logging.FieldRows, len(result.Rows)).
		Int(logging.FieldFailures, len(result.Failures)).
		Msg("Table written")

	if cfg.ReportFile != "" {
		run := report.Run{
			Source:    listingURL,
			Limit:     cfg.Limit,
			Offset:    cfg.Offset,
			Output:    cfg.Output,
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Rows:      result.Rows,
			Failures:  result.Failures,
		}
		if err := writeReport(cfg.ReportFile, run); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func writeReport(path string, run report.Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteMarkdown(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
