package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/herbievine/42-job-listener/internal/ai"
	"github.com/herbievine/42-job-listener/internal/ai/gemini"
	"github.com/herbievine/42-job-listener/internal/fortytwo"
	"github.com/herbievine/42-job-listener/internal/logger"
	"github.com/herbievine/42-job-listener/internal/pipeline"
	"github.com/herbievine/42-job-listener/internal/secrets"
	"github.com/herbievine/42-job-listener/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest offers from the 42 network and draft outreach emails for them",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("limit", "l", pipeline.DefaultLimit, "maximum number of offers to fetch from the source")
	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation before processing the backlog")
	runCmd.Flags().Bool("skip-ingest", false, "skip ingestion and only process the existing backlog")
	runCmd.Flags().String("schedule", "", "cron expression; keep running and fire the pipeline on this schedule")
}

// run is the pipeline command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the 42-job-listener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	st := mustOpenStore(ctx, config, logger)
	defer st.Close()

	source, err := newSource(config, logger)
	if err != nil {
		logger.Fatal("building the offer source client", zap.Error(err))
	}

	composer, err := newComposer(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal(
			"building the composer",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	p := pipeline.New(source, st, composer, logger, configValue(config.FrontendURL, "frontend-url"))

	schedule, _ := cmd.Flags().GetString("schedule")
	if schedule != "" {
		runOnSchedule(ctx, cmd, p, st, logger, schedule)
		return
	}

	if err := runOnce(ctx, cmd, p, st, logger, false); err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}
}

func runOnSchedule(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline, st store.Store, logger *zap.Logger, schedule string) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		if err := runOnce(ctx, cmd, p, st, logger, true); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("invalid cron schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	logger.Info("running on a schedule", zap.String("schedule", schedule))
	c.Start()

	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()

	logger.Info("exiting", zap.String("reason", "signal received"))
}

func runOnce(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline, st store.Store, logger *zap.Logger, nonInteractive bool) error {
	skipIngest, _ := cmd.Flags().GetBool("skip-ingest")
	if !skipIngest {
		limit, _ := cmd.Flags().GetInt("limit")
		if _, err := p.Ingest(ctx, limit); err != nil {
			return err
		}
	}

	backlog, err := st.Unprocessed(ctx)
	if err != nil {
		return err
	}

	if len(backlog) == 0 {
		logger.Info("nothing to process", zap.String("reason", "no unprocessed offers"))
		return nil
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-aprove")
	if !autoApprove && !nonInteractive {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Process %d offers?", len(backlog)),
			Items: []string{PromptYes, PromptNo},
		}

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return nil
		}
	}

	report, err := p.Process(ctx)
	if err != nil {
		return err
	}

	return report.Err()
}

func mustOpenStore(ctx context.Context, config *Config, logger *zap.Logger) *store.Postgres {
	databaseURL := configValue(config.DatabaseURL, "database-url")
	if databaseURL == "" {
		logger.Fatal(
			"database url is required",
			zap.String("hint", "set DATABASE_URL or the 'database-url' key in the configuration file"),
		)
	}

	st, err := store.NewPostgres(ctx, databaseURL)
	if err != nil {
		logger.Fatal("opening the offer store", zap.Error(err))
	}

	return st
}

func newSource(config *Config, logger *zap.Logger) (*fortytwo.Client, error) {
	source := config.Source
	if source == nil {
		source = &SourceConfig{}
	}

	clientID := configValue(source.ClientID, "source.client-id")
	if clientID == "" {
		return nil, fmt.Errorf("source client id is not configured (set FT_CLIENT_ID or source.client-id)")
	}

	clientSecret, err := secrets.Load(secrets.Source{
		Name: "42 client secret",
		File: configValue(source.ClientSecretFile, "source.client-secret-file"),
	})
	if err != nil {
		return nil, err
	}

	return fortytwo.New(logger, clientID, clientSecret), nil
}

func newComposer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Composer, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: configValue(geminiCfg.APIKeyFile, "ai.gemini.api-key-file"),
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model)
	if err != nil {
		return nil, err
	}

	composerLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
	)

	return gemini.NewComposer(generator, pipeline.Tags, composerLogger, geminiCfg.MaxLogLength), nil
}

// configValue falls back to the bound environment variable when the
// unmarshaled config struct left the field empty.
func configValue(value, key string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(viper.GetString(key))
}
