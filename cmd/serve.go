package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/herbievine/42-job-listener/internal/logger"
	"github.com/herbievine/42-job-listener/internal/mailer"
	"github.com/herbievine/42-job-listener/internal/mailer/resend"
	"github.com/herbievine/42-job-listener/internal/review"
	"github.com/herbievine/42-job-listener/internal/secrets"
	"github.com/herbievine/42-job-listener/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review ui for drafted emails",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8080", "address for the review ui to listen on")
}

func serve(cmd *cobra.Command) {
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

	if config == nil {
		logger.Fatal("config is required")
	}

	st := mustOpenStore(ctx, config, logger)
	defer st.Close()

	sender, identity, err := newSender(config, logger)
	if err != nil {
		logger.Fatal(
			"building the email sender",
			zap.Error(err),
			zap.String("hint", "set RESEND_API_KEY_FILE or the 'email.resend.api-key-file' key in the configuration file"),
		)
	}

	reviews := review.NewService(st, sender, identity, logger)

	listen, _ := cmd.Flags().GetString("listen")
	if err := server.New(reviews, logger).ListenAndServe(ctx, listen); err != nil {
		logger.Fatal("review ui failed", zap.Error(err))
	}
}

func newSender(config *Config, logger *zap.Logger) (mailer.Sender, review.Identity, error) {
	email := config.Email
	if email == nil {
		email = &EmailConfig{}
	}

	identity := review.Identity{
		From: email.From,
		BCC:  email.BCC,
	}
	if email.Attachment != nil {
		identity.Attachment = mailer.Attachment{
			Path:     email.Attachment.URL,
			Filename: email.Attachment.Filename,
		}
	}

	resendCfg := email.Resend
	if resendCfg == nil {
		resendCfg = &ResendConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "resend api key",
		File: configValue(resendCfg.APIKeyFile, "email.resend.api-key-file"),
	})
	if err != nil {
		return nil, identity, err
	}

	return resend.New(logger, apiKey), identity, nil
}
