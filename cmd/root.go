package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "42-job-listener"
)

type Config struct {
	DatabaseURL string        `mapstructure:"database-url"`
	FrontendURL string        `mapstructure:"frontend-url"`
	Source      *SourceConfig `mapstructure:"source"`
	AI          *AIConfig     `mapstructure:"ai"`
	Email       *EmailConfig  `mapstructure:"email"`
}

type SourceConfig struct {
	ClientID         string `mapstructure:"client-id"`
	ClientSecretFile string `mapstructure:"client-secret-file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type EmailConfig struct {
	From       string            `mapstructure:"from"`
	BCC        string            `mapstructure:"bcc"`
	Attachment *AttachmentConfig `mapstructure:"attachment"`
	Resend     *ResendConfig     `mapstructure:"resend"`
}

type AttachmentConfig struct {
	URL      string `mapstructure:"url"`
	Filename string `mapstructure:"filename"`
}

type ResendConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "42-job-listener ingests job offers from the 42 network, drafts outreach emails with a generative model and serves a review ui",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBinds := map[string]string{
		"database-url":              "DATABASE_URL",
		"frontend-url":              "FRONTEND_URL",
		"source.client-id":          "FT_CLIENT_ID",
		"source.client-secret-file": "FT_CLIENT_SECRET_FILE",
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
		"email.resend.api-key-file": "RESEND_API_KEY_FILE",
	}
	for key, env := range envBinds {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is 42-job-listener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the run and serve commands. If there is no
	// config, we can skip initialization.
	if runCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	// The original deployment relied on the runtime loading .env implicitly.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
