package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recuperafly/whatsapp-campaign-console/config"
)

var rootCmd = &cobra.Command{
	Use:   "whatsapp-campaign-console",
	Short: "Campaign console for the WhatsApp messaging backend",
	Long: `Campaign console for the WhatsApp messaging backend.

It imports recipient spreadsheets, walks campaign drafts through a wizard,
dispatches template sends one recipient at a time and mirrors the backend's
campaign and analytics views.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
		initLogger()
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Default to serving the REST API
		restCmd.Run(cmd, args)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("port", config.AppPort, "port the REST server listens on")
	pf.String("host", config.AppHost, "host the REST server binds to")
	pf.Bool("debug", config.AppDebug, "enable debug logging")
	pf.String("api-base-url", config.APIBaseURL, "base URL of the messaging backend API")
	pf.String("analytics-base-url", config.AnalyticsBaseURL, "base URL of the analytics API")
	pf.String("db-uri", config.DBURI, "sqlite URI for local session and history storage")
	pf.Int("min-delay", config.CampaignMinDelay, "default minimum seconds between sends")
	pf.Int("max-delay", config.CampaignMaxDelay, "default maximum seconds between sends")
	pf.Duration("analytics-refresh", config.AnalyticsRefreshInterval, "interval between background analytics refreshes")
	pf.StringSlice("origins", config.WhitelistedOrigins, "origins allowed by CORS, empty disables the middleware")

	viper.SetEnvPrefix("CONSOLE")
	viper.AutomaticEnv()
	if err := viper.BindPFlags(pf); err != nil {
		logrus.WithError(err).Fatal("Failed to bind flags")
	}
}

func initConfig() {
	config.AppPort = viper.GetString("port")
	config.AppHost = viper.GetString("host")
	config.AppDebug = viper.GetBool("debug")
	config.APIBaseURL = viper.GetString("api-base-url")
	config.AnalyticsBaseURL = viper.GetString("analytics-base-url")
	config.DBURI = viper.GetString("db-uri")
	config.CampaignMinDelay = viper.GetInt("min-delay")
	config.CampaignMaxDelay = viper.GetInt("max-delay")
	config.AnalyticsRefreshInterval = viper.GetDuration("analytics-refresh")
	config.WhitelistedOrigins = viper.GetStringSlice("origins")
}

func initLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if config.AppDebug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
