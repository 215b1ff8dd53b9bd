package config

import "time"

// Application settings. Populated from flags/env by cmd before anything runs.
var (
	AppVersion = "v1.4.2"
	AppPort    = "3000"
	AppHost    = "localhost"
	AppDebug   = false

	// Remote messaging backend that owns templates, dispatch and analytics.
	APIBaseURL        = "https://whatsapp.recuperafly.com/api"
	AnalyticsBaseURL  = "https://whatsapp.recuperafly.com/api"
	GatewayTimeout    = 30 * time.Second
	SessionRetryDelay = 500 * time.Millisecond

	// Local sqlite file holding the session token and send history.
	DBURI = "file:storages/console.db?_foreign_keys=on"

	// Default pacing between consecutive dispatches, in seconds.
	CampaignMinDelay = 3
	CampaignMaxDelay = 5

	// How often the analytics snapshot is refetched.
	AnalyticsRefreshInterval = 5 * time.Minute

	WhitelistedOrigins []string
)
