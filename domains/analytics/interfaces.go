package analytics

import "context"

// IAnalyticsGateway fetches the analytics snapshot from the remote backend
type IAnalyticsGateway interface {
	Analytics(ctx context.Context, timeRange string) (*Summary, error)
}

// IAnalyticsUsecase serves the dashboard overview
type IAnalyticsUsecase interface {
	Fetch(ctx context.Context, timeRange string) (*Summary, error)
	// Snapshot returns the last successfully fetched summary, if any
	Snapshot() (*Summary, string, bool)
	// Export renders the summary grid as an XLSX workbook
	Export(summary *Summary) ([]byte, error)
	StartRefresher(ctx context.Context)
	StopRefresher()
}
