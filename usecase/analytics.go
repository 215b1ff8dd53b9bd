package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	domainAnalytics "github.com/recuperafly/whatsapp-campaign-console/domains/analytics"
	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// AnalyticsService implements IAnalyticsUsecase. It keeps the last fetched
// snapshot so the dashboard and the export endpoint share one source.
type AnalyticsService struct {
	gateway         domainAnalytics.IAnalyticsGateway
	refreshInterval time.Duration

	mu            sync.RWMutex
	snapshot      *domainAnalytics.Summary
	snapshotRange string

	workerMu     sync.Mutex
	workerCtx    context.Context
	workerCancel context.CancelFunc
	workerWg     sync.WaitGroup
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(gateway domainAnalytics.IAnalyticsGateway, refreshInterval time.Duration) *AnalyticsService {
	return &AnalyticsService{
		gateway:         gateway,
		refreshInterval: refreshInterval,
	}
}

// Fetch retrieves the analytics summary for the given time range and caches
// it as the current snapshot
func (s *AnalyticsService) Fetch(ctx context.Context, timeRange string) (*domainAnalytics.Summary, error) {
	if !domainAnalytics.ValidRange(timeRange) {
		return nil, &domainCampaign.ValidationError{Field: "timeRange", Reason: "time range must be 24h, 7d or 30d"}
	}

	summary, err := s.gateway.Analytics(ctx, timeRange)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = summary
	s.snapshotRange = timeRange
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"time_range":     timeRange,
		"total_messages": humanize.Comma(int64(summary.TotalMessages)),
	}).Info("Analytics: Summary fetched")

	return summary, nil
}

// Snapshot returns the last fetched summary along with its time range
func (s *AnalyticsService) Snapshot() (*domainAnalytics.Summary, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.snapshotRange, s.snapshot != nil
}

// Export renders the summary as a single-sheet XLSX workbook: the headline
// metrics, then the top templates, then the message type breakdown
func (s *AnalyticsService) Export(summary *domainAnalytics.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Analytics"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total Messages", summary.TotalMessages},
		{"Success Rate (%)", summary.SuccessRate},
		{"Message Growth (%)", summary.MessageGrowth},
		{"Total Instances", summary.TotalInstances},
		{"Connected Instances", summary.ConnectedInstances},
		{"Disconnected Instances", summary.DisconnectedInstances},
		{"Total Templates", summary.TotalTemplates},
		{},
		{"Top Templates"},
		{"Name", "Messages Sent", "Success Rate (%)"},
	}
	for _, tpl := range summary.TopTemplates {
		rows = append(rows, []interface{}{tpl.Name, tpl.MessagesSent, tpl.SuccessRate})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Message Types"},
		[]interface{}{"Text", summary.ChatStats.MessageTypes.Text},
		[]interface{}{"Media", summary.ChatStats.MessageTypes.Media},
		[]interface{}{"Documents", summary.ChatStats.MessageTypes.Documents},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names the workbook after the export date
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("analytics_%s.xlsx", now.Format("2006-01-02"))
}

// StartRefresher launches a background loop that refreshes the snapshot on a
// fixed interval, keeping the dashboard warm between page loads
func (s *AnalyticsService) StartRefresher(ctx context.Context) {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	if s.workerCancel != nil {
		logrus.Info("Analytics: Refresher already running")
		return
	}

	s.workerCtx, s.workerCancel = context.WithCancel(ctx)
	s.workerWg.Add(1)

	go func() {
		defer s.workerWg.Done()

		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		logrus.WithFields(logrus.Fields{
			"interval": s.refreshInterval,
		}).Info("Analytics: Refresher started")

		for {
			select {
			case <-s.workerCtx.Done():
				logrus.Info("Analytics: Refresher stopped")
				return
			case <-ticker.C:
				timeRange := domainAnalytics.Range7d
				s.mu.RLock()
				if s.snapshotRange != "" {
					timeRange = s.snapshotRange
				}
				s.mu.RUnlock()

				if _, err := s.Fetch(s.workerCtx, timeRange); err != nil {
					logrus.WithError(err).Warn("Analytics: Background refresh failed")
				}
			}
		}
	}()
}

// StopRefresher stops the background refresh loop and waits for it to exit
func (s *AnalyticsService) StopRefresher() {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	if s.workerCancel == nil {
		return
	}
	s.workerCancel()
	s.workerWg.Wait()
	s.workerCancel = nil
}
