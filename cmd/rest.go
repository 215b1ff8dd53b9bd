package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/recuperafly/whatsapp-campaign-console/config"
	domainAnalytics "github.com/recuperafly/whatsapp-campaign-console/domains/analytics"
	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
	"github.com/recuperafly/whatsapp-campaign-console/infrastructure/database"
	"github.com/recuperafly/whatsapp-campaign-console/infrastructure/gateway"
	"github.com/recuperafly/whatsapp-campaign-console/infrastructure/history"
	"github.com/recuperafly/whatsapp-campaign-console/infrastructure/session"
	"github.com/recuperafly/whatsapp-campaign-console/pkg/utils"
	"github.com/recuperafly/whatsapp-campaign-console/ui/rest"
	"github.com/recuperafly/whatsapp-campaign-console/usecase"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the campaign console REST API",
	Run:   runRest,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func runRest(_ *cobra.Command, _ []string) {
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(config.DBURI)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open local database")
	}
	defer db.Close()

	sessionStore := session.NewStore(db, config.SessionRetryDelay)
	if err := sessionStore.InitializeSchema(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize session schema")
	}

	historyRepo := history.NewRepository(db)
	if err := historyRepo.InitializeSchema(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize history schema")
	}

	client := gateway.NewClient(config.APIBaseURL, config.AnalyticsBaseURL, config.GatewayTimeout, sessionStore)

	importer := usecase.NewImporterService()
	wizard := usecase.NewDraftBuilder(importer)
	orchestrator := usecase.NewSendOrchestrator(client, sessionStore, historyRepo, 0)
	orchestrator.OnCompleted(wizard.Reset)
	campaignService := usecase.NewCampaignService(client, historyRepo)
	analyticsService := usecase.NewAnalyticsService(client, config.AnalyticsRefreshInterval)

	app := fiber.New(fiber.Config{
		AppName:               "WhatsApp Campaign Console " + config.AppVersion,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(fiberLogger.New())
	if len(config.WhitelistedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(config.WhitelistedOrigins, ","),
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "OK"})
	})

	rest.InitRestCampaign(app, campaignService, importer, wizard, orchestrator, sessionStore, appCtx)
	rest.InitRestAnalytics(app, analyticsService)

	analyticsService.StartRefresher(appCtx)

	go func() {
		addr := config.AppHost + ":" + config.AppPort
		logrus.WithFields(logrus.Fields{
			"address": addr,
			"version": config.AppVersion,
		}).Info("REST: Server starting")
		if err := app.Listen(addr); err != nil {
			logrus.WithError(err).Fatal("REST: Server stopped unexpectedly")
		}
	}()

	<-appCtx.Done()
	logrus.Info("REST: Shutting down")

	orchestrator.Cancel()
	orchestrator.Wait()
	analyticsService.StopRefresher()
	if err := app.Shutdown(); err != nil {
		logrus.WithError(err).Error("REST: Shutdown failed")
	}
}

// keep the interface assertions close to the wiring
var (
	_ domainCampaign.IImporterUsecase   = (*usecase.ImporterService)(nil)
	_ domainCampaign.ICampaignUsecase   = (*usecase.CampaignService)(nil)
	_ domainCampaign.ISendOrchestrator  = (*usecase.SendOrchestrator)(nil)
	_ domainAnalytics.IAnalyticsUsecase = (*usecase.AnalyticsService)(nil)
	_ domainCampaign.ISessionStore      = (*session.Store)(nil)
	_ domainCampaign.IHistoryRepository = (*history.Repository)(nil)
	_ domainCampaign.IMessageGateway    = (*gateway.Client)(nil)
	_ domainAnalytics.IAnalyticsGateway = (*gateway.Client)(nil)
)
