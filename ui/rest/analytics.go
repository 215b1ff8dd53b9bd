package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	domainAnalytics "github.com/recuperafly/whatsapp-campaign-console/domains/analytics"
	"github.com/recuperafly/whatsapp-campaign-console/pkg/utils"
	"github.com/recuperafly/whatsapp-campaign-console/usecase"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Analytics handles analytics REST endpoints
type Analytics struct {
	Service domainAnalytics.IAnalyticsUsecase
}

// InitRestAnalytics registers all analytics routes
func InitRestAnalytics(app fiber.Router, service domainAnalytics.IAnalyticsUsecase) Analytics {
	rest := Analytics{Service: service}

	analytics := app.Group("/analytics")
	analytics.Get("/", rest.GetAnalytics)
	analytics.Get("/export", rest.ExportAnalytics)

	return rest
}

func (h *Analytics) GetAnalytics(c *fiber.Ctx) error {
	timeRange := c.Query("time_range", domainAnalytics.Range7d)

	summary, err := h.Service.Fetch(c.UserContext(), timeRange)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Analytics retrieved", Results: summary})
}

// ExportAnalytics downloads the current snapshot as an XLSX workbook,
// fetching a fresh one when nothing has been loaded yet
func (h *Analytics) ExportAnalytics(c *fiber.Ctx) error {
	summary, _, ok := h.Service.Snapshot()
	if !ok {
		timeRange := c.Query("time_range", domainAnalytics.Range7d)
		fetched, err := h.Service.Fetch(c.UserContext(), timeRange)
		if err != nil {
			return errorResponse(c, err)
		}
		summary = fetched
	}

	workbook, err := h.Service.Export(summary)
	if err != nil {
		return errorResponse(c, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+usecase.ExportFilename(time.Now())+`"`)
	return c.Send(workbook)
}
