package rest

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
	"github.com/recuperafly/whatsapp-campaign-console/pkg/utils"
	"github.com/recuperafly/whatsapp-campaign-console/usecase"
)

// Campaign handles campaign REST endpoints
type Campaign struct {
	Service  domainCampaign.ICampaignUsecase
	Importer domainCampaign.IImporterUsecase
	Wizard   *usecase.DraftBuilder
	Sender   domainCampaign.ISendOrchestrator
	Session  domainCampaign.ISessionStore

	// SendCtx outlives individual requests so a running send survives the
	// request that started it
	SendCtx context.Context
}

// InitRestCampaign registers all campaign routes
func InitRestCampaign(
	app fiber.Router,
	service domainCampaign.ICampaignUsecase,
	importer domainCampaign.IImporterUsecase,
	wizard *usecase.DraftBuilder,
	sender domainCampaign.ISendOrchestrator,
	session domainCampaign.ISessionStore,
	sendCtx context.Context,
) Campaign {
	rest := Campaign{
		Service:  service,
		Importer: importer,
		Wizard:   wizard,
		Sender:   sender,
		Session:  session,
		SendCtx:  sendCtx,
	}

	campaign := app.Group("/campaign")

	// Campaigns
	campaign.Get("/campaigns", rest.ListCampaigns)
	campaign.Delete("/campaigns/:id", rest.DeleteCampaign)

	// Collaborators
	campaign.Get("/instances", rest.ListInstances)
	campaign.Get("/templates", rest.ListTemplates)
	campaign.Get("/history", rest.ListHistory)

	// Draft wizard
	campaign.Get("/draft", rest.GetDraft)
	campaign.Put("/draft", rest.UpdateDraft)
	campaign.Post("/draft/next", rest.NextStep)
	campaign.Post("/draft/back", rest.BackStep)
	campaign.Post("/draft/recipients", rest.AddRecipient)
	campaign.Put("/draft/recipients/:index", rest.UpdateRecipient)
	campaign.Delete("/draft/recipients/:index", rest.RemoveRecipient)
	campaign.Delete("/draft/recipients", rest.DeleteAllRecipients)
	campaign.Post("/draft/recipients/dedupe", rest.RemoveDuplicates)
	campaign.Post("/draft/import/parse", rest.ParseUpload)
	campaign.Post("/draft/import", rest.ImportRecipients)

	// Send lifecycle
	campaign.Post("/send", rest.StartSend)
	campaign.Get("/send/progress", rest.SendProgress)
	campaign.Post("/send/cancel", rest.CancelSend)

	// Session
	campaign.Post("/session", rest.SetSessionToken)
	campaign.Delete("/session", rest.ClearSession)

	return rest
}

// errorResponse maps the error taxonomy onto HTTP envelopes. Unauthorized
// keeps its dedicated code so clients can trigger a re-login.
func errorResponse(c *fiber.Ctx, err error) error {
	var validationErr *domainCampaign.ValidationError
	var parseErr *domainCampaign.ParseError
	var readErr *domainCampaign.ReadError
	var dispatchErr *domainCampaign.DispatchError
	var networkErr *domainCampaign.NetworkError

	switch {
	case errors.Is(err, domainCampaign.ErrSessionExpired):
		return c.Status(401).JSON(utils.ResponseData{Status: 401, Code: "SESSION_EXPIRED", Message: err.Error()})
	case errors.Is(err, domainCampaign.ErrSendInProgress):
		return c.Status(409).JSON(utils.ResponseData{Status: 409, Code: "SEND_IN_PROGRESS", Message: err.Error()})
	case errors.Is(err, domainCampaign.ErrEmptyFile),
		errors.Is(err, domainCampaign.ErrUnsupportedFile),
		errors.As(err, &validationErr),
		errors.As(err, &parseErr),
		errors.As(err, &readErr):
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: err.Error()})
	case errors.As(err, &dispatchErr), errors.As(err, &networkErr):
		return c.Status(502).JSON(utils.ResponseData{Status: 502, Code: "UPSTREAM_ERROR", Message: err.Error()})
	}
	return c.Status(500).JSON(utils.ResponseData{Status: 500, Code: "ERROR", Message: err.Error()})
}

// ============================================================================
// Campaign Endpoints
// ============================================================================

func (h *Campaign) ListCampaigns(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	result, err := h.Service.ListCampaigns(c.UserContext(), page, pageSize)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Campaigns retrieved", Results: result})
}

func (h *Campaign) DeleteCampaign(c *fiber.Ctx) error {
	message, err := h.Service.DeleteCampaign(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if message == "" {
		message = "Campaign deleted"
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: message})
}

// ============================================================================
// Collaborator Endpoints
// ============================================================================

func (h *Campaign) ListInstances(c *fiber.Ctx) error {
	var (
		instances []*domainCampaign.Instance
		err       error
	)
	if c.QueryBool("connected", false) {
		instances, err = h.Service.ListConnectedInstances(c.UserContext())
	} else {
		instances, err = h.Service.ListInstances(c.UserContext())
	}
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Instances retrieved", Results: instances})
}

func (h *Campaign) ListTemplates(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "5"))
	search := c.Query("search", "")

	result, err := h.Service.ListTemplates(c.UserContext(), page, pageSize, search)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Templates retrieved", Results: result})
}

func (h *Campaign) ListHistory(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	operations, total, err := h.Service.ListHistory(c.UserContext(), page, pageSize)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History retrieved",
		Results: fiber.Map{"operations": operations, "total": total, "page": page, "page_size": pageSize},
	})
}

// ============================================================================
// Draft Wizard Endpoints
// ============================================================================

func (h *Campaign) draftResult() fiber.Map {
	return fiber.Map{"step": h.Wizard.Step(), "draft": h.Wizard.Draft()}
}

func (h *Campaign) GetDraft(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Draft retrieved", Results: h.draftResult()})
}

func (h *Campaign) UpdateDraft(c *fiber.Ctx) error {
	var req struct {
		Name        *string                    `json:"name"`
		TemplateID  *string                    `json:"templateId"`
		InstanceIDs *[]string                  `json:"instanceIds"`
		DelayRange  *domainCampaign.DelayRange `json:"delayRange"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Invalid request body"})
	}

	if req.Name != nil {
		h.Wizard.SetName(*req.Name)
	}
	if req.TemplateID != nil {
		h.Wizard.SetTemplate(*req.TemplateID)
	}
	if req.InstanceIDs != nil {
		h.Wizard.SetInstances(*req.InstanceIDs)
	}
	if req.DelayRange != nil {
		if err := h.Wizard.SetDelayRange(*req.DelayRange); err != nil {
			return errorResponse(c, err)
		}
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Draft updated", Results: h.draftResult()})
}

func (h *Campaign) NextStep(c *fiber.Ctx) error {
	step, err := h.Wizard.Next()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Step advanced", Results: fiber.Map{"step": step}})
}

func (h *Campaign) BackStep(c *fiber.Ctx) error {
	step := h.Wizard.Back()
	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Step moved back", Results: fiber.Map{"step": step}})
}

func (h *Campaign) AddRecipient(c *fiber.Ctx) error {
	h.Wizard.AddRecipient()
	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Recipient added", Results: h.draftResult()})
}

func (h *Campaign) UpdateRecipient(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Invalid recipient index"})
	}

	var recipient domainCampaign.Recipient
	if err := c.BodyParser(&recipient); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Invalid request body"})
	}

	if err := h.Wizard.UpdateRecipient(index, recipient); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Recipient updated", Results: h.draftResult()})
}

func (h *Campaign) RemoveRecipient(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Invalid recipient index"})
	}

	if err := h.Wizard.RemoveRecipient(index); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Recipient removed", Results: h.draftResult()})
}

func (h *Campaign) DeleteAllRecipients(c *fiber.Ctx) error {
	h.Wizard.DeleteAllRecipients()
	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "All recipients deleted", Results: h.draftResult()})
}

func (h *Campaign) RemoveDuplicates(c *fiber.Ctx) error {
	removed := h.Wizard.RemoveDuplicates()

	message := "No duplicates found"
	if removed > 0 {
		message = "Duplicates removed"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: fiber.Map{"removed": removed, "draft": h.Wizard.Draft()},
	})
}

func (h *Campaign) ParseUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Recipient file is required"})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Failed to open file"})
	}
	defer f.Close()

	table, err := h.Importer.Parse(file.Filename, f)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "File parsed", Results: table})
}

func (h *Campaign) ImportRecipients(c *fiber.Ctx) error {
	var req domainCampaign.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Invalid request body"})
	}
	if req.Table == nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Parsed table is required"})
	}

	imported, err := h.Importer.MapColumns(req.Table, req.Mapping)
	if err != nil {
		return errorResponse(c, err)
	}

	total := h.Wizard.AppendImported(imported)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Recipients imported",
		Results: fiber.Map{"imported": len(imported), "total": total},
	})
}

// ============================================================================
// Send Endpoints
// ============================================================================

func (h *Campaign) StartSend(c *fiber.Ctx) error {
	draft, err := h.Wizard.Finalize()
	if err != nil {
		return errorResponse(c, err)
	}

	operationID, err := h.Sender.Start(h.SendCtx, draft)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Send started",
		Results: fiber.Map{"operation_id": operationID},
	})
}

func (h *Campaign) SendProgress(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Progress retrieved",
		Results: h.Sender.Progress(),
	})
}

func (h *Campaign) CancelSend(c *fiber.Ctx) error {
	h.Sender.Cancel()
	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Cancellation requested"})
}

// ============================================================================
// Session Endpoints
// ============================================================================

func (h *Campaign) SetSessionToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Invalid request body"})
	}
	if req.Token == "" {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "ERROR", Message: "Token is required"})
	}

	if err := h.Session.SetToken(c.UserContext(), req.Token); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Session token stored"})
}

func (h *Campaign) ClearSession(c *fiber.Ctx) error {
	if err := h.Session.Clear(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Session cleared"})
}
