package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voucher-service/internal/api/dto"
	"github.com/spec-kit/voucher-service/internal/observability"
	"github.com/spec-kit/voucher-service/internal/qr"
	"github.com/spec-kit/voucher-service/internal/service"
	"github.com/spec-kit/voucher-service/pkg/util"
)

// TicketsHandler manages voucher endpoints.
type TicketsHandler struct {
	service *service.TicketService
	encoder *qr.Encoder
	metrics *observability.Metrics
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, encoder *qr.Encoder, metrics *observability.Metrics) *TicketsHandler {
	return &TicketsHandler{service: ticketService, encoder: encoder, metrics: metrics}
}

// IssueTicket POST /api/tickets.
func (h *TicketsHandler) IssueTicket(c *fiber.Ctx) error {
	var req dto.IssueTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewInvalidRequest("invalid payload", nil)
	}
	if req.Items == nil {
		return util.NewInvalidRequest("items must be an array", nil)
	}

	ticket, payload, err := h.service.Issue(c.UserContext(), service.IssueInput{
		EmployeeID:  req.EmployeeID,
		Items:       req.Items,
		ExpiresDays: req.ExpiresDays,
	})
	if err != nil {
		return err
	}
	h.metrics.RecordIssued()
	return c.JSON(dto.FromTicket(ticket, payload))
}

// Redeem POST /api/redeem.
func (h *TicketsHandler) Redeem(c *fiber.Ctx) error {
	var req dto.RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewInvalidRequest("invalid payload", nil)
	}
	if req.Code == "" {
		return util.NewInvalidRequest("code required", nil)
	}

	result, err := h.service.Redeem(c.UserContext(), req.Code)
	if err != nil {
		return err
	}
	h.metrics.RecordRedeemed()
	return c.JSON(dto.RedeemResponse{
		OK:          true,
		TicketID:    result.TicketID,
		TotalAmount: result.TotalAmount,
		Message:     "Redeemed successfully",
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket, ""))
}

// QRCode GET /api/qr/:id.png serves the stored signed payload as a PNG.
// Read-only: the payload is reconstructed from stored fields, never re-signed.
func (h *TicketsHandler) QRCode(c *fiber.Ctx) error {
	payload, err := h.service.SignedPayload(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	png, err := h.encoder.PNG(payload)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
