package handler

import (
	"content-storefront/internal/service"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *zap.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// MercadoPago always acknowledges. Whatever went wrong is in the logs and
// the webhook audit trail.
func (h *WebhookHandler) MercadoPago(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("read webhook body", zap.Error(err))
	}

	n := service.ParseNotification(body, c.QueryParams())
	result := h.webhookService.Reconcile(ctx, n)

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "received",
		"outcome": result.Outcome,
	})
}
