package handler

import (
	"content-storefront/internal/dto"
	"content-storefront/internal/middleware"
	"content-storefront/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &dto.CheckoutResponse{Message: "invalid request body"})
	}

	userID := middleware.UserID(c)
	if req.UserID != "" && req.UserID != userID {
		return c.JSON(http.StatusForbidden, &dto.CheckoutResponse{Message: "userId does not match the signed-in user"})
	}

	payerEmail := req.PayerEmail
	if payerEmail == "" {
		payerEmail = middleware.Email(c)
	}

	pix, err := h.checkoutService.CreateCheckout(ctx, service.CheckoutInput{
		UserID:     userID,
		ProductID:  req.ProductID,
		PayerEmail: payerEmail,
	})
	if err != nil {
		status := statusFor(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			h.logger.Error("create checkout", zap.String("user_id", userID), zap.String("product_id", req.ProductID), zap.Error(err))
			message = "could not create the payment, please try again"
		}
		return c.JSON(status, &dto.CheckoutResponse{Message: message})
	}

	resp := &dto.CheckoutResponse{
		OK:           true,
		PaymentID:    pix.PaymentID,
		PixCopiaCola: pix.PixCopiaCola,
		TicketURL:    pix.TicketURL,
		AmountCents:  pix.AmountCents,
		ProductName:  pix.ProductName,
		ModelName:    pix.ModelName,
	}
	if pix.QRCodeBase64 != "" {
		resp.QRCodeURL = "data:image/png;base64," + pix.QRCodeBase64
	}

	return c.JSON(http.StatusOK, resp)
}
