package handler

import (
	"content-storefront/internal/dto"
	"content-storefront/internal/middleware"
	"content-storefront/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetPurchases(c echo.Context) error {
	ctx := c.Request().Context()

	purchases, err := h.userService.GetPurchases(ctx, middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}

	resp := make([]*dto.Purchase, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, dto.NewPurchase(p))
	}

	return c.JSON(http.StatusOK, resp)
}
