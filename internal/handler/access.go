package handler

import (
	"content-storefront/internal/dto"
	"content-storefront/internal/middleware"
	"content-storefront/internal/model"
	"content-storefront/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// sessionRequiredMessage tells a client that sent user_id without a session
// why it was refused.
const sessionRequiredMessage = "A user_id was sent without a signed-in session. Please sign in and retry with the same link."

type AccessHandler struct {
	grantService service.GrantService
	userService  service.UserService
	logger       *zap.Logger
}

func NewAccessHandler(grantService service.GrantService, userService service.UserService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		grantService: grantService,
		userService:  userService,
		logger:       logger,
	}
}

// Consume redeems an access link. The response is always 200; failures are
// reported in the body.
func (h *AccessHandler) Consume(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ConsumeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, dto.ConsumeFailure(model.CodeInvalidLink))
	}

	// grant attribution only trusts the authenticated subject
	userID := middleware.UserID(c)
	if req.UserID != "" && req.UserID != userID {
		h.logger.Warn("consume user_id does not match session", zap.String("claimed_user_id", req.UserID), zap.String("session_user_id", userID))
	}
	email := req.VisitorEmail
	if email == "" {
		email = middleware.Email(c)
	}

	grant, err := h.grantService.Consume(ctx, service.ConsumeInput{
		Token: req.Token,
		Requester: service.Requester{
			Name:   req.VisitorName,
			Email:  email,
			UserID: userID,
		},
		Meta: service.VisitMeta{
			UserAgent: c.Request().UserAgent(),
			IP:        c.RealIP(),
		},
	})
	if err != nil {
		resp := dto.ConsumeFailure(model.FailureCodeOf(err))
		if resp.Code == model.CodeLoginRequired && req.UserID != "" && userID == "" {
			resp.Message = sessionRequiredMessage
		}
		return c.JSON(http.StatusOK, resp)
	}

	return c.JSON(http.StatusOK, &dto.ConsumeResponse{
		OK:    true,
		Grant: grant,
	})
}

func (h *AccessHandler) Evaluate(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.ModelID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "model_id is required")
	}

	items, err := h.userService.EvaluateModel(ctx, middleware.UserID(c), req.ModelID, req.Grant)
	if err != nil {
		return httpError(err)
	}

	resp := &dto.EvaluateResponse{
		ModelID: req.ModelID,
		Items:   make([]*dto.MediaVerdict, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, &dto.MediaVerdict{
			MediaID: item.MediaID,
			Title:   item.Title,
			Verdict: string(item.Verdict),
		})
	}

	return c.JSON(http.StatusOK, resp)
}
