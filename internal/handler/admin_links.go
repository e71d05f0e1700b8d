package handler

import (
	"content-storefront/internal/dto"
	"content-storefront/internal/middleware"
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"content-storefront/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type AdminLinkHandler struct {
	grantService service.GrantService
}

func NewAdminLinkHandler(grantService service.GrantService) *AdminLinkHandler {
	return &AdminLinkHandler{
		grantService: grantService,
	}
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

func (h *AdminLinkHandler) CreateLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	issued, err := h.grantService.IssueLink(ctx, service.IssueLinkInput{
		Scope:     model.Scope(req.Scope),
		LinkType:  model.LinkType(req.LinkType),
		ModelID:   req.ModelID,
		ProductID: req.ProductID,
		Label:     req.Label,
		ExpiresAt: req.ExpiresAt,
		MaxUses:   req.MaxUses,
		CreatedBy: middleware.UserID(c),
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, &dto.CreateLinkResponse{
		Link:  dto.NewLink(issued.Link),
		Token: issued.Token,
		URL:   issued.URL,
	})
}

func (h *AdminLinkHandler) ListLinks(c echo.Context) error {
	ctx := c.Request().Context()

	links, err := h.grantService.ListLinks(ctx, repository.LinkFilter{
		ActiveOnly: c.QueryParam("active") == "true",
		ModelID:    c.QueryParam("model_id"),
		Limit:      queryInt(c, "limit"),
	})
	if err != nil {
		return httpError(err)
	}

	resp := make([]*dto.Link, 0, len(links))
	for _, l := range links {
		resp = append(resp, dto.NewLink(l))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AdminLinkHandler) DisableLink(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.grantService.DisableLink(ctx, c.Param("id")); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "disabled",
	})
}

func (h *AdminLinkHandler) ListVisits(c echo.Context) error {
	ctx := c.Request().Context()

	visits, err := h.grantService.ListVisits(ctx, c.Param("id"), queryInt(c, "limit"))
	if err != nil {
		return httpError(err)
	}

	resp := make([]*dto.Visit, 0, len(visits))
	for _, v := range visits {
		resp = append(resp, dto.NewVisit(v))
	}

	return c.JSON(http.StatusOK, resp)
}
