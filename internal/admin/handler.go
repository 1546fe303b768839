package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rulesync/internal/logger"
	"rulesync/internal/rules"
	"rulesync/internal/subscription"
	"rulesync/pkg/errors"
)

// Handler exposes the subscription's rule state over HTTP: the desired set,
// the deployed set, an on-demand reconciliation trigger, and rule-name
// decoding for operators inspecting broker state.
type Handler struct {
	service *subscription.Service
	logger  logger.Logger
}

func NewHandler(service *subscription.Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		ruleRoutes := v1.Group("/rules")
		{
			ruleRoutes.GET("/desired", h.GetDesiredRules)
			ruleRoutes.GET("/deployed", h.GetDeployedRules)
			ruleRoutes.GET("/:name/version", h.GetRuleVersion)
		}

		v1.POST("/reconcile", h.TriggerReconcile)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

func (h *Handler) GetDesiredRules(c *gin.Context) {
	desired, err := h.service.DesiredRules()
	if err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, desired)
}

func (h *Handler) GetDeployedRules(c *gin.Context) {
	deployed, err := h.service.DeployedRules(c.Request.Context())
	if err != nil {
		h.handleError(c, errors.ErrServiceUnavailable.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, deployed)
}

type ruleVersionResponse struct {
	Name       string `json:"name"`
	Format     string `json:"format"`
	Version    string `json:"version,omitempty"`
	HasVersion bool   `json:"has_version"`
	Index      int    `json:"index,omitempty"`
}

func (h *Handler) GetRuleVersion(c *gin.Context) {
	name := c.Param("name")

	parsed, err := rules.DecodeRuleName(name)
	if err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	resp := ruleVersionResponse{
		Name:       parsed.Raw,
		Format:     parsed.Format.String(),
		HasVersion: parsed.HasVersion,
		Index:      parsed.Index,
	}
	if parsed.HasVersion {
		resp.Version = parsed.Version.String()
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) TriggerReconcile(c *gin.Context) {
	result, err := h.service.RunReconciliation(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
