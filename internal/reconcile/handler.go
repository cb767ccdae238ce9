package reconcile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/auth"
	"libdesk/internal/platform/paging"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/reconciliations", h.List)
	r.POST("/reconciliations/:id/resolve", h.Resolve)
}

// ---------- handlers ----------

// List godoc
// @Summary  List issue failures journaled for reconciliation
// @Tags     reconciliations
// @Param    status query string false "compensated | unresolved | resolved"
// @Param    page   query int    false "page (1-based)"
// @Success  200 {object} paging.Result[EntryResponse]
// @Router   /reconciliations [get]
func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("status"), paging.FromQuery(c, 20))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	// body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	res, err := h.svc.Resolve(c.Request.Context(), c.Param("id"), auth.UserID(c), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
