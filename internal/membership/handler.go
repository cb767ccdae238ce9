package membership

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/paging"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/members", h.List)
	r.POST("/members", h.Add)
	r.POST("/members/refresh", h.Refresh)
	r.PUT("/members/:member_id", h.Update)
	r.DELETE("/members/:member_id", h.Delete)
	r.GET("/members/:member_id/display", h.Display)
}

// ---------- handlers ----------

func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("search"), paging.FromQuery(c, PageSize))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Add godoc
// @Summary  Register a member with a generated initial password
// @Tags     members
// @Accept   json
// @Param    payload body AddMemberRequest true "member"
// @Success  201 {object} AddMemberResponse
// @Failure  400 {object} map[string]any
// @Router   /members [post]
func (h *Handler) Add(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Add(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context()); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Display(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.Display(c.Request.Context(), id))
}

// ---------- helpers ----------

func memberID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("member_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "member_id must be a positive integer"))
		return 0, false
	}
	return id, true
}
