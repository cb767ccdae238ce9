package borrowing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/auth"
	"libdesk/internal/platform/paging"
)

type Handler struct{ ledger *Ledger }

func RegisterRoutes(r gin.IRoutes, ledger *Ledger) {
	h := &Handler{ledger: ledger}

	r.GET("/borrowings", h.List)
	r.GET("/borrowings/recent", h.Recent)
	r.GET("/borrowings/overdue", h.Overdue)
	r.POST("/borrowings/refresh", h.Refresh)
	r.GET("/borrowings/issue", h.Form)
	r.POST("/borrowings/issue", h.Issue)
	r.DELETE("/borrowings/issue", h.ResetForm)
	r.POST("/borrowings/:borrowing_id/return", h.Return)
}

// ---------- handlers ----------

// List godoc
// @Summary  List borrowings
// @Tags     borrowings
// @Param    search query string false "matches id, book name, author, member id or borrower name"
// @Param    page   query int    false "page (1-based)"
// @Success  200 {object} map[string]any
// @Router   /borrowings [get]
func (h *Handler) List(c *gin.Context) {
	res, err := h.ledger.List(c.Request.Context(), c.Query("search"), paging.FromQuery(c, PageSize))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Recent(c *gin.Context) {
	res, err := h.ledger.Recent(c.Request.Context(), paging.FromQuery(c, PageSize))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Overdue godoc
// @Summary  Overdue borrowings with fines
// @Tags     borrowings
// @Param    page query int false "page (1-based)"
// @Success  200 {object} map[string]any
// @Router   /borrowings/overdue [get]
func (h *Handler) Overdue(c *gin.Context) {
	res, err := h.ledger.Overdue(c.Request.Context(), paging.FromQuery(c, OverduePageSize))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.ledger.Refresh(c.Request.Context()); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Form(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.FormState(auth.SessionID(c)))
}

// Issue godoc
// @Summary  Issue a book to a member
// @Tags     borrowings
// @Accept   json
// @Param    payload body IssueRequest true "issue form"
// @Success  201 {object} IssueResult
// @Failure  400 {object} map[string]any
// @Failure  409 {object} map[string]any
// @Failure  502 {object} map[string]any
// @Router   /borrowings/issue [post]
func (h *Handler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.ledger.Submit(c.Request.Context(), auth.SessionID(c), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	if res.Borrowing.ID != 0 {
		// 作成した貸出の場所
		c.Header("Location", "/borrowings/"+strconv.FormatInt(res.Borrowing.ID, 10))
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ResetForm(c *gin.Context) {
	h.ledger.ResetForm(auth.SessionID(c))
	c.Status(http.StatusNoContent)
}

// Return godoc
// @Summary  Mark a borrowing returned today
// @Tags     borrowings
// @Param    borrowing_id path int true "borrowing id"
// @Success  200 {object} domain.Borrowing
// @Failure  404 {object} map[string]any
// @Failure  412 {object} map[string]any
// @Router   /borrowings/{borrowing_id}/return [post]
func (h *Handler) Return(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("borrowing_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "borrowing_id must be a positive integer"))
		return
	}
	res, err := h.ledger.ReturnByID(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
