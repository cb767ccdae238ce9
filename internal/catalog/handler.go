package catalog

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

	r.GET("/books", h.List)
	r.GET("/books/genres", h.Genres)
	r.POST("/books", h.Add)
	r.POST("/books/refresh", h.Refresh)
	r.PUT("/books/:book_id", h.Update)
	r.GET("/books/:book_id/display", h.Display)
}

// ---------- handlers ----------

// List godoc
// @Summary  List books
// @Tags     books
// @Param    genre  query string false "genre, \"All Genres\" for none"
// @Param    search query string false "matches title, author or category"
// @Param    page   query int    false "page (1-based)"
// @Success  200 {object} map[string]any
// @Router   /books [get]
func (h *Handler) List(c *gin.Context) {
	q := ListQuery{Genre: c.Query("genre"), Search: c.Query("search")}
	res, err := h.svc.List(c.Request.Context(), q, paging.FromQuery(c, PageSize))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Genres(c *gin.Context) {
	genres, err := h.svc.Genres(c.Request.Context())
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, GenresResponse{Genres: append([]string{AllGenres}, genres...)})
}

// Add godoc
// @Summary  Add a book to the catalog
// @Tags     books
// @Accept   json
// @Param    payload body AddBookRequest true "book"
// @Success  201 {object} domain.Book
// @Failure  400 {object} map[string]any
// @Router   /books [post]
func (h *Handler) Add(c *gin.Context) {
	var req AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Add(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	if res.ID != 0 {
		c.Header("Location", "/books/"+strconv.FormatInt(res.ID, 10))
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	var req UpdateBookRequest
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

func (h *Handler) Display(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.Display(c.Request.Context(), id))
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context()); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- helpers ----------

func bookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "book_id must be a positive integer"))
		return 0, false
	}
	return id, true
}
