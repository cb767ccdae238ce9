package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libdesk/internal/platform/apierr"
)

type Handler struct{ svc *Service }

// RegisterPublicRoutes mounts the routes reachable without a session.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/login", h.Login)
}

// RegisterRoutes mounts the routes that need RequireAuth in front.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}

// Login godoc
// @Summary  Sign in with library credentials
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    payload body LoginRequest true "credentials"
// @Success  200 {object} LoginResponse
// @Failure  401 {object} map[string]any
// @Router   /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "email and password are required"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Logout(c *gin.Context) {
	sess, ok := CurrentSession(c)
	if !ok {
		apierr.Abort(c, apierr.ErrUnauthorized("not signed in"))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), sess); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	sess, ok := CurrentSession(c)
	if !ok {
		apierr.Abort(c, apierr.ErrUnauthorized("not signed in"))
		return
	}
	c.JSON(http.StatusOK, sess)
}
