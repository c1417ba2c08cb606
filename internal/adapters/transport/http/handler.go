package http

import (
	nethttp "net/http"
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/service"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc         appsvc.Service
	serviceName string
}

func NewHandler(svc appsvc.Service, serviceName string) *Handler {
	return &Handler{svc: svc, serviceName: serviceName}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(nethttp.StatusBadRequest, gin.H{"error": "malformed request body"})
		return false
	}
	return true
}

func (h *Handler) Register(c *gin.Context) {
	var req dto.RegisterDTO
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusCreated, dto.NewRegisterResponse(user))
}

func (h *Handler) Token(c *gin.Context) {
	var req dto.LoginDTO
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.NewTokenResponse(pair))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req dto.RefreshDTO
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.NewTokenResponse(pair))
}

func (h *Handler) Profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(nethttp.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	view, err := h.svc.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.NewUserProfileResponse(view))
}

// UpdateProfile serves both PUT and PATCH. Only keys present in the body
// are applied in either case.
func (h *Handler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(nethttp.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req dto.ProfileUpdateDTO
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.svc.UpdateProfile(c.Request.Context(), user.ID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.NewProfileResponse(&profile))
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(nethttp.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.svc.DeleteAccount(c.Request.Context(), user.ID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(nethttp.StatusNoContent)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
		"time":    time.Now().Unix(),
	})
}
