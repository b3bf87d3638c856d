package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"garrison/pkg/auth"
	"garrison/pkg/clock"
	"garrison/pkg/response"
)

type UserHandler struct {
	service UserService
	tokens  *auth.Tokens
	clock   clock.Clock
}

func NewUserHandler(service UserService, tokens *auth.Tokens, clk clock.Clock) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, clock: clk}
}

func (h *UserHandler) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	grp := router.Group("/api/auth")
	grp.POST("/register", h.register)
	grp.POST("/login", h.login)
	grp.GET("/profile", requireAuth, h.getProfile)
	grp.PATCH("/profile", requireAuth, h.updateProfile)
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role" binding:"required"`
	Base     string `json:"base"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// @Summary      Register user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body registerRequest true "Registration request"
// @Success      201 {object} response.APIResponse{data=sessionResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /api/auth/register [post]
func (h *UserHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	u, err := h.service.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
		Base:     req.Base,
	})
	if err != nil {
		response.SendError(c, err)
		return
	}

	token, err := h.tokens.Generate(u.Actor(), h.clock.Now())
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, "error issuing token", nil)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "user registered successfully", sessionResponse{User: u, Token: token})
}

// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "Login request"
// @Success      200 {object} response.APIResponse{data=sessionResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /api/auth/login [post]
func (h *UserHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	u, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		// Credential failures surface as 401, not 403
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid credentials", nil)
		return
	}

	token, err := h.tokens.Generate(u.Actor(), h.clock.Now())
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, "error issuing token", nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "login successful", sessionResponse{User: u, Token: token})
}

// @Summary      Get own profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse{data=User}
// @Failure      401 {object} response.APIResponse
// @Router       /api/auth/profile [get]
func (h *UserHandler) getProfile(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "profile fetched", u)
}

var profileAllowedFields = map[string]bool{
	"email":    true,
	"fullName": true,
	"password": true,
	"phone":    true,
	"base":     true,
}

// @Summary      Update own profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse{data=User}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /api/auth/profile [patch]
func (h *UserHandler) updateProfile(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	for field := range body {
		if !profileAllowedFields[field] {
			response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid updates", nil)
			return
		}
	}

	update := ProfileUpdate{}
	if v, ok := body["email"]; ok {
		update.Email = &v
	}
	if v, ok := body["fullName"]; ok {
		update.FullName = &v
	}
	if v, ok := body["password"]; ok {
		update.Password = &v
	}
	if v, ok := body["phone"]; ok {
		update.Phone = &v
	}
	if v, ok := body["base"]; ok {
		update.Base = &v
	}

	u, err := h.service.UpdateProfile(c.Request.Context(), actor, update)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "profile updated successfully", u)
}
