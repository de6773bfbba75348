package handler

import (
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	tenants     service.TenantService
	secret      []byte
	cookies     middleware.CookieOptions
}

func NewAuthHandler(authService service.AuthService, tenants service.TenantService, secret []byte, cookies middleware.CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, tenants: tenants, secret: secret, cookies: cookies}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/signin", h.SignIn)
		auth.POST("/signout", h.SignOut)
		auth.GET("/me", middleware.RequireAuth(h.secret), h.Me)
	}
}

// SignUp registers an account, optionally with its company
// @Summary      Sign up
// @Description  Creates an admin account. When company is set the organization is created too.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SignUpRequest  true  "Sign up payload"
// @Success      201      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.authService.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetTokenCookie(c, session.Token, h.cookies)
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, session))
}

// SignIn authenticates by email and password
// @Summary      Sign in
// @Description  Checks the credentials and the organization code, then opens a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SignInRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req service.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.authService.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetTokenCookie(c, session.Token, h.cookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, session))
}

// SignOut clears the session cookie
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.cookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Signed out"}))
}

// Me returns the current profile
// @Summary      Current user
// @Description  Profile, organization and capabilities of the authenticated user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	me, err := h.authService.Me(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}
