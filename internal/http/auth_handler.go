package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/middleware"
	"github.com/guttosm/campus-access/internal/service"
)

const (
	// RefreshCookieName is the cookie carrying the refresh token.
	RefreshCookieName = "refresh_token"
	// RefreshCookiePath scopes the cookie to the auth endpoints.
	RefreshCookiePath = "/api/auth"
)

// AuthHandler provides HTTP handlers for authentication routes.
type AuthHandler struct {
	authService    service.AuthService
	permissions    service.PermissionService
	loggingService service.LoggingService
	secureCookie   bool
}

// NewAuthHandler creates a new authentication handler. loggingService may be nil.
func NewAuthHandler(
	authService service.AuthService,
	permissions service.PermissionService,
	loggingService service.LoggingService,
	secureCookie bool,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		permissions:    permissions,
		loggingService: loggingService,
		secureCookie:   secureCookie,
	}
}

// Register handles POST /api/auth/register requests.
//
// @Summary      Register new user
// @Description  Creates a user with the base role, signs them in and sets the refresh token cookie
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterRequest true "Registration information"
// @Success      201 {object} dto.SuccessResponse{data=dto.LoginResponse} "Successful registration"
// @Failure      400 {object} dto.ErrorResponse "Validation failed"
// @Failure      409 {object} dto.ErrorResponse "User already exists"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.RegisterRequest](c)
	if err != nil {
		builder.Fail(err)
		return
	}

	pair, user, err := h.authService.Register(c.Request.Context(), *req, c.Request.UserAgent())
	if err != nil {
		middleware.AuditLogError(h.loggingService, c, model.ActionRegister, "Registration failed", err,
			map[string]any{"email": req.Email})
		builder.Fail(err)
		return
	}

	middleware.AuditLog(h.loggingService, c, model.ActionRegister, "User registered",
		map[string]any{"user_id": user.ID.Hex(), "email": user.Email})
	h.setRefreshCookie(c, pair)
	builder.SuccessCreated(newLoginResponse(pair, user))
}

// Login handles POST /api/auth/login requests.
//
// @Summary      Login user
// @Description  Authenticates a user, returns an access token and sets the refresh token cookie
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "Login credentials"
// @Success      200 {object} dto.SuccessResponse{data=dto.LoginResponse} "Successful login"
// @Failure      400 {object} dto.ErrorResponse "Validation failed"
// @Failure      401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.LoginRequest](c)
	if err != nil {
		builder.Fail(err)
		return
	}

	pair, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.Request.UserAgent())
	if err != nil {
		middleware.AuditLogError(h.loggingService, c, model.ActionLogin, "Login failed", err,
			map[string]any{"email": req.Email})
		builder.Fail(err)
		return
	}

	middleware.AuditLog(h.loggingService, c, model.ActionLogin, "User logged in",
		map[string]any{"user_id": user.ID.Hex(), "email": user.Email})
	h.setRefreshCookie(c, pair)
	builder.SuccessOK(newLoginResponse(pair, user))
}

// RefreshToken handles POST /api/auth/refresh-token requests.
//
// @Summary      Refresh access token
// @Description  Rotates the refresh token from the cookie, or from the body when cookies are unavailable, and issues a new access token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body dto.RefreshTokenRequest false "Refresh token when not sent as a cookie"
// @Success      200 {object} dto.SuccessResponse{data=dto.LoginResponse} "New token pair"
// @Failure      401 {object} dto.ErrorResponse "Missing, invalid or expired refresh token"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	builder := NewResponseBuilder(c)

	refreshToken, err := refreshTokenFrom(c)
	if err != nil {
		builder.Fail(err)
		return
	}
	if refreshToken == "" {
		builder.Error(http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyRefreshTokenRequired)
		return
	}

	pair, user, err := h.authService.RefreshToken(c.Request.Context(), refreshToken, c.Request.UserAgent())
	if err != nil {
		h.clearRefreshCookie(c)
		builder.Fail(err)
		return
	}

	h.setRefreshCookie(c, pair)
	builder.SuccessOK(newLoginResponse(pair, user))
}

// Logout handles POST /api/auth/logout requests.
//
// @Summary      Logout user
// @Description  Revokes the access token and removes the presented refresh token. Without a refresh token every session of the user ends.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.RefreshTokenRequest false "Refresh token when not sent as a cookie"
// @Success      200 {object} dto.SuccessResponse "Logged out"
// @Failure      401 {object} dto.ErrorResponse "Unauthorized"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	builder := NewResponseBuilder(c)

	claims, ok := middleware.GetClaims(c)
	if !ok {
		builder.Error(http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
		return
	}
	refreshToken, err := refreshTokenFrom(c)
	if err != nil {
		builder.Fail(err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims, refreshToken); err != nil {
		builder.Fail(err)
		return
	}

	middleware.AuditLog(h.loggingService, c, model.ActionLogout, "User logged out",
		map[string]any{"all_sessions": refreshToken == ""})
	h.clearRefreshCookie(c)
	builder.Success(http.StatusOK, nil, i18n.SuccessKeyLoggedOut)
}

// Me handles GET /api/auth/me requests.
//
// @Summary      Current user
// @Description  Returns the authenticated user with the permissions and transitions of their current role
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.SuccessResponse{data=dto.MeResponse} "Current user"
// @Failure      401 {object} dto.ErrorResponse "Unauthorized"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	builder := NewResponseBuilder(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		builder.Error(http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
		return
	}

	ctx := c.Request.Context()
	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		builder.Fail(err)
		return
	}
	_, perms, err := h.permissions.Permissions(ctx, userID)
	if err != nil {
		builder.Fail(err)
		return
	}
	_, transitions, err := h.permissions.Transitions(ctx, userID)
	if err != nil {
		builder.Fail(err)
		return
	}

	builder.SuccessOK(dto.MeResponse{
		User:        dto.NewUserResponse(user),
		Permissions: perms,
		Transitions: transitions,
	})
}

func newLoginResponse(pair *dto.TokenPair, user *model.User) dto.LoginResponse {
	return dto.LoginResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
		User:        dto.NewUserResponse(user),
	}
}

// refreshTokenFrom reads the refresh token from the cookie, then from an optional JSON body.
func refreshTokenFrom(c *gin.Context) (string, error) {
	if token, err := c.Cookie(RefreshCookieName); err == nil && token != "" {
		return token, nil
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return "", nil
	}
	req, err := BuildRequest[dto.RefreshTokenRequest](c)
	if err != nil {
		return "", err
	}
	return req.RefreshToken, nil
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, pair *dto.TokenPair) {
	maxAge := int(time.Until(pair.RefreshExpiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, pair.RefreshToken, maxAge, RefreshCookiePath, "", h.secureCookie, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, RefreshCookiePath, "", h.secureCookie, true)
}
