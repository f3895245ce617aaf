package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/guttosm/campus-access/internal/domain/dto"
)

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	var resp dto.LoginResponse
	if err := c.Do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.SetAccessToken(resp.AccessToken)
	return &resp.User, nil
}

// Login signs in. The refresh token is kept in the cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.UserResponse, error) {
	var resp dto.LoginResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := c.Do(ctx, http.MethodPost, loginPath, req, &resp); err != nil {
		return nil, err
	}
	c.SetAccessToken(resp.AccessToken)
	return &resp.User, nil
}

// Logout ends the session on the server and forgets the local credentials.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.SetAccessToken("")
	c.jar.reset()
	return err
}

// Me returns the signed in user with the permissions of their role.
func (c *Client) Me(ctx context.Context) (*dto.MeResponse, error) {
	var resp dto.MeResponse
	if err := c.Do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transitions returns the roles the caller may apply for.
func (c *Client) Transitions(ctx context.Context) (*dto.TransitionsResponse, error) {
	var resp dto.TransitionsResponse
	if err := c.Do(ctx, http.MethodGet, "/api/roles/transitions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitApplication applies for a role.
func (c *Client) SubmitApplication(ctx context.Context, req dto.SubmitApplicationRequest) (*dto.RoleApplicationResponse, error) {
	var resp dto.RoleApplicationResponse
	if err := c.Do(ctx, http.MethodPost, "/api/role-applications", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyApplications lists the caller's applications, newest first.
func (c *Client) MyApplications(ctx context.Context) ([]dto.RoleApplicationResponse, error) {
	var resp []dto.RoleApplicationResponse
	if err := c.Do(ctx, http.MethodGet, "/api/role-applications/my-applications", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ApplicationQuery filters ListApplications. Zero fields are not sent.
type ApplicationQuery struct {
	Status string
	Role   string
	Page   int
	Limit  int
}

func (q ApplicationQuery) encode() string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListApplications pages through all applications. It needs the role:read permission.
func (c *Client) ListApplications(ctx context.Context, q ApplicationQuery) (*dto.PageResponse[dto.RoleApplicationResponse], error) {
	var resp dto.PageResponse[dto.RoleApplicationResponse]
	if err := c.Do(ctx, http.MethodGet, "/api/role-applications"+q.encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetApplication returns one application of the caller, or any one for admins.
func (c *Client) GetApplication(ctx context.Context, id string) (*dto.RoleApplicationResponse, error) {
	var resp dto.RoleApplicationResponse
	if err := c.Do(ctx, http.MethodGet, "/api/role-applications/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReviewApplication approves or rejects a pending application.
func (c *Client) ReviewApplication(ctx context.Context, id string, req dto.ReviewApplicationRequest) (*dto.RoleApplicationResponse, error) {
	var resp dto.RoleApplicationResponse
	if err := c.Do(ctx, http.MethodPatch, "/api/role-applications/"+url.PathEscape(id)+"/status", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WithdrawApplication withdraws one of the caller's pending applications.
func (c *Client) WithdrawApplication(ctx context.Context, id string) (*dto.RoleApplicationResponse, error) {
	var resp dto.RoleApplicationResponse
	if err := c.Do(ctx, http.MethodPost, "/api/role-applications/"+url.PathEscape(id)+"/withdraw", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
