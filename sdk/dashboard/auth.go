package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// UserInfo is the authenticated user's profile as the server reports it.
type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	Position    string `json:"position"`
	Status      string `json:"status"`
}

// CanApprove mirrors the server's approval rule: ADMIN role, or a MANAGER or
// CEO position. Used to refuse approval actions locally before any request.
func (u UserInfo) CanApprove() bool {
	return u.Role == "ADMIN" || u.Position == "MANAGER" || u.Position == "CEO"
}

// AuthState is the explicit session context passed to the client at
// construction. It replaces ambient browser storage: the token and profile
// live here, with an explicit refresh/invalidate lifecycle, and a 401
// anywhere invalidates it.
type AuthState struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         UserInfo
	valid        bool
}

// NewAuthState returns an unauthenticated session.
func NewAuthState() *AuthState {
	return &AuthState{}
}

// SetSession installs tokens and profile after a successful login or refresh.
func (a *AuthState) SetSession(accessToken, refreshToken string, user UserInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accessToken = accessToken
	a.refreshToken = refreshToken
	a.user = user
	a.valid = true
}

// Token returns the current access token, or "" when unauthenticated.
func (a *AuthState) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.valid {
		return ""
	}
	return a.accessToken
}

// RefreshToken returns the current refresh token.
func (a *AuthState) RefreshToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.refreshToken
}

// User returns the session's profile.
func (a *AuthState) User() UserInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

// Authenticated reports whether a session is active.
func (a *AuthState) Authenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.valid
}

// Invalidate clears the session. Fired on logout and on any 401.
func (a *AuthState) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accessToken = ""
	a.refreshToken = ""
	a.user = UserInfo{}
	a.valid = false
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         UserInfo `json:"user"`
}

// Login authenticates and installs the session into the client's AuthState.
func (c *Client) Login(ctx context.Context, email, password string) (UserInfo, error) {
	var tokens tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &tokens)
	if err != nil {
		return UserInfo{}, err
	}

	c.auth.SetSession(tokens.AccessToken, tokens.RefreshToken, tokens.User)
	return tokens.User, nil
}

// Refresh rotates the session tokens.
func (c *Client) Refresh(ctx context.Context) error {
	refreshToken := c.auth.RefreshToken()
	if refreshToken == "" {
		return fmt.Errorf("no refresh token held")
	}

	var tokens tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, &tokens); err != nil {
		return err
	}

	c.auth.SetSession(tokens.AccessToken, tokens.RefreshToken, tokens.User)
	return nil
}

// Logout revokes the session server-side and invalidates it locally either
// way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.auth.Invalidate()
	c.cache.Clear()
	return err
}

// Me fetches the caller's profile and effective permissions.
func (c *Client) Me(ctx context.Context) (UserInfo, []string, error) {
	var payload struct {
		User        UserInfo `json:"user"`
		Permissions []string `json:"permissions"`
	}
	if err := c.get(ctx, "/api/auth/me", &payload); err != nil {
		return UserInfo{}, nil, err
	}
	return payload.User, payload.Permissions, nil
}
