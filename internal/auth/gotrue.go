package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/pkg/errors"
)

const (
	tokenPath  = "/auth/v1/token"
	healthPath = "/auth/v1/health"
)

// TokenResponse is the token pair returned by sign-in and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// ExpiresAt calculates the absolute expiry time from ExpiresIn, falling back
// to the token's own "exp" claim.
func (t *TokenResponse) ExpiresAt() *time.Time {
	if t.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
		return &exp
	}
	if exp, ok := ExpiryFromToken(t.AccessToken); ok {
		return exp
	}
	return nil
}

// UserID returns the user id reported by the server or, failing that, the
// "sub" claim of the access token.
func (t *TokenResponse) UserID() string {
	if t.User.ID != "" {
		return t.User.ID
	}
	sub, _ := SubjectFromToken(t.AccessToken)
	return sub
}

// GoTrueClient signs users in against the backend's auth endpoint.
type GoTrueClient struct {
	backend *backend.Client
}

func NewGoTrueClient(client *backend.Client) *GoTrueClient {
	return &GoTrueClient{backend: client}
}

// SignInWithPassword exchanges email and password for a token pair.
func (c *GoTrueClient) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := c.grant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		if isRejected(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return resp, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *GoTrueClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	resp, err := c.grant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		if isRejected(err) {
			return nil, ErrRefreshRejected
		}
		return nil, err
	}
	return resp, nil
}

// Ping checks that the backend answers on its auth health endpoint.
func (c *GoTrueClient) Ping(ctx context.Context) error {
	_, err := c.backend.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   healthPath,
		Class:  backend.ClassRead,
	})
	return errors.Wrap(err, "backend health")
}

func (c *GoTrueClient) grant(ctx context.Context, grantType string, body map[string]string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   tokenPath,
		Query:  url.Values{"grant_type": []string{grantType}},
		JSON:   body,
	}, &out)
	if err != nil {
		return nil, errors.Wrapf(err, "%s grant", grantType)
	}
	if out.AccessToken == "" {
		return nil, errors.Errorf("%s grant: response carries no access token", grantType)
	}
	return &out, nil
}

func isRejected(err error) bool {
	switch backend.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
