package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/robinjoseph08/golib/logger"
)

// AuthController proxies sign-in and refresh to the backend so gateway
// clients only ever talk to one host.
type AuthController struct {
	signIn  SignInService
	limiter *SignInLimiter
}

func NewAuthController(signIn SignInService, limiter *SignInLimiter) *AuthController {
	return &AuthController{signIn: signIn, limiter: limiter}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// SignIn exchanges email and password for a token pair.
// POST /api/auth/sign-in
func (ac *AuthController) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "email and password are required")
		return
	}
	account := strings.ToLower(strings.TrimSpace(req.Email))
	ip := c.ClientIP()

	if ac.limiter != nil {
		if ok, retryAfter := ac.limiter.Allow(ip, account); !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many sign-in attempts", Code: "rate_limited"})
			return
		}
	}

	resp, err := ac.signIn.SignInWithPassword(c.Request.Context(), account, req.Password)
	if err != nil {
		if isAuthFailure(err) {
			if ac.limiter != nil && ac.limiter.Fail(ip, account) {
				logger.FromContext(c.Request.Context()).Warn("sign-in locked out", logger.Data{"account": account, "ip": ip})
			}
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "invalid_credentials"})
			return
		}
		respondLibraryError(c, err, "sign in")
		return
	}

	if ac.limiter != nil {
		ac.limiter.Succeed(ip, account)
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		UserID:       resp.UserID(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new pair.
// POST /api/auth/refresh
func (ac *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "refresh_token is required")
		return
	}

	resp, err := ac.signIn.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if isAuthFailure(err) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "refresh_rejected"})
			return
		}
		respondLibraryError(c, err, "refresh")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		UserID:       resp.UserID(),
	})
}
