package auth

import (
	"context"
	"sync"
	"time"

	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/tokenstore"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// TokenProvider supplies the bearer token for backend requests.
// Implementations return ErrNoToken when nobody is signed in.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Session resolves the access token and the user id carried in its "sub" claim.
func Session(ctx context.Context, tokens TokenProvider) (token, userID string, err error) {
	token, err = tokens.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	if token == "" {
		return "", "", ErrNoToken
	}
	userID, ok := SubjectFromToken(token)
	if !ok {
		return "", "", ErrNoUserID
	}
	return token, userID, nil
}

// StaticTokenSource always returns the same token.
type StaticTokenSource string

func (s StaticTokenSource) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

type contextKey struct{}

// WithAccessToken attaches a bearer token to ctx for ContextTokenSource.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// ContextTokenSource reads the token attached with WithAccessToken, used when
// a gateway forwards its caller's credentials.
type ContextTokenSource struct{}

func (ContextTokenSource) AccessToken(ctx context.Context) (string, error) {
	token, _ := ctx.Value(contextKey{}).(string)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// SessionStore is the session persistence StoredTokenSource reads and updates.
// *tokenstore.TokenStore implements it.
type SessionStore interface {
	GetSession(account string) (*entities.Session, error)
	LatestSession() (*entities.Session, error)
	UpdateAfterRefresh(account, accessToken, refreshToken string, expiresAt *time.Time) error
	MarkUsed(account string) error
}

var _ SessionStore = (*tokenstore.TokenStore)(nil)

// StoredTokenSource serves the token of a stored session and refreshes it
// shortly before it expires.
type StoredTokenSource struct {
	mu sync.Mutex

	store     SessionStore
	refresher Refresher
	account   string // empty = most recent session

	// Cached token data
	session *entities.Session

	// Margin before expiry to trigger refresh (default: 2 minutes)
	refreshMargin time.Duration
}

// StoredTokenSourceOption configures a StoredTokenSource
type StoredTokenSourceOption func(*StoredTokenSource)

// WithRefreshMargin sets the time before expiry to trigger automatic refresh
func WithRefreshMargin(d time.Duration) StoredTokenSourceOption {
	return func(s *StoredTokenSource) {
		s.refreshMargin = d
	}
}

// WithAccount pins the source to one account instead of the latest session.
func WithAccount(account string) StoredTokenSourceOption {
	return func(s *StoredTokenSource) {
		s.account = account
	}
}

func NewStoredTokenSource(store SessionStore, refresher Refresher, opts ...StoredTokenSourceOption) *StoredTokenSource {
	ts := &StoredTokenSource{
		store:         store,
		refresher:     refresher,
		refreshMargin: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// AccessToken returns a valid access token, refreshing if necessary.
func (s *StoredTokenSource) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && !s.session.IsExpiringSoon(s.refreshMargin) {
		return s.session.AccessToken, nil
	}

	session, err := s.load()
	if err != nil {
		if errors.Is(err, tokenstore.ErrSessionNotFound) {
			return "", ErrNoToken
		}
		return "", err
	}
	s.session = session

	if session.IsExpiringSoon(s.refreshMargin) {
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}

	if err := s.store.MarkUsed(s.session.Account); err != nil {
		logger.FromContext(ctx).Err(err).Warn("could not record session use", logger.Data{"account": s.session.Account})
	}
	return s.session.AccessToken, nil
}

// ForceRefresh refreshes the token regardless of its expiry.
func (s *StoredTokenSource) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load()
	if err != nil {
		return err
	}
	s.session = session
	return s.refreshLocked(ctx)
}

func (s *StoredTokenSource) load() (*entities.Session, error) {
	if s.account != "" {
		return s.store.GetSession(s.account)
	}
	return s.store.LatestSession()
}

// refreshLocked performs the refresh; the caller must hold the lock.
func (s *StoredTokenSource) refreshLocked(ctx context.Context) error {
	if s.session.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	resp, err := s.refresher.Refresh(ctx, s.session.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "refresh session")
	}

	expiresAt := resp.ExpiresAt()
	if err := s.store.UpdateAfterRefresh(s.session.Account, resp.AccessToken, resp.RefreshToken, expiresAt); err != nil {
		return err
	}

	s.session.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		s.session.RefreshToken = resp.RefreshToken
	}
	s.session.ExpiresAt = expiresAt

	logger.FromContext(ctx).Info("session refreshed", logger.Data{"account": s.session.Account})
	return nil
}
