package google

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/logging"
)

// TokenProvider supplies an OAuth token source for the Google APIs.
type TokenProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// RefreshTokenProvider mints access tokens from a long-lived refresh token.
type RefreshTokenProvider struct {
	creds   Credentials
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewRefreshTokenProvider creates a provider for creds. If creds carries no
// refresh token the cached one from the auth command is used.
func NewRefreshTokenProvider(creds Credentials, metrics *instrumentation.Metrics) (*RefreshTokenProvider, error) {
	if creds.RefreshToken == "" {
		token, err := LoadRefreshToken()
		if err != nil {
			return nil, err
		}
		creds.RefreshToken = token
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &RefreshTokenProvider{creds: creds, metrics: metrics, logger: slog.Default()}, nil
}

// WithLogger sets the logger that records token refreshes.
func (p *RefreshTokenProvider) WithLogger(logger *slog.Logger) *RefreshTokenProvider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// TokenSource returns a reusable token source that refreshes on demand.
func (p *RefreshTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf := OAuthConfig(p.creds.ClientID, p.creds.ClientSecret, "")
	base := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: p.creds.RefreshToken})
	return oauth2.ReuseTokenSource(nil, &meteredTokenSource{
		ctx:     ctx,
		base:    base,
		metrics: p.metrics,
		logger:  logging.WithService(p.logger, "oauth"),
	}), nil
}

// meteredTokenSource counts token refreshes. ReuseTokenSource only calls it
// when the cached access token has expired.
type meteredTokenSource struct {
	ctx     context.Context
	base    oauth2.TokenSource
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

func (s *meteredTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		s.logger.Warn("google token refresh failed", logging.Err(err))
		return nil, fmt.Errorf("failed to refresh Google token: %w", err)
	}
	s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
	s.logger.Debug("google token refreshed",
		slog.String("access_token", logging.SanitizeToken(t.AccessToken)),
		slog.Time("expiry", t.Expiry))
	return t, nil
}
