package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultRedirectURL is the loopback redirect used by the interactive auth
// flow. The browser fails to load it; the code is copied from the address bar.
const DefaultRedirectURL = "http://localhost"

// ErrNoRefreshToken is returned when no refresh token is configured or cached.
var ErrNoRefreshToken = errors.New("no Google refresh token configured; run the auth command")

// Credentials are the OAuth client credentials plus the long-lived refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Validate checks that the client credentials are present. A missing refresh
// token is reported as ErrNoRefreshToken.
func (c Credentials) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("google client id and client secret are required")
	}
	if c.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	return nil
}

// OAuthConfig returns the OAuth2 configuration for the given client.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// AuthURL returns the consent URL. Offline access with forced consent makes
// Google return a refresh token every time.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges an authorization code for a token.
func ExchangeCode(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	t, err := conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if t.RefreshToken == "" {
		return nil, fmt.Errorf("token response did not include a refresh token")
	}
	return t, nil
}

// HTTPClient returns an HTTP client authenticated with ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors
// seen with large media uploads.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)

	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}

	return client
}

// TokenFilePath returns the path of the cached refresh token.
func TokenFilePath() string {
	return filepath.Join(userCacheDir(), "propertyinbox", "google.token")
}

// SaveRefreshToken writes the refresh token to the cache file.
func SaveRefreshToken(refreshToken string) error {
	path := TokenFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(refreshToken+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadRefreshToken reads the cached refresh token.
func LoadRefreshToken() (string, error) {
	slurp, err := os.ReadFile(TokenFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoRefreshToken
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(slurp))
	if token == "" {
		return "", ErrNoRefreshToken
	}
	return token, nil
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("TEMP")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}
