package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/jfmyers9/requestline/internal/store"
)

var scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
}

// TokenStore persists the OAuth credential
type TokenStore interface {
	Credential(ctx context.Context) (store.Credential, error)
	SaveCredential(ctx context.Context, cred store.Credential) error
}

// AuthConfig holds the OAuth application settings
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// TokenURL overrides the token endpoint, used for testing
	TokenURL string
}

// Auth runs the authorization code flow and produces HTTP clients whose
// refreshed tokens are written back to the TokenStore.
type Auth struct {
	authenticator *spotifyauth.Authenticator
	oauth         *oauth2.Config
	tokens        TokenStore
	logger        zerolog.Logger
}

// NewAuth creates an Auth for the given application credentials
func NewAuth(cfg AuthConfig, tokens TokenStore, logger zerolog.Logger) *Auth {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	return &Auth{
		authenticator: spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithRedirectURL(cfg.RedirectURL),
			spotifyauth.WithScopes(scopes...),
		),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: tokenURL,
			},
		},
		tokens: tokens,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// AuthURL returns the login URL the account owner must visit
func (a *Auth) AuthURL(state string) string {
	return a.authenticator.AuthURL(state)
}

// Exchange completes the flow from the callback request and stores the token
func (a *Auth) Exchange(ctx context.Context, state string, r *http.Request) error {
	values := r.URL.Query()
	if e := values.Get("error"); e != "" {
		return fmt.Errorf("authorization denied: %s", e)
	}
	if values.Get("state") != state {
		return errors.New("authorization state mismatch")
	}

	code := values.Get("code")
	if code == "" {
		return errors.New("authorization code missing")
	}

	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := a.tokens.SaveCredential(ctx, credentialFromToken(tok)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	a.logger.Info().Msg("account authorized")
	return nil
}

// HTTPClient returns a client authorized with the stored credential.
// ctx governs token refreshes and should live as long as the client.
func (a *Auth) HTTPClient(ctx context.Context) (*http.Client, error) {
	cred, err := a.tokens.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}

	tok := tokenFromCredential(cred)
	src := &persistingTokenSource{
		ctx:    ctx,
		base:   a.oauth.TokenSource(ctx, tok),
		tokens: a.tokens,
		last:   tok.AccessToken,
		logger: a.logger,
	}

	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// persistingTokenSource writes every newly issued token back to the store
type persistingTokenSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	tokens TokenStore
	logger zerolog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.last {
		return tok, nil
	}

	if err := p.tokens.SaveCredential(p.ctx, credentialFromToken(tok)); err != nil {
		p.logger.Error().Err(err).Msg("failed to persist refreshed token")
	} else {
		p.logger.Debug().Time("expiry", tok.Expiry).Msg("persisted refreshed token")
	}
	p.last = tok.AccessToken

	return tok, nil
}

func tokenFromCredential(cred store.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry,
	}
}

func credentialFromToken(tok *oauth2.Token) store.Credential {
	return store.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}
