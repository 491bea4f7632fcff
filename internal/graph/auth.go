package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/castwork/slidecast/internal/tokenfile"
)

// defaultScopes is the fixed scope set requested during the device flow.
// Files.Read.All covers shared folders; User.Read lets whoami show the
// account; offline_access enables refresh tokens.
var defaultScopes = []string{
	"offline_access",
	"Files.Read.All",
	"User.Read",
}

// Prompt carries the device-code fields the CLI shows to the user.
type Prompt struct {
	UserCode        string
	VerificationURI string
}

// Message renders the human-readable sign-in instruction.
func (p Prompt) Message() string {
	return fmt.Sprintf("To sign in, open %s in a browser and enter the code %s.", p.VerificationURI, p.UserCode)
}

// DeviceFlow is a single authentication session against the Microsoft
// identity platform. Initiate requests a device code; Complete polls until
// the user authorizes out-of-band and then holds the bearer token in memory
// for the rest of the session. The zero value is not usable — construct
// with NewDeviceFlow.
//
// A flow is single-use: one Initiate, one Complete. State is session-scoped
// with single-writer, single-reader usage assumed.
type DeviceFlow struct {
	cfg    *oauth2.Config
	logger *slog.Logger

	auth  *oauth2.DeviceAuthResponse
	token *oauth2.Token
}

// NewDeviceFlow creates a device-authorization session for the given Azure
// application and tenant. tenantID may be "common" for multi-tenant apps.
func NewDeviceFlow(clientID, tenantID string, logger *slog.Logger) *DeviceFlow {
	if logger == nil {
		logger = slog.Default()
	}

	return &DeviceFlow{
		cfg:    oauthConfig(clientID, tenantID),
		logger: logger,
	}
}

// Initiate starts the device-authorization handshake and returns the prompt
// to display. Fails if the provider response carries no user code.
func (f *DeviceFlow) Initiate(ctx context.Context) (Prompt, error) {
	f.logger.Info("initiating device code flow")

	auth, err := f.cfg.DeviceAuth(ctx)
	if err != nil {
		return Prompt{}, fmt.Errorf("graph: device auth initiation failed: %w", err)
	}

	if auth.UserCode == "" {
		return Prompt{}, ErrNoUserCode
	}

	f.auth = auth

	f.logger.Info("device code received",
		slog.String("verification_uri", auth.VerificationURI),
		slog.Time("expires", auth.Expiry),
	)

	return Prompt{
		UserCode:        auth.UserCode,
		VerificationURI: auth.VerificationURI,
	}, nil
}

// Complete blocks until the user authorizes the device code, polling the
// identity provider. It requires Initiate to have run first. On success the
// bearer token is stored on the flow and a TokenSource is returned.
func (f *DeviceFlow) Complete(ctx context.Context) (TokenSource, error) {
	if f.auth == nil {
		return nil, ErrFlowNotStarted
	}

	f.logger.Info("waiting for user authorization")

	tok, err := f.cfg.DeviceAccessToken(ctx, f.auth)
	if err != nil {
		return nil, fmt.Errorf("graph: device flow completion failed: %w", err)
	}

	if tok.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	f.token = tok

	f.logger.Info("user authorized",
		slog.Time("expiry", tok.Expiry),
	)

	return f.tokenSource(ctx, "", nil), nil
}

// AccessToken returns the bearer token acquired by Complete, or "" if the
// flow has not completed.
func (f *DeviceFlow) AccessToken() string {
	if f.token == nil {
		return ""
	}

	return f.token.AccessToken
}

// Save persists the session token to tokenPath so later invocations can
// reuse it without a new device flow. Call after Complete succeeds.
func (f *DeviceFlow) Save(tokenPath string) error {
	if f.token == nil {
		return ErrNoAccessToken
	}

	if err := tokenfile.Save(tokenPath, f.token); err != nil {
		return fmt.Errorf("graph: saving token: %w", err)
	}

	f.logger.Info("saved token",
		slog.String("path", tokenPath),
		slog.Time("expiry", f.token.Expiry),
	)

	return nil
}

// tokenSource wraps the flow's token in an auto-refreshing source.
// If persistPath is non-empty, refreshed tokens are written back to disk.
func (f *DeviceFlow) tokenSource(ctx context.Context, persistPath string, tok *oauth2.Token) TokenSource {
	if tok == nil {
		tok = f.token
	}

	return &tokenBridge{
		src:         f.cfg.TokenSource(ctx, tok),
		persistPath: persistPath,
		lastAccess:  tok.AccessToken,
		logger:      f.logger,
	}
}

// TokenSourceFromPath loads a saved token and returns an auto-refreshing
// TokenSource that persists refreshed tokens back to tokenPath. Returns
// ErrNotLoggedIn if no token file exists.
//
// ctx must outlive the TokenSource; pass context.Background() for
// session-length use.
func TokenSourceFromPath(ctx context.Context, tokenPath, clientID, tenantID string, logger *slog.Logger) (TokenSource, error) {
	tok, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, ErrNotLoggedIn
	}

	expired := !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	logger.Info("loaded saved token",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", expired),
	)

	cfg := oauthConfig(clientID, tenantID)

	return &tokenBridge{
		src:         cfg.TokenSource(ctx, tok),
		persistPath: tokenPath,
		lastAccess:  tok.AccessToken,
		logger:      logger,
	}, nil
}

// Logout removes the saved token file. Removing a file that does not exist
// is not an error — the user is already logged out.
func Logout(tokenPath string, logger *slog.Logger) error {
	removed, err := tokenfile.Remove(tokenPath)
	if err != nil {
		return fmt.Errorf("graph: removing token: %w", err)
	}

	if removed {
		logger.Info("removed token file", slog.String("path", tokenPath))
	} else {
		logger.Info("no token file to remove", slog.String("path", tokenPath))
	}

	return nil
}

// oauthConfig builds the oauth2 configuration for the Microsoft identity
// platform v2.0 endpoint.
func oauthConfig(clientID, tenantID string) *oauth2.Config {
	if tenantID == "" {
		tenantID = "common"
	}

	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   defaultScopes,
		Endpoint: microsoft.AzureADEndpoint(tenantID),
	}
}

// tokenBridge adapts oauth2.TokenSource to graph.TokenSource. When the
// underlying source silently refreshes the token, the new token is written
// back to persistPath so the next invocation does not need a refresh.
type tokenBridge struct {
	src         oauth2.TokenSource
	persistPath string
	logger      *slog.Logger

	mu         sync.Mutex
	lastAccess string
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("graph: obtaining token: %w", err)
	}

	b.mu.Lock()
	refreshed := t.AccessToken != b.lastAccess
	b.lastAccess = t.AccessToken
	b.mu.Unlock()

	if refreshed && b.persistPath != "" {
		b.logger.Info("token refreshed, persisting",
			slog.String("path", b.persistPath),
			slog.Time("new_expiry", t.Expiry),
		)

		if saveErr := tokenfile.Save(b.persistPath, t); saveErr != nil {
			// Persisting is best-effort; the in-memory token still works.
			b.logger.Warn("failed to persist refreshed token",
				slog.String("path", b.persistPath),
				slog.String("error", saveErr.Error()),
			)
		}
	}

	return t.AccessToken, nil
}

// StaticToken returns a TokenSource that always yields the given bearer
// token. Used when the caller already completed a device flow in-process.
func StaticToken(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (s staticToken) Token() (string, error) {
	if s == "" {
		return "", ErrNoAccessToken
	}

	return string(s), nil
}
