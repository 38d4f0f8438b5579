package clio

import (
	"context"

	"golang.org/x/oauth2"

	"clio-sync/internal/domain"
)

// AuthURL returns the provider URL a user must visit to authorize the app.
// state must be an unguessable value the caller checks on callback.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and stores the resulting
// token source on the client. Refreshing is handled by the source itself.
func (c *Client) Exchange(ctx context.Context, code string) error {
	if c.oauth.ClientID == "" || c.oauth.ClientSecret == "" {
		return domain.ErrNotSupported
	}
	// Exchange and refresh go through the adapter's HTTP client so every
	// remote call shares one transport and timeout policy.
	tok, err := c.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		return &domain.AuthError{Reason: "authorization code exchange failed", Err: err}
	}
	// Background context: token refresh must outlive the callback request.
	c.source = c.oauth.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, c.http), tok)
	return nil
}

// HasCredential reports whether the client holds a token source.
func (c *Client) HasCredential() bool { return c.source != nil }
