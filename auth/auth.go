// Package auth obtains bearer tokens for the planning API that serves
// scheduling instances.
package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// HTTPClient returns a client whose requests carry a client-credentials
// token, refreshed on expiry. Without credentials a plain client is
// returned. ctx bounds token requests, not the returned client.
func HTTPClient(ctx context.Context, c Conf, timeout time.Duration) *http.Client {
	base := &http.Client{Timeout: timeout}
	if !c.Enabled() {
		return base
	}
	cfg := c.toOauth2Config()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	cli := cfg.Client(ctx)
	cli.Timeout = timeout
	return cli
}

// Token fetches a token once. It is used to fail fast on bad credentials
// before a long run starts.
func Token(ctx context.Context, c Conf) (*oauth2.Token, error) {
	cfg := c.toOauth2Config()
	return cfg.Token(ctx)
}
