// Package auth attaches vendor credentials to outbound HTTP requests.
//
// Each Authorizer wraps a base *http.Client, keeping its timeout and
// transport, and returns a client that authorizes every request.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authorizer produces an authorized client from a base client.
type Authorizer interface {
	HTTPClient(ctx context.Context, base *http.Client) *http.Client
}

// HeaderAuth sets a static token header, optionally prefixed
// ("Authorization: Token abc").
type HeaderAuth struct {
	Header string
	Prefix string
	Token  string
}

// HTTPClient implements Authorizer.
func (a HeaderAuth) HTTPClient(_ context.Context, base *http.Client) *http.Client {
	header := a.Header
	if header == "" {
		header = "Authorization"
	}
	value := a.Token
	if a.Prefix != "" {
		value = a.Prefix + " " + a.Token
	}
	return &http.Client{
		Transport: &headerTransport{base: transportOf(base), header: header, value: value},
		Timeout:   timeoutOf(base),
	}
}

type headerTransport struct {
	base   http.RoundTripper
	header string
	value  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(t.header, t.value)
	return t.base.RoundTrip(clone)
}

// BearerAuth sends a static OAuth2 access token.
type BearerAuth struct {
	Token string
}

// HTTPClient implements Authorizer.
func (a BearerAuth) HTTPClient(ctx context.Context, base *http.Client) *http.Client {
	ctx = withBase(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: a.Token,
		TokenType:   "Bearer",
	}))
	client.Timeout = timeoutOf(base)
	return client
}

// ClientCredentialsAuth fetches an access token with the OAuth2 client
// credentials flow. GrantType overrides the standard grant, which Zoom
// server-to-server apps need ("account_credentials").
type ClientCredentialsAuth struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	GrantType    string
	Params       url.Values
}

// HTTPClient implements Authorizer. The token is fetched lazily on the
// first request and reused for the client's lifetime.
func (a ClientCredentialsAuth) HTTPClient(ctx context.Context, base *http.Client) *http.Client {
	params := url.Values{}
	for k, v := range a.Params {
		params[k] = v
	}
	if a.GrantType != "" {
		params.Set("grant_type", a.GrantType)
	}

	cfg := clientcredentials.Config{
		ClientID:       a.ClientID,
		ClientSecret:   a.ClientSecret,
		TokenURL:       a.TokenURL,
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInHeader,
	}
	ctx = withBase(ctx, oauth2.HTTPClient, base)
	client := cfg.Client(ctx)
	client.Timeout = timeoutOf(base)
	return client
}

// OAuth1Auth signs requests with OAuth 1.0a HMAC-SHA1 user context.
type OAuth1Auth struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

// HTTPClient implements Authorizer.
func (a OAuth1Auth) HTTPClient(ctx context.Context, base *http.Client) *http.Client {
	cfg := oauth1.NewConfig(a.ConsumerKey, a.ConsumerSecret)
	ctx = withBase(ctx, oauth1.HTTPClient, base)
	client := oauth1.NewClient(ctx, cfg, oauth1.NewToken(a.Token, a.TokenSecret))
	client.Timeout = timeoutOf(base)
	return client
}

func withBase(ctx context.Context, key any, base *http.Client) context.Context {
	if base == nil {
		return ctx
	}
	return context.WithValue(ctx, key, base)
}

func transportOf(base *http.Client) http.RoundTripper {
	if base != nil && base.Transport != nil {
		return base.Transport
	}
	return http.DefaultTransport
}

func timeoutOf(base *http.Client) time.Duration {
	if base == nil {
		return 0
	}
	return base.Timeout
}
