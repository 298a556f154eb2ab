package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"ghbridge/internal/config"
	"ghbridge/internal/domain/models"
)

// ScopeReadOrg is the only scope the relay asks for.
const ScopeReadOrg = "read:org"

// Option customizes a client. Tests use it to point at a fake GitHub.
type Option func(*options)

type options struct {
	endpoint   *oauth2.Endpoint
	apiBaseURL string
}

// WithEndpoint overrides the OAuth authorize/token endpoints.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(o *options) { o.endpoint = &e }
}

// WithAPIBaseURL overrides the REST API base URL.
func WithAPIBaseURL(u string) Option {
	return func(o *options) { o.apiBaseURL = u }
}

// OAuth talks to GitHub on behalf of a user going through the relay:
// the web flow, the identity lookup and the membership lookups.
type OAuth struct {
	conf       *oauth2.Config
	httpClient *http.Client
	apiBaseURL *url.URL
}

// NewOAuth builds the GitHub OAuth client from cfg. Every outbound request is
// bounded by cfg.Timeout.
func NewOAuth(cfg config.GitHubConfig, opts ...Option) (*OAuth, error) {
	const op = "github.NewOAuth"

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	endpoint := githuboauth.Endpoint
	if o.endpoint != nil {
		endpoint = *o.endpoint
	}
	baseURL, err := apiBaseURL(o.apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{ScopeReadOrg},
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiBaseURL: baseURL,
	}, nil
}

// AuthCodeURL returns the authorization URL carrying state.
func (g *OAuth) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (g *OAuth) Exchange(ctx context.Context, code string) (models.ProviderToken, error) {
	const op = "github.Exchange"

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return models.ProviderToken{}, fmt.Errorf("%s: %w", op, err)
	}
	if tok.AccessToken == "" {
		return models.ProviderToken{}, fmt.Errorf("%s: no access token in response", op)
	}
	scopes, _ := tok.Extra("scope").(string)
	return models.ProviderToken{
		AccessToken: tok.AccessToken,
		Scopes:      strings.ReplaceAll(scopes, ",", " "),
	}, nil
}

// Login returns the login of the token owner.
func (g *OAuth) Login(ctx context.Context, accessToken string) (string, error) {
	const op = "github.Login"

	user, _, err := g.client(accessToken).Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user.GetLogin() == "" {
		return "", fmt.Errorf("%s: empty login", op)
	}
	return user.GetLogin(), nil
}

// Organizations lists the logins of every organization the token owner
// belongs to.
func (g *OAuth) Organizations(ctx context.Context, accessToken string) ([]string, error) {
	const op = "github.Organizations"

	client := g.client(accessToken)
	opts := &github.ListOptions{PerPage: 100}
	var logins []string
	for {
		orgs, resp, err := client.Organizations.List(ctx, "", opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, org := range orgs {
			logins = append(logins, org.GetLogin())
		}
		if resp.NextPage == 0 {
			return logins, nil
		}
		opts.Page = resp.NextPage
	}
}

// TeamMembership reports whether login has a membership record in org/team.
// A 404 is "no membership", not an error.
func (g *OAuth) TeamMembership(ctx context.Context, accessToken, org, team, login string) (bool, error) {
	const op = "github.TeamMembership"

	_, resp, err := g.client(accessToken).Teams.GetTeamMembershipBySlug(ctx, org, team, login)
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (g *OAuth) client(accessToken string) *github.Client {
	return newClient(g.httpClient, g.apiBaseURL, accessToken)
}

func newClient(httpClient *http.Client, baseURL *url.URL, token string) *github.Client {
	c := github.NewClient(httpClient).WithAuthToken(token)
	if baseURL != nil {
		c.BaseURL = baseURL
	}
	return c
}

func apiBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	return u, nil
}
