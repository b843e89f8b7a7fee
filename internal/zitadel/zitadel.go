// Package zitadel creates and removes the OIDC application registered for
// each website through the Zitadel management API.
package zitadel

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sited-io/websites/internal/upstream"
)

// OIDC enum values of the management API.
const (
	responseTypeCode       = "OIDC_RESPONSE_TYPE_CODE"
	grantAuthorizationCode = "OIDC_GRANT_TYPE_AUTHORIZATION_CODE"
	grantRefreshToken      = "OIDC_GRANT_TYPE_REFRESH_TOKEN"
	appTypeWeb             = "OIDC_APP_TYPE_WEB"
	authMethodNone         = "OIDC_AUTH_METHOD_TYPE_NONE"
	accessTokenJWT         = "OIDC_TOKEN_TYPE_JWT"
)

type addOIDCAppRequest struct {
	Name                   string   `json:"name"`
	RedirectURIs           []string `json:"redirectUris"`
	ResponseTypes          []string `json:"responseTypes"`
	GrantTypes             []string `json:"grantTypes"`
	AppType                string   `json:"appType"`
	AuthMethodType         string   `json:"authMethodType"`
	PostLogoutRedirectURIs []string `json:"postLogoutRedirectUris"`
	AccessTokenType        string   `json:"accessTokenType"`
}

// App is a created OIDC application.
type App struct {
	AppID    string `json:"appId"`
	ClientID string `json:"clientId"`
}

// Client talks to one Zitadel project.
type Client struct {
	api       *upstream.Client
	projectID string
}

// New creates a Client for projectID.
func New(apiURL, projectID, token string, opts upstream.Options) *Client {
	return &Client{
		api:       upstream.New("zitadel", apiURL, token, opts),
		projectID: projectID,
	}
}

func (c *Client) appsPath() string {
	return "/management/v1/projects/" + url.PathEscape(c.projectID) + "/apps"
}

// CreateApp registers a public web application for domain using the code
// flow with refresh tokens and JWT access tokens.
func (c *Client) CreateApp(ctx context.Context, domain string) (*App, error) {
	req := addOIDCAppRequest{
		Name:                   domain,
		RedirectURIs:           []string{"https://" + domain + "/user/sign-in-callback"},
		ResponseTypes:          []string{responseTypeCode},
		GrantTypes:             []string{grantAuthorizationCode, grantRefreshToken},
		AppType:                appTypeWeb,
		AuthMethodType:         authMethodNone,
		PostLogoutRedirectURIs: []string{"https://" + domain},
		AccessTokenType:        accessTokenJWT,
	}

	var app App
	if err := c.api.Do(ctx, http.MethodPost, c.appsPath()+"/oidc", nil, req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// AppExists reports whether the application is still registered.
func (c *Client) AppExists(ctx context.Context, appID string) (bool, error) {
	err := c.api.Do(ctx, http.MethodGet, c.appsPath()+"/"+url.PathEscape(appID), nil, nil, nil)
	switch {
	case err == nil:
		return true, nil
	case upstream.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// RemoveApp deletes the application. A missing application is not an error.
func (c *Client) RemoveApp(ctx context.Context, appID string) error {
	err := c.api.Do(ctx, http.MethodDelete, c.appsPath()+"/"+url.PathEscape(appID), nil, nil, nil)
	if upstream.IsNotFound(err) {
		return nil
	}
	return err
}
