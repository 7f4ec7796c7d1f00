package auth

import (
	"context"
	"fmt"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/session"
	"github.com/recordshop/storefront/internal/validate"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

// Client exchanges credentials for a bearer token and populates the
// session context with the token's claims.
type Client struct {
	api     *api.Client
	session *session.Context
	logger  *logger.Logger
}

func NewClient(apiClient *api.Client, sess *session.Context, logg *logger.Logger) (*Client, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("api client required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session context required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{api: apiClient, session: sess, logger: logg}, nil
}

// Credentials is the login/register payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type tokenWire struct {
	Token      string `json:"token"`
	TokenUp    string `json:"Token"`
	AccessUp   string `json:"AccessToken"`
	Access     string `json:"accessToken"`
	DataHolder *struct {
		Token   string `json:"token"`
		TokenUp string `json:"Token"`
	} `json:"data"`
}

func (w tokenWire) token() string {
	for _, tok := range []string{w.TokenUp, w.Token, w.AccessUp, w.Access} {
		if tok != "" {
			return tok
		}
	}
	if w.DataHolder != nil {
		if w.DataHolder.TokenUp != "" {
			return w.DataHolder.TokenUp
		}
		return w.DataHolder.Token
	}
	return ""
}

// Login authenticates and installs the session: claims are decoded from
// the returned token, never trusted beyond display and routing decisions.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if err := validate.Struct(creds); err != nil {
		return err
	}

	var wire tokenWire
	if err := c.api.PostJSON(ctx, "auth/login", creds, &wire); err != nil {
		return err
	}
	token := wire.token()
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeMalformed, "login response carries no token")
	}

	if err := c.session.Login(token, creds.Email); err != nil {
		return err
	}
	c.logger.Info(c.logger.WithUserEmail(ctx, creds.Email), "user logged in")
	return nil
}

// Register creates an account; it does not log the user in.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	if err := validate.Struct(creds); err != nil {
		return err
	}
	if err := c.api.PostJSON(ctx, "auth/register", creds, nil); err != nil {
		return err
	}
	c.logger.Info(c.logger.WithUserEmail(ctx, creds.Email), "user registered")
	return nil
}

// Logout clears the session. Purely local; the token simply stops being
// attached to outgoing requests.
func (c *Client) Logout(ctx context.Context) {
	if user, ok := c.session.Current(); ok {
		c.logger.Info(c.logger.WithUserEmail(ctx, user.Email), "user logged out")
	}
	c.session.Logout()
}
