package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// The legacy identity server emits the role under the WS-2008 claim URI;
// newer tokens use a plain "role" claim. Both are accepted, in that order.
const msRoleClaimURI = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

const (
	RoleAdmin   = "Admin"
	RoleDefault = "User"
)

var (
	ErrNotLoggedIn  = errors.New("no active session")
	ErrTokenInvalid = errors.New("bearer token could not be decoded")
)

// User is the identity attached to the current session.
type User struct {
	Email string
	Role  string
}

// Context holds the process-wide authentication state: the bearer token and
// the claims decoded from it. It is created once at startup, populated by
// Login, and cleared by Logout; clients receive it as their token source
// instead of reading ambient state.
//
// The token is decoded without signature verification. The client never
// holds the signing key; the server re-validates the token on every call.
type Context struct {
	mu       sync.RWMutex
	token    string
	user     User
	cartID   int
	hasCart  bool
	loggedIn bool
}

func NewContext() *Context {
	return &Context{}
}

// Login installs the bearer token and decodes its role and cart-id claims.
// A token that cannot be decoded leaves the session logged out.
func (c *Context) Login(token, email string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrTokenInvalid
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(trimmed, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	cartID, hasCart := cartIDClaim(claims)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = trimmed
	c.user = User{Email: email, Role: roleClaim(claims)}
	c.cartID = cartID
	c.hasCart = hasCart
	c.loggedIn = true
	return nil
}

// Logout clears the session. Safe to call when already logged out.
func (c *Context) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.user = User{}
	c.cartID = 0
	c.hasCart = false
	c.loggedIn = false
}

// Current returns the logged-in user, if any.
func (c *Context) Current() (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.loggedIn
}

// Token returns the bearer token, or "" when logged out. Satisfies the API
// client's token source.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Context) IsLoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

func (c *Context) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.Role
}

func (c *Context) IsAdmin() bool {
	return strings.EqualFold(c.Role(), RoleAdmin)
}

// CartID returns the cart id claim carried by the token.
func (c *Context) CartID() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cartID, c.hasCart
}

func roleClaim(claims jwt.MapClaims) string {
	if role, ok := claims[msRoleClaimURI].(string); ok && role != "" {
		return role
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		return role
	}
	return RoleDefault
}

// cartIDClaim tolerates both numeric and string encodings of CartId.
func cartIDClaim(claims jwt.MapClaims) (int, bool) {
	raw, ok := claims["CartId"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
