package manifest

import (
	"context"
	"fmt"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials of an authenticable entity (e.g. "users") for
// a bearer token that is sent with every later request.
func (c *Client) Login(ctx context.Context, entity, email, password string) error {
	var resp loginResponse
	path := "/api/auth/" + entity + "/login"
	if err := c.doJSON(ctx, "login", http.MethodPost, path, nil, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login response carried no token")
	}

	if err := c.tokens.Save(resp.Token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// Logout ends the session. Manifest sessions are stateless bearer tokens, so
// this discards the token locally and in the token store. It makes no request
// and ignores ctx.
func (c *Client) Logout(_ context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	if c.jar != nil {
		if err := c.jar.reset(); err != nil {
			return err
		}
	}

	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// Me fetches the profile of the authenticated entity into out.
func (c *Client) Me(ctx context.Context, entity string, out any) error {
	path := "/api/auth/" + entity + "/me"
	return c.do(ctx, "me", http.MethodGet, path, nil, nil, "", out)
}

// HasSession reports whether a token is loaded.
func (c *Client) HasSession() bool {
	return c.currentToken() != ""
}
