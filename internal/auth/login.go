package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/catalog-browser/internal/httpclient"
)

// Credentials are exchanged for an API token by Login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the account the token belongs to
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ErrNoToken is returned when the auth endpoint accepts the credentials but
// hands out no token
var ErrNoToken = errors.New("login response carried no token")

// Login posts creds to endpoint and stores the returned token in store.
// The store is left untouched when the login fails.
func Login(ctx context.Context, client httpclient.Client, endpoint string, creds Credentials, store TokenStore) (User, error) {
	if creds.Email == "" || creds.Password == "" {
		return User{}, errors.New("email and password are required")
	}

	resp, err := httpclient.PostJSON[loginResponse](ctx, client, endpoint, creds)
	if err != nil {
		if httpErr, ok := httpclient.AsHTTPError(err); ok {
			return User{}, fmt.Errorf("login failed: %s", httpErr.UserMessage())
		}
		return User{}, fmt.Errorf("login failed: %w", err)
	}
	if resp.Token == "" {
		return User{}, ErrNoToken
	}

	if err := store.SetToken(resp.Token); err != nil {
		return User{}, fmt.Errorf("failed to store token: %w", err)
	}
	return resp.User, nil
}
