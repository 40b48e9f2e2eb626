package vaultauth

import (
	"context"
	"errors"
	"fmt"

	vaultcmd "github.com/hairyhenderson/go-vaultcmd"
	"github.com/hashicorp/vault/api"
)

// FromAPI adapts an auth method from the Vault API (see for example
// [github.com/hashicorp/vault/api/auth/approle]) for use with a Client.
//
// The method runs against a copy of the Client's underlying API client, so
// the Client's path prefix is not applied.
func FromAPI(m api.AuthMethod) vaultcmd.AuthMethod {
	return &apiAuthMethod{m: m}
}

type apiAuthMethod struct {
	m api.AuthMethod
}

func (a *apiAuthMethod) Login(ctx context.Context, c *vaultcmd.Client) (string, error) {
	if a.m == nil {
		return "", errors.New("no auth method configured")
	}

	ac, err := c.API()
	if err != nil {
		return "", err
	}

	// logging in never uses an existing token
	ac.ClearToken()

	secret, err := a.m.Login(ctx, ac)
	if err != nil {
		return "", fmt.Errorf("vault login failed: %w", err)
	}

	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return "", errors.New("vault login returned no token")
	}

	return secret.Auth.ClientToken, nil
}
