package vaultauth

import (
	"context"
	"fmt"
	"sync"

	vaultcmd "github.com/hairyhenderson/go-vaultcmd"
)

// Composite returns an AuthMethod that will try each of the given methods in
// order, until one succeeds. Nil methods are skipped. Once a method has
// succeeded it is used for every later login.
func Composite(methods ...vaultcmd.AuthMethod) vaultcmd.AuthMethod {
	return &compositeAuthMethod{methods: methods}
}

type compositeAuthMethod struct {
	chosen  vaultcmd.AuthMethod
	methods []vaultcmd.AuthMethod
	mu      sync.Mutex
}

func (m *compositeAuthMethod) Login(ctx context.Context, c *vaultcmd.Client) (token string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.chosen != nil {
		return m.chosen.Login(ctx, c)
	}

	for _, auth := range m.methods {
		if auth == nil {
			continue
		}

		token, err = auth.Login(ctx, c)
		if err == nil {
			m.chosen = auth

			return token, nil
		}
	}

	if err == nil {
		err = fmt.Errorf("no auth methods configured")
	}

	return "", fmt.Errorf("unable to authenticate with vault by any configured method. Last error was: %w", err)
}
