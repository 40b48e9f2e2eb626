package vaultauth

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	vaultcmd "github.com/hairyhenderson/go-vaultcmd"
	"github.com/hairyhenderson/go-vaultcmd/internal/env"
)

// Token authenticates with the given token, or if none is provided, attempts
// to read from the $VAULT_TOKEN environment variable (or the file named by
// $VAULT_TOKEN_FILE), or the $HOME/.vault-token file.
//
// See also https://developer.hashicorp.com/vault/docs/auth/token
func Token(token string) vaultcmd.AuthMethod {
	return &tokenAuthMethod{token: token, fsys: os.DirFS("/")}
}

type tokenAuthMethod struct {
	fsys  fs.FS
	token string
}

func (m *tokenAuthMethod) Login(_ context.Context, _ *vaultcmd.Client) (string, error) {
	if m.token != "" {
		return m.token, nil
	}

	// maybe $VAULT_TOKEN is set?
	if token := env.GetenvFS(m.fsys, "VAULT_TOKEN"); token != "" {
		return token, nil
	}

	// ok, let's try $HOME/.vault-token
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	p := path.Join(homeDir, ".vault-token")
	p = strings.TrimPrefix(p, "/")

	b, err := fs.ReadFile(m.fsys, p)
	if err != nil {
		return "", fmt.Errorf("readFile %q: %w", p, err)
	}

	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("token file %q is empty", p)
	}

	return token, nil
}
