package vaultauth

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	vaultcmd "github.com/hairyhenderson/go-vaultcmd"
	"github.com/hairyhenderson/go-vaultcmd/schema"
)

//nolint:gochecknoglobals
var (
	mountSchema = schema.MustCompile(`
type: object
required: [mount]
properties:
  mount:
    type: string
    minLength: 1
`)

	authResponse = schema.MustCompile(`
type: object
required: [auth]
properties:
  auth:
    type: object
    required: [client_token]
    properties:
      client_token:
        type: string
        minLength: 1
      accessor: {type: string}
      policies:
        type: array
        items: {type: string}
      lease_duration: {type: number}
      renewable: {type: boolean}
`)
)

// Login definitions for the methods in this package.
//
//nolint:gochecknoglobals
var (
	AppRoleDefinition = vaultcmd.Definition{
		Name:       "login.approle",
		Method:     http.MethodPost,
		Path:       "/auth/{{mount}}/login",
		PathSchema: mountSchema,
		BodySchema: schema.MustCompile(`
type: object
required: [role_id, secret_id]
properties:
  role_id:
    type: string
    minLength: 1
  secret_id: {type: string}
`),
		ResponseSchema: authResponse,
		Strict:         true,
	}

	UserPassDefinition = vaultcmd.Definition{
		Name:   "login.userpass",
		Method: http.MethodPost,
		Path:   "/auth/{{mount}}/login/{{username}}",
		PathSchema: schema.MustCompile(`
type: object
required: [mount, username]
properties:
  mount:
    type: string
    minLength: 1
  username:
    type: string
    minLength: 1
`),
		BodySchema: schema.MustCompile(`
type: object
required: [password]
properties:
  password: {type: string}
`),
		ResponseSchema: authResponse,
		Strict:         true,
	}

	GitHubDefinition = vaultcmd.Definition{
		Name:       "login.github",
		Method:     http.MethodPost,
		Path:       "/auth/{{mount}}/login",
		PathSchema: mountSchema,
		BodySchema: schema.MustCompile(`
type: object
required: [token]
properties:
  token:
    type: string
    minLength: 1
`),
		ResponseSchema: authResponse,
		Strict:         true,
	}
)

type authResult struct {
	Auth struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
}

// LoginOption configures the AppRole, UserPass and GitHub auth methods.
type LoginOption func(m *loginMethod) error

// WithMountPath sets the path the auth method is mounted at. The defaults
// are "approle", "userpass" and "github".
func WithMountPath(mountPath string) LoginOption {
	return func(m *loginMethod) error {
		if mountPath == "" {
			return fmt.Errorf("mount path must not be empty")
		}

		m.mountPath = mountPath

		return nil
	}
}

// loginMethod logs in by calling a generated login command, with a
// credential read at login time
type loginMethod struct {
	fsys      fs.FS
	secret    *Secret
	args      func(secret string) vaultcmd.Args
	def       vaultcmd.Definition
	mountPath string
}

func newLoginMethod(def vaultcmd.Definition, mountPath string, secret *Secret,
	args func(string) vaultcmd.Args, opts []LoginOption,
) (vaultcmd.AuthMethod, error) {
	if err := secret.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s credential: %w", def.Name, err)
	}

	m := &loginMethod{
		fsys:      os.DirFS("/"),
		secret:    secret,
		args:      args,
		def:       def,
		mountPath: mountPath,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("error from %s login option: %w", def.Name, err)
		}
	}

	return m, nil
}

func (m *loginMethod) Login(ctx context.Context, c *vaultcmd.Client) (string, error) {
	secret, err := m.secret.read(m.fsys)
	if err != nil {
		return "", fmt.Errorf("%s: %w", m.def.Name, err)
	}

	args := m.args(secret)
	args["mount"] = m.mountPath

	// logging in never uses an existing token
	out, err := vaultcmd.Typed[authResult](c.Generate(m.def))(ctx, args, vaultcmd.WithToken(""))
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", m.def.Name, err)
	}

	return out.Auth.ClientToken, nil
}

// AppRole authenticates with the AppRole auth method.
//
// See also https://developer.hashicorp.com/vault/docs/auth/approle
func AppRole(roleID string, secretID *Secret, opts ...LoginOption) (vaultcmd.AuthMethod, error) {
	if roleID == "" {
		return nil, fmt.Errorf("approle auth method requires a role ID")
	}

	return newLoginMethod(AppRoleDefinition, "approle", secretID, func(s string) vaultcmd.Args {
		return vaultcmd.Args{"role_id": roleID, "secret_id": s}
	}, opts)
}

// UserPass authenticates with the userpass auth method.
//
// See also https://developer.hashicorp.com/vault/docs/auth/userpass
func UserPass(username string, password *Secret, opts ...LoginOption) (vaultcmd.AuthMethod, error) {
	if username == "" {
		return nil, fmt.Errorf("userpass auth method requires a username")
	}

	return newLoginMethod(UserPassDefinition, "userpass", password, func(s string) vaultcmd.Args {
		return vaultcmd.Args{"username": username, "password": s}
	}, opts)
}

// GitHub authenticates with the GitHub auth method, using a GitHub personal
// access token.
//
// See also https://developer.hashicorp.com/vault/docs/auth/github
func GitHub(token *Secret, opts ...LoginOption) (vaultcmd.AuthMethod, error) {
	return newLoginMethod(GitHubDefinition, "github", token, func(s string) vaultcmd.Args {
		return vaultcmd.Args{"token": s}
	}, opts)
}
