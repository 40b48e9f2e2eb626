package vaultauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"testing/fstest"

	vaultcmd "github.com/hairyhenderson/go-vaultcmd"
	"github.com/hairyhenderson/go-vaultcmd/internal/tests/fakevault"
	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
	"github.com/hashicorp/vault/api/auth/userpass"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		"VAULT_ADDR", "VAULT_TOKEN", "VAULT_TOKEN_FILE", "VAULT_NAMESPACE",
		"VAULT_ROLE_ID", "VAULT_SECRET_ID", "VAULT_AUTH_APPROLE_MOUNT",
		"VAULT_AUTH_GITHUB_TOKEN", "VAULT_AUTH_GITHUB_MOUNT",
		"VAULT_AUTH_USERNAME", "VAULT_AUTH_PASSWORD", "VAULT_AUTH_USERPASS_MOUNT",
	} {
		t.Setenv(k, "")
	}
}

func testClient(t *testing.T, v *fakevault.Vault) *vaultcmd.Client {
	t.Helper()

	clearEnv(t)

	l := logrus.New()
	l.SetOutput(io.Discard)

	c, err := vaultcmd.New(vaultcmd.Options{Endpoint: v.URL(), Logger: l})
	require.NoError(t, err)

	return c
}

func TestAppRole(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	c.SetToken("stale")

	m, err := AppRole(fakevault.RoleID, &Secret{FromString: fakevault.SecretID})
	require.NoError(t, err)

	token, err := m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.AppRoleToken, token)

	req := v.LastRequest()
	assert.Equal(t, "/v1/auth/approle/login", req.Path)
	assert.Empty(t, req.Header.Get("X-Vault-Token"))
	assert.Equal(t, map[string]any{
		"role_id":   fakevault.RoleID,
		"secret_id": fakevault.SecretID,
	}, req.Body)

	m, err = AppRole(fakevault.RoleID, &Secret{FromString: "wrong"}, WithMountPath("elorppa"))
	require.NoError(t, err)

	_, err = m.Login(t.Context(), c)
	require.Error(t, err)
	assert.Equal(t, 400, vaultcmd.StatusCode(err))
	assert.Equal(t, "/v1/auth/elorppa/login", v.LastRequest().Path)

	_, err = AppRole("", &Secret{FromString: "x"})
	require.Error(t, err)
}

func TestUserPass(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	t.Setenv("TEST_VAULT_PASSWORD", fakevault.Password)

	m, err := UserPass(fakevault.Username, &Secret{FromEnv: "TEST_VAULT_PASSWORD"})
	require.NoError(t, err)

	require.NoError(t, c.Login(t.Context(), m))
	assert.Equal(t, fakevault.UserPassToken, c.Token())

	req := v.LastRequest()
	assert.Equal(t, "/v1/auth/userpass/login/"+fakevault.Username, req.Path)
	assert.Equal(t, map[string]any{"password": fakevault.Password}, req.Body)

	m, err = UserPass(fakevault.Username, &Secret{FromEnv: "TEST_VAULT_UNSET_PASSWORD"})
	require.NoError(t, err)

	n := len(v.Requests())

	_, err = m.Login(t.Context(), c)
	require.Error(t, err)
	assert.Len(t, v.Requests(), n)
}

func TestGitHub(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	_, err := GitHub(nil)
	require.Error(t, err)
	_, err = GitHub(&Secret{})
	require.Error(t, err)
	_, err = GitHub(&Secret{FromFile: "foo", FromEnv: "bar"})
	require.Error(t, err)
	_, err = GitHub(&Secret{FromFile: "foo", FromString: "bar"})
	require.Error(t, err)
	_, err = GitHub(&Secret{FromEnv: "foo", FromString: "bar"})
	require.Error(t, err)
	_, err = GitHub(&Secret{FromString: "x"}, WithMountPath(""))
	require.Error(t, err)

	m, err := GitHub(&Secret{FromString: fakevault.GitHubPAT})
	require.NoError(t, err)

	token, err := m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.GitHubToken, token)
	assert.Equal(t, "/v1/auth/github/login", v.LastRequest().Path)

	// from a file
	a, err := GitHub(&Secret{FromFile: "/etc/gh-token"}, WithMountPath("buhtig"))
	require.NoError(t, err)

	lm := a.(*loginMethod)
	lm.fsys = fstest.MapFS{"etc/gh-token": {Data: []byte("  " + fakevault.GitHubPAT + "\n")}}

	token, err = lm.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.GitHubToken, token)
	assert.Equal(t, "/v1/auth/buhtig/login", v.LastRequest().Path)

	lm.fsys = fstest.MapFS{}

	_, err = lm.Login(t.Context(), c)
	require.Error(t, err)
}

func TestLogin_EmptyCredentialIsRejected(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	m, err := GitHub(&Secret{FromEnv: "TEST_GH_TOKEN"})
	require.NoError(t, err)

	t.Setenv("TEST_GH_TOKEN", "")

	_, err = m.Login(t.Context(), c)
	require.Error(t, err)
	assert.Empty(t, v.Requests())
}

func TestToken(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	token, err := Token("explicit").Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "explicit", token)

	t.Setenv("VAULT_TOKEN", "fromenv")

	token, err = Token("").Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", token)

	t.Setenv("VAULT_TOKEN", "")
	t.Setenv("HOME", "/home/test")

	m := &tokenAuthMethod{fsys: fstest.MapFS{
		"home/test/.vault-token": {Data: []byte("fromfile\n")},
		"run/secrets/token":      {Data: []byte("fromsecret")},
	}}

	token, err = m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", token)

	t.Setenv("VAULT_TOKEN_FILE", "/run/secrets/token")

	token, err = m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "fromsecret", token)

	t.Setenv("VAULT_TOKEN_FILE", "")

	m.fsys = fstest.MapFS{}

	_, err = m.Login(t.Context(), c)
	require.Error(t, err)

	// the token method never talks to vault
	assert.Empty(t, v.Requests())
}

func TestFromAPI(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	ar, err := approle.NewAppRoleAuth(fakevault.RoleID, &approle.SecretID{FromString: fakevault.SecretID})
	require.NoError(t, err)

	require.NoError(t, c.Login(t.Context(), FromAPI(ar)))
	assert.Equal(t, fakevault.AppRoleToken, c.Token())
	assert.Equal(t, "/v1/auth/approle/login", v.LastRequest().Path)
	assert.Equal(t, http.MethodPut, v.LastRequest().Method)

	up, err := userpass.NewUserpassAuth(fakevault.Username, &userpass.Password{FromString: fakevault.Password})
	require.NoError(t, err)

	token, err := FromAPI(up).Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.UserPassToken, token)
	assert.Equal(t, "/v1/auth/userpass/login/"+fakevault.Username, v.LastRequest().Path)

	up, err = userpass.NewUserpassAuth(fakevault.Username, &userpass.Password{FromString: "nope"})
	require.NoError(t, err)

	_, err = FromAPI(up).Login(t.Context(), c)
	require.Error(t, err)

	_, err = FromAPI(nil).Login(t.Context(), c)
	require.Error(t, err)

	_, err = FromAPI(noTokenAuth{}).Login(t.Context(), c)
	require.Error(t, err)
}

type noTokenAuth struct{}

func (noTokenAuth) Login(context.Context, *api.Client) (*api.Secret, error) {
	return &api.Secret{}, nil
}

type countingAuth struct {
	token string
	err   error
	calls int
}

func (a *countingAuth) Login(context.Context, *vaultcmd.Client) (string, error) {
	a.calls++

	return a.token, a.err
}

func TestComposite(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	failing := &countingAuth{err: errors.New("nope")}
	working := &countingAuth{token: "good"}
	unused := &countingAuth{token: "unused"}

	m := Composite(nil, failing, working, unused)

	token, err := m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "good", token)
	assert.Same(t, working, m.(*compositeAuthMethod).chosen)

	token, err = m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "good", token)

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 2, working.calls)
	assert.Equal(t, 0, unused.calls)

	_, err = Composite(failing).Login(t.Context(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, err = Composite().Login(t.Context(), c)
	require.Error(t, err)
}

func TestEnv(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v)

	t.Setenv("VAULT_TOKEN", "foo")

	m := Env()
	token, err := m.Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "foo", token)
	assert.NotNil(t, m.(*compositeAuthMethod).chosen)

	t.Setenv("VAULT_ROLE_ID", fakevault.RoleID)
	t.Setenv("VAULT_SECRET_ID", fakevault.SecretID)

	token, err = Env().Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.AppRoleToken, token)

	// a failing approle login falls through to the next method
	t.Setenv("VAULT_SECRET_ID", "wrong")
	t.Setenv("VAULT_AUTH_USERNAME", fakevault.Username)
	t.Setenv("VAULT_AUTH_PASSWORD", fakevault.Password)

	token, err = Env().Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.UserPassToken, token)

	t.Setenv("VAULT_AUTH_GITHUB_TOKEN", fakevault.GitHubPAT)
	t.Setenv("VAULT_AUTH_GITHUB_MOUNT", "gh")

	token, err = Env().Login(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, fakevault.GitHubToken, token)
	assert.Equal(t, "/v1/auth/gh/login", v.LastRequest().Path)
}
