package vaultauth

import (
	vaultcmd "github.com/hairyhenderson/go-vaultcmd"
	"github.com/hairyhenderson/go-vaultcmd/internal/env"
	"github.com/hashicorp/vault/api/auth/approle"
	"github.com/hashicorp/vault/api/auth/userpass"
)

// Env configures the auth method based on environment variables. It will
// attempt to authenticate with the following four methods, in order of
// precedence:
//
// # approle
//
// The [github.com/hashicorp/vault/api/auth/approle.NewAppRoleAuth] is called,
// using the roleID from $VAULT_ROLE_ID and the secretID from $VAULT_SECRET_ID.
// The default mount path can be overridden with $VAULT_AUTH_APPROLE_MOUNT.
//
// # github
//
// The [GitHub] method is used, with the token from $VAULT_AUTH_GITHUB_TOKEN.
// The default mount path can be overridden with $VAULT_AUTH_GITHUB_MOUNT.
//
// # userpass
//
// The [github.com/hashicorp/vault/api/auth/userpass.NewUserpassAuth] is called,
// using the username from $VAULT_AUTH_USERNAME and the password from
// $VAULT_AUTH_PASSWORD. The default mount path can be overridden with
// $VAULT_AUTH_USERPASS_MOUNT.
//
// # token
//
// The [Token] method is used, with the token from $VAULT_TOKEN, or the token
// contained in $HOME/.vault-token.
func Env() vaultcmd.AuthMethod {
	return Composite(
		envAppRoleAdapter(),
		envGitHubAdapter(),
		envUserPassAdapter(),
		Token(""),
	)
}

// envAppRoleAdapter builds an AppRoleAuth from environment variables, for use
// only with [Env]
func envAppRoleAdapter() vaultcmd.AuthMethod {
	roleID := env.Getenv("VAULT_ROLE_ID")
	if roleID == "" {
		return nil
	}

	secretID := &approle.SecretID{FromEnv: "VAULT_SECRET_ID"}

	var opts []approle.LoginOption

	if mountPath := env.Getenv("VAULT_AUTH_APPROLE_MOUNT"); mountPath != "" {
		opts = []approle.LoginOption{approle.WithMountPath(mountPath)}
	}

	a, err := approle.NewAppRoleAuth(roleID, secretID, opts...)
	if err != nil {
		return nil
	}

	return FromAPI(a)
}

// envGitHubAdapter builds a GitHub auth method from environment variables,
// for use only with [Env]
func envGitHubAdapter() vaultcmd.AuthMethod {
	if env.Getenv("VAULT_AUTH_GITHUB_TOKEN") == "" {
		return nil
	}

	var opts []LoginOption

	if mountPath := env.Getenv("VAULT_AUTH_GITHUB_MOUNT"); mountPath != "" {
		opts = []LoginOption{WithMountPath(mountPath)}
	}

	a, err := GitHub(&Secret{FromEnv: "VAULT_AUTH_GITHUB_TOKEN"}, opts...)
	if err != nil {
		return nil
	}

	return a
}

// envUserPassAdapter builds a UserPassAuth from environment variables, for use
// only with [Env]
func envUserPassAdapter() vaultcmd.AuthMethod {
	username := env.Getenv("VAULT_AUTH_USERNAME")
	if username == "" {
		return nil
	}

	password := &userpass.Password{FromEnv: "VAULT_AUTH_PASSWORD"}

	var opts []userpass.LoginOption

	if mountPath := env.Getenv("VAULT_AUTH_USERPASS_MOUNT"); mountPath != "" {
		opts = []userpass.LoginOption{userpass.WithMountPath(mountPath)}
	}

	a, err := userpass.NewUserpassAuth(username, password, opts...)
	if err != nil {
		return nil
	}

	return FromAPI(a)
}
