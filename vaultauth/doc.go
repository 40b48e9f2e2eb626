// Package vaultauth provides auth methods for a
// [*github.com/hairyhenderson/go-vaultcmd.Client]. Pass one to the client's
// Login method to obtain a token:
//
//	err := client.Login(ctx, vaultauth.Env())
//
// The AppRole, UserPass and GitHub methods are themselves generated commands,
// so their arguments and responses are validated like any other. Any auth
// method from the Vault API can be adapted with [FromAPI], for example:
//   - [github.com/hashicorp/vault/api/auth/approle]
//   - [github.com/hashicorp/vault/api/auth/kubernetes]
//   - [github.com/hashicorp/vault/api/auth/userpass]
package vaultauth
