// Package vaultcmd is a typed client for the HashiCorp Vault HTTP API, built
// from declarative endpoint definitions.
//
// # Usage
//
// Create a [Client] with [New]. Unset options fall back to the $VAULT_ADDR,
// $VAULT_TOKEN and $VAULT_NAMESPACE environment variables (or files named by
// $VAULT_ADDR_FILE, $VAULT_TOKEN_FILE and $VAULT_NAMESPACE_FILE), and then to
// a local development server at http://127.0.0.1:8200:
//
//	c, err := vaultcmd.New(vaultcmd.Options{})
//	if err != nil {
//		return err
//	}
//
//	status, err := c.Status(ctx)
//
// The fixed commands are Status, Initialized, Init, Unseal, Seal, Mount,
// Unmount, Mounts, and the generic Read, Write and Delete, which take a Vault
// path (without the "/v1" prefix):
//
//	_, err = c.Write(ctx, vaultcmd.Args{
//		"path": "secret/data/app",
//		"data": map[string]any{"password": "hunter2"},
//	})
//
//	secret, err := c.Read(ctx, vaultcmd.Args{
//		"path":   "secret/data/app",
//		"engine": vaultcmd.EngineKV2,
//	})
//
// # Commands
//
// Every command is generated from a [Definition]: an HTTP method, a path
// template with {{placeholders}}, and optional schemas (see the schema
// package) for the path, query and body arguments and for the response.
// Arguments are validated, and the path template resolved, before anything
// is sent, so an invalid call never reaches Vault.
//
// Additional endpoints can be attached with [Client.AssignCommands] and
// invoked with [Client.Call], or generated directly with [Client.Generate]:
//
//	c.AssignCommands(map[string]vaultcmd.Definition{
//		"transit.encrypt": {
//			Method: http.MethodPost,
//			Path:   "/transit/encrypt/{{name}}",
//			BodySchema: schema.MustCompile(`
//	type: object
//	required: [plaintext]
//	properties:
//	  plaintext: {type: string}
//	`),
//		},
//	})
//
//	out, err := c.Call(ctx, "transit.encrypt", vaultcmd.Args{
//		"name":      "my-key",
//		"plaintext": base64.StdEncoding.EncodeToString([]byte("hi")),
//	})
//
// # Errors
//
// Arguments or responses that don't match their schema produce a
// [*schema.ValidationError] (see [IsValidationError]). Failures from Vault
// itself, or from the network, are returned wrapped, and
// [*github.com/hashicorp/vault/api.ResponseError] can be extracted with
// errors.As (see also [StatusCode]).
//
// # Observability
//
// Each command runs in an OpenTelemetry span named "vault.<command>", and is
// logged at debug level to the configured logrus logger. Tokens are never
// logged or recorded.
package vaultcmd
