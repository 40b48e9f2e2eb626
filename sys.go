package vaultcmd

import (
	"context"
	"net/http"

	"github.com/hairyhenderson/go-vaultcmd/schema"
)

// SealStatus is returned by Status.
//
// See https://developer.hashicorp.com/vault/api-docs/system/seal-status
type SealStatus struct {
	Type         string `json:"type"`
	Initialized  bool   `json:"initialized"`
	Sealed       bool   `json:"sealed"`
	T            int    `json:"t"`
	N            int    `json:"n"`
	Progress     int    `json:"progress"`
	Nonce        string `json:"nonce"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	Migration    bool   `json:"migration"`
	RecoverySeal bool   `json:"recovery_seal"`
	StorageType  string `json:"storage_type"`
}

// InitRequest is the body of an Init call. SecretShares and SecretThreshold
// are required.
//
// See https://developer.hashicorp.com/vault/api-docs/system/init
type InitRequest struct {
	PGPKeys           []string `json:"pgp_keys,omitempty"`
	RootTokenPGPKey   string   `json:"root_token_pgp_key,omitempty"`
	SecretShares      int      `json:"secret_shares,omitempty"`
	SecretThreshold   int      `json:"secret_threshold,omitempty"`
	StoredShares      int      `json:"stored_shares,omitempty"`
	RecoveryShares    int      `json:"recovery_shares,omitempty"`
	RecoveryThreshold int      `json:"recovery_threshold,omitempty"`
	RecoveryPGPKeys   []string `json:"recovery_pgp_keys,omitempty"`
}

// InitResponse holds the unseal keys and root token produced by Init. This is
// the only time Vault returns them.
type InitResponse struct {
	Keys       []string `json:"keys"`
	KeysBase64 []string `json:"keys_base64"`
	RootToken  string   `json:"root_token"`
}

// UnsealRequest is the body of an Unseal call.
//
// See https://developer.hashicorp.com/vault/api-docs/system/unseal
type UnsealRequest struct {
	Key     string `json:"key,omitempty"`
	Reset   bool   `json:"reset,omitempty"`
	Migrate bool   `json:"migrate,omitempty"`
}

// UnsealResponse is returned by Unseal. ClusterName and ClusterID are only
// set once the Vault is unsealed.
type UnsealResponse struct {
	Sealed      bool   `json:"sealed"`
	T           int    `json:"t"`
	N           int    `json:"n"`
	Progress    int    `json:"progress"`
	Version     string `json:"version"`
	ClusterName string `json:"cluster_name,omitempty"`
	ClusterID   string `json:"cluster_id,omitempty"`
}

// MountRequest is the body of a Mount call. Type is required.
//
// See https://developer.hashicorp.com/vault/api-docs/system/mounts
type MountRequest struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Config      map[string]any    `json:"config,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	Local       bool              `json:"local,omitempty"`
	SealWrap    bool              `json:"seal_wrap,omitempty"`
}

//nolint:gochecknoglobals
var (
	sealStatusResponse = schema.MustCompile(`
type: object
required: [type, initialized, sealed, t, "n", progress, nonce, version,
  build_date, migration, recovery_seal, storage_type]
properties:
  type: {type: string}
  initialized: {type: boolean}
  sealed: {type: boolean}
  t: {type: number}
  "n": {type: number}
  progress: {type: number}
  nonce: {type: string}
  version: {type: string}
  build_date: {type: string}
  migration: {type: boolean}
  recovery_seal: {type: boolean}
  storage_type: {type: string}
`)

	initStatusResponse = schema.MustCompile(`
type: object
required: [initialized]
properties:
  initialized: {type: boolean}
`)

	initBody = schema.MustCompile(`
type: object
required: [secret_shares, secret_threshold]
properties:
  pgp_keys:
    type: array
    items: {type: string}
  root_token_pgp_key:
    type: string
    default: ""
  secret_shares: {type: number}
  secret_threshold: {type: number}
  stored_shares: {type: number}
  recovery_shares:
    type: number
    default: 0
  recovery_threshold:
    type: number
    default: 0
  recovery_pgp_keys:
    type: array
    items: {type: string}
`)

	initResponse = schema.MustCompile(`
type: object
required: [keys, keys_base64, root_token]
properties:
  keys:
    type: array
    items: {type: string}
  keys_base64:
    type: array
    items: {type: string}
  root_token: {type: string}
`)

	unsealBody = schema.MustCompile(`
type: object
required: [key]
properties:
  key: {type: string}
  reset:
    type: boolean
    default: false
  migrate:
    type: boolean
    default: false
`)

	unsealResponse = schema.OneOf("sealed", map[any]schema.Validator{
		true: schema.MustCompile(`
type: object
required: [sealed, t, "n", progress, version]
properties:
  sealed: {type: boolean}
  t: {type: number}
  "n": {type: number}
  progress: {type: number}
  version: {type: string}
`),
		false: schema.MustCompile(`
type: object
required: [sealed, t, "n", progress, version, cluster_name, cluster_id]
properties:
  sealed: {type: boolean}
  t: {type: number}
  "n": {type: number}
  progress: {type: number}
  version: {type: string}
  cluster_name: {type: string}
  cluster_id: {type: string}
`),
	})

	secretPath = schema.MustCompile(`
type: object
required: [path]
properties:
  path:
    type: string
    minLength: 1
`)

	mountBody = schema.MustCompile(`
type: object
required: [type]
properties:
  type:
    type: string
    minLength: 1
  description: {type: string}
  config: {type: object}
  options:
    type: object
    additionalProperties: {type: string}
  local: {type: boolean}
  seal_wrap: {type: boolean}
`)
)

// Definitions of the fixed commands. These are exported so they can be
// reused (e.g. with a different path prefix) through AssignCommands.
//
//nolint:gochecknoglobals
var (
	StatusDefinition = Definition{
		Name:           "status",
		Method:         http.MethodGet,
		Path:           "/sys/seal-status",
		ResponseSchema: sealStatusResponse,
	}

	InitializedDefinition = Definition{
		Name:           "initialized",
		Method:         http.MethodGet,
		Path:           "/sys/init",
		ResponseSchema: initStatusResponse,
	}

	InitDefinition = Definition{
		Name:           "init",
		Method:         http.MethodPost,
		Path:           "/sys/init",
		BodySchema:     initBody,
		ResponseSchema: initResponse,
	}

	UnsealDefinition = Definition{
		Name:           "unseal",
		Method:         http.MethodPost,
		Path:           "/sys/unseal",
		BodySchema:     unsealBody,
		ResponseSchema: unsealResponse,
	}

	SealDefinition = Definition{
		Name:           "seal",
		Method:         http.MethodPost,
		Path:           "/sys/seal",
		ResponseSchema: schema.Object(),
	}

	MountDefinition = Definition{
		Name:           "mount",
		Method:         http.MethodPost,
		Path:           "/sys/mounts/{{path}}",
		PathSchema:     secretPath,
		BodySchema:     mountBody,
		ResponseSchema: schema.Object(),
	}

	UnmountDefinition = Definition{
		Name:           "unmount",
		Method:         http.MethodDelete,
		Path:           "/sys/mounts/{{path}}",
		PathSchema:     secretPath,
		ResponseSchema: schema.Object(),
	}

	MountsDefinition = Definition{
		Name:           "mounts",
		Method:         http.MethodGet,
		Path:           "/sys/mounts",
		ResponseSchema: schema.Object(),
	}
)

type sysCommands struct {
	status, initialized, init, unseal, seal Command
	mount, unmount, mounts                  Command
	write, delete                           Command
}

// bindSys generates the fixed commands and registers them by name, so they
// can also be reached with Call.
func (c *Client) bindSys() {
	c.sys = sysCommands{
		status:      c.Generate(StatusDefinition),
		initialized: c.Generate(InitializedDefinition),
		init:        c.Generate(InitDefinition),
		unseal:      c.Generate(UnsealDefinition),
		seal:        c.Generate(SealDefinition),
		mount:       c.Generate(MountDefinition),
		unmount:     c.Generate(UnmountDefinition),
		mounts:      c.Generate(MountsDefinition),
		write:       c.Generate(WriteDefinition),
		delete:      c.Generate(DeleteDefinition),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.commands["status"] = c.sys.status
	c.commands["initialized"] = c.sys.initialized
	c.commands["init"] = c.sys.init
	c.commands["unseal"] = c.sys.unseal
	c.commands["seal"] = c.sys.seal
	c.commands["mount"] = c.sys.mount
	c.commands["unmount"] = c.sys.unmount
	c.commands["mounts"] = c.sys.mounts
	c.commands["write"] = c.sys.write
	c.commands["delete"] = c.sys.delete
	c.commands["read"] = c.readCommand
}

// Status returns the seal status of the Vault.
func (c *Client) Status(ctx context.Context, opts ...CallOption) (*SealStatus, error) {
	return Typed[SealStatus](c.sys.status)(ctx, nil, opts...)
}

// Initialized reports whether the Vault has been initialized.
func (c *Client) Initialized(ctx context.Context, opts ...CallOption) (bool, error) {
	out, err := Typed[struct {
		Initialized bool `json:"initialized"`
	}](c.sys.initialized)(ctx, nil, opts...)
	if err != nil {
		return false, err
	}

	return out.Initialized, nil
}

// Init initializes a new Vault. The returned keys and root token are not
// stored anywhere - the caller must keep them. The Client's token is left
// unchanged; use SetToken with the root token to continue as root.
func (c *Client) Init(ctx context.Context, req *InitRequest, opts ...CallOption) (*InitResponse, error) {
	args, err := toArgs(req)
	if err != nil {
		return nil, err
	}

	return Typed[InitResponse](c.sys.init)(ctx, args, opts...)
}

// Unseal submits one unseal key.
func (c *Client) Unseal(ctx context.Context, req *UnsealRequest, opts ...CallOption) (*UnsealResponse, error) {
	args, err := toArgs(req)
	if err != nil {
		return nil, err
	}

	return Typed[UnsealResponse](c.sys.unseal)(ctx, args, opts...)
}

// Seal seals the Vault.
func (c *Client) Seal(ctx context.Context, opts ...CallOption) error {
	_, err := c.sys.seal(ctx, nil, opts...)

	return err
}

// Mount enables a secrets engine at path.
func (c *Client) Mount(ctx context.Context, path string, req *MountRequest, opts ...CallOption) error {
	args, err := toArgs(req)
	if err != nil {
		return err
	}

	args["path"] = path

	_, err = c.sys.mount(ctx, args, opts...)

	return err
}

// Unmount disables the secrets engine at path.
func (c *Client) Unmount(ctx context.Context, path string, opts ...CallOption) error {
	_, err := c.sys.unmount(ctx, Args{"path": path}, opts...)

	return err
}

// Mounts lists the mounted secrets engines, keyed by path.
func (c *Client) Mounts(ctx context.Context, opts ...CallOption) (map[string]any, error) {
	out, err := c.sys.mounts(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}

	m, _ := out.(map[string]any)

	// newer Vaults duplicate the listing under "data"
	if data, ok := m["data"].(map[string]any); ok {
		return data, nil
	}

	return m, nil
}
