package vaultcmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hairyhenderson/go-vaultcmd/internal/env"
	"github.com/hashicorp/vault/api"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultEndpoint is used when neither Options.Endpoint nor $VAULT_ADDR
	// is set.
	DefaultEndpoint = "http://127.0.0.1:8200"
	// DefaultAPIVersion is used when Options.APIVersion is not set.
	DefaultAPIVersion = "v1"

	// NamespaceHeader carries the namespace on each request.
	NamespaceHeader = "X-Vault-Namespace"
)

// Client is a Vault client exposing a fixed set of typed commands, plus any
// number of commands attached with AssignCommands.
//
// A Client is safe for concurrent use. The token and namespace may be changed
// between (or during) calls with SetToken and SetNamespace.
type Client struct {
	endpoint   string
	apiVersion string
	pathPrefix string
	request    RequestDefaults

	api    *api.Client
	log    logrus.FieldLogger
	tracer trace.Tracer

	mu        sync.RWMutex
	token     string
	namespace string
	commands  map[string]Command

	sys sysCommands
}

// New creates a Client. See Options for the fallback rules applied to unset
// fields.
func New(opts Options) (*Client, error) {
	c := &Client{
		endpoint:   env.First(opts.Endpoint, env.Getenv(api.EnvVaultAddress), DefaultEndpoint),
		apiVersion: env.First(opts.APIVersion, DefaultAPIVersion),
		pathPrefix: opts.PathPrefix,
		token:      env.First(opts.Token, env.Getenv(api.EnvVaultToken)),
		namespace:  env.First(opts.Namespace, env.Getenv(api.EnvVaultNamespace)),
		log:        opts.Logger,
		commands:   map[string]Command{},
	}

	if opts.Request != nil {
		c.request = *opts.Request
	}

	if c.log == nil {
		c.log = logrus.StandardLogger()
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	c.tracer = tp.Tracer(tracerName)

	config, err := apiConfig(c.endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("vault configuration error: %w", err)
	}

	ac, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("vault client creation failed: %w", err)
	}

	// token and namespace are set per request from the Client's own state
	ac.ClearToken()
	ac.ClearNamespace()

	c.api = ac

	c.bindSys()
	c.AssignCommands(opts.Commands)

	return c, nil
}

func apiConfig(endpoint string, opts Options) (*api.Config, error) {
	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, config.Error
	}

	config.Address = endpoint
	config.MaxRetries = opts.MaxRetries

	if opts.HTTPClient != nil {
		config.HttpClient = opts.HTTPClient
	}

	return config, nil
}

// Endpoint returns the Vault server address.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// APIVersion returns the API version path segment (e.g. "v1").
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// PathPrefix returns the prefix prepended to every request path.
func (c *Client) PathPrefix() string {
	return c.pathPrefix
}

// Token returns the current token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// SetToken replaces the token used by subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// Namespace returns the current namespace.
func (c *Client) Namespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.namespace
}

// SetNamespace replaces the namespace used by subsequent calls.
func (c *Client) SetNamespace(namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.namespace = namespace
}

// Config returns a snapshot of the resolved connection settings.
func (c *Client) Config() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Options{
		Endpoint:   c.endpoint,
		APIVersion: c.apiVersion,
		PathPrefix: c.pathPrefix,
		Token:      c.token,
		Namespace:  c.namespace,
	}
}

// API returns a copy of the underlying Vault API client, configured with the
// Client's current token and namespace. Changes made to it do not affect c.
func (c *Client) API() (*api.Client, error) {
	ac, err := c.api.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone vault client: %w", err)
	}

	if token := c.Token(); token != "" {
		ac.SetToken(token)
	}

	if ns := c.Namespace(); ns != "" {
		ac.SetNamespace(ns)
	}

	return ac, nil
}

// AssignCommands generates a Command for each definition and attaches it to
// the client under the given name, replacing any command already attached
// under that name. The fixed methods (Status, Init, ...) are unaffected.
func (c *Client) AssignCommands(defs map[string]Definition) {
	generated := make(map[string]Command, len(defs))

	for name, def := range defs {
		if def.Name == "" {
			def.Name = name
		}

		generated[name] = c.Generate(def)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for name, cmd := range generated {
		c.commands[name] = cmd
	}
}

// Command returns the command attached under name.
func (c *Client) Command(name string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cmd, ok := c.commands[name]

	return cmd, ok
}

// Commands returns the sorted names of all attached commands.
func (c *Client) Commands() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Call invokes the command attached under name.
func (c *Client) Call(ctx context.Context, name string, args Args, opts ...CallOption) (any, error) {
	cmd, ok := c.Command(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownCommand, name,
			strings.Join(c.Commands(), ", "))
	}

	return cmd(ctx, args, opts...)
}

// AuthMethod obtains a token for a Client. See the vaultauth package for
// implementations.
type AuthMethod interface {
	Login(ctx context.Context, c *Client) (string, error)
}

// Login authenticates with m and sets the resulting token on the client.
func (c *Client) Login(ctx context.Context, m AuthMethod) error {
	token, err := m.Login(ctx, c)
	if err != nil {
		return fmt.Errorf("vault login failure: %w", err)
	}

	if token == "" {
		return fmt.Errorf("vault login failure: auth method returned an empty token")
	}

	c.SetToken(token)

	return nil
}
