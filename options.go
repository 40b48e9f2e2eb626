package vaultcmd

import (
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Options configures a Client. The zero value is usable: unset fields fall
// back to the environment, then to built-in defaults.
type Options struct {
	// Endpoint is the Vault server address. Defaults to $VAULT_ADDR, then
	// DefaultEndpoint.
	Endpoint string
	// APIVersion is the path segment after the prefix. Defaults to
	// DefaultAPIVersion.
	APIVersion string
	// PathPrefix is prepended to every request path, for Vault servers
	// behind a reverse proxy. Defaults to "".
	PathPrefix string
	// Token is the Vault token. Defaults to $VAULT_TOKEN.
	Token string
	// Namespace is the Vault Enterprise namespace. Defaults to
	// $VAULT_NAMESPACE.
	Namespace string

	// Request holds headers and query parameters sent with every call.
	Request *RequestDefaults

	// HTTPClient overrides the HTTP client used by the Vault API transport.
	HTTPClient *http.Client
	// MaxRetries is handed to the transport. The default of 0 disables
	// retries.
	MaxRetries int

	// Logger receives debug-level logs for each call. Defaults to
	// logrus.StandardLogger().
	Logger logrus.FieldLogger
	// TracerProvider is used to create spans for each call. Defaults to the
	// global provider.
	TracerProvider trace.TracerProvider

	// Commands are generated and attached at construction time, as with
	// AssignCommands.
	Commands map[string]Definition
}

// RequestDefaults are merged into every request a Client makes.
type RequestDefaults struct {
	Headers http.Header
	Query   url.Values
}

// CallOption adjusts a single command invocation. Call options are merged
// over the Client's defaults, never replacing them wholesale.
type CallOption func(*callConfig)

type callConfig struct {
	headers   http.Header
	query     url.Values
	token     *string
	namespace *string
}

func newCallConfig(defaults RequestDefaults, opts []CallOption) *callConfig {
	cfg := &callConfig{
		headers: defaults.Headers.Clone(),
		query:   url.Values{},
	}

	if cfg.headers == nil {
		cfg.headers = http.Header{}
	}

	for k, vs := range defaults.Query {
		cfg.query[k] = append([]string(nil), vs...)
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithHeader sets a request header for this call, replacing any default
// value for the same header.
func WithHeader(key, value string) CallOption {
	return func(cfg *callConfig) {
		cfg.headers.Set(key, value)
	}
}

// WithQuery sets a query parameter for this call, replacing any default value
// for the same parameter.
func WithQuery(key, value string) CallOption {
	return func(cfg *callConfig) {
		cfg.query.Set(key, value)
	}
}

// WithToken overrides the Client's token for this call. An empty token sends
// no token at all.
func WithToken(token string) CallOption {
	return func(cfg *callConfig) {
		cfg.token = &token
	}
}

// WithNamespace overrides the Client's namespace for this call.
func WithNamespace(namespace string) CallOption {
	return func(cfg *callConfig) {
		cfg.namespace = &namespace
	}
}
