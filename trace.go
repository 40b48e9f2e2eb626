package vaultcmd

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-vaultcmd"

const (
	commandKey      = attribute.Key("vault.command")
	methodKey       = attribute.Key("vault.method")
	pathTemplateKey = attribute.Key("vault.path_template")
	pathKey         = attribute.Key("vault.path")
	statusCodeKey   = attribute.Key("http.status_code")
)

// The name of the invoked command.
//
// Type: string
// Examples: "status", "unseal", "kv.get"
func CommandAttr(name string) attribute.KeyValue {
	return commandKey.String(name)
}

// The HTTP method of the request.
//
// Type: string
// Examples: "GET", "POST"
func MethodAttr(method string) attribute.KeyValue {
	return methodKey.String(method)
}

// The unresolved path template of the command.
//
// Type: string
// Examples: "/sys/seal-status", "/{{path}}"
func PathTemplateAttr(tmpl string) attribute.KeyValue {
	return pathTemplateKey.String(tmpl)
}

// The resolved request path, including prefix and API version.
//
// Type: string
// Examples: "/v1/secret/data/foo"
func PathAttr(p string) attribute.KeyValue {
	return pathKey.String(p)
}

// The HTTP status code of the response.
//
// Type: int
// Examples: 200, 404
func StatusCodeAttr(code int) attribute.KeyValue {
	return statusCodeKey.Int(code)
}

func (c *Client) startSpan(ctx context.Context, def Definition) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "vault."+def.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			CommandAttr(def.Name),
			MethodAttr(def.Method),
			PathTemplateAttr(def.Path),
		),
	)
}

func recordError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
