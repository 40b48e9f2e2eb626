package vaultcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/hairyhenderson/go-vaultcmd/schema"
	"github.com/hashicorp/vault/api"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// do runs one command invocation: prepare (validate + template), dispatch,
// then validate the response.
func (c *Client) do(ctx context.Context, def Definition, args Args, opts []CallOption) (any, error) {
	ctx, span := c.startSpan(ctx, def)
	defer span.End()

	log := c.log.WithFields(logrus.Fields{
		"command": def.Name,
		"method":  def.Method,
	})

	req, namespace, err := c.prepare(def, args, opts)
	if err != nil {
		log.WithError(err).Debug("vault command rejected before dispatch")

		return nil, recordError(span, err)
	}

	span.SetAttributes(PathAttr(req.URL.Path))
	log = log.WithField("path", req.URL.Path)

	log.Debug("dispatching vault command")

	payload, err := c.dispatch(ctx, req, namespace, span)
	if err != nil {
		log.WithError(err).Debug("vault request failed")

		return nil, recordError(span, err)
	}

	out, err := schema.At(schema.LocationResponse, def.ResponseSchema, payload)
	if err != nil {
		log.WithError(err).Debug("vault response failed validation")

		return nil, recordError(span, fmt.Errorf("%s %s: %w", def.Method, req.URL.Path, err))
	}

	return out, nil
}

// prepare validates args against def and builds the request, returning it
// with the namespace to send it in. Nothing is sent, so any error here means
// no request reached Vault.
func (c *Client) prepare(def Definition, args Args, opts []CallOption) (*api.Request, string, error) {
	b, err := splitArgs(def, args)
	if err != nil {
		return nil, "", err
	}

	pathArgs, err := validateBucket(schema.LocationPath, def.PathSchema, b.path, nil)
	if err != nil {
		return nil, "", err
	}

	resolved, err := ResolvePath(def.Path, pathArgs)
	if err != nil {
		return nil, "", err
	}

	carriesBody := hasBody(def.Method)

	var queryExtra, bodyExtra map[string]any
	if carriesBody {
		bodyExtra = b.extra
	} else {
		queryExtra = b.extra
	}

	query, err := validateBucket(schema.LocationQuery, def.QuerySchema, b.query, queryExtra)
	if err != nil {
		return nil, "", err
	}

	var body map[string]any

	if def.BodySchema != nil || len(bodyExtra) > 0 || len(b.body) > 0 {
		body, err = validateBucket(schema.LocationBody, def.BodySchema, b.body, bodyExtra)
		if err != nil {
			return nil, "", err
		}
	}

	call := newCallConfig(c.request, opts)

	token := c.Token()
	if call.token != nil {
		token = *call.token
	}

	namespace := c.Namespace()
	if call.namespace != nil {
		namespace = *call.namespace
	}

	req := c.api.NewRequest(def.Method, c.requestPath(resolved))
	if req.Headers == nil {
		req.Headers = http.Header{}
	}

	for k, vs := range call.headers {
		req.Headers.Del(k)

		for _, v := range vs {
			req.Headers.Add(k, v)
		}
	}

	req.ClientToken = token

	req.Params = mergeQuery(req.Params, call.query, query)

	if body != nil {
		if err := req.SetJSONBody(body); err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}

		req.Headers.Set("Content-Type", "application/json")
	}

	return req, namespace, nil
}

// requestPath composes prefix, API version and the resolved path
func (c *Client) requestPath(resolved string) string {
	return path.Join("/", c.pathPrefix, c.apiVersion, resolved)
}

// validateBucket validates one bucket of arguments, then adds the unclaimed
// extras. Validated values take precedence over extras of the same name.
func validateBucket(location string, v schema.Validator, bucket, extra map[string]any) (map[string]any, error) {
	validated, err := schema.At(location, v, bucket)
	if err != nil {
		return nil, err
	}

	out, ok := validated.(map[string]any)
	if !ok {
		return nil, schema.Errorf(location, "", "expected an object, got %T", validated)
	}

	if len(extra) == 0 {
		return out, nil
	}

	merged := make(map[string]any, len(out)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}

	for k, v := range out {
		merged[k] = v
	}

	return merged, nil
}

// mergeQuery layers query parameters: transport defaults, then per-call
// parameters, then validated query arguments.
func mergeQuery(base, call url.Values, args map[string]any) url.Values {
	out := url.Values{}

	for k, vs := range base {
		out[k] = append([]string(nil), vs...)
	}

	for k, vs := range call {
		out[k] = append([]string(nil), vs...)
	}

	for k, v := range args {
		out.Del(k)

		switch vv := v.(type) {
		case nil:
		case []any:
			for _, item := range vv {
				out.Add(k, queryValue(item))
			}
		default:
			out.Set(k, queryValue(vv))
		}
	}

	return out
}

// queryValue formats one argument for a query string or path segment.
// Numbers keep their exact text and are never written in exponent form.
func queryValue(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case json.Number:
		return vv.String()
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case map[string]any:
		b, _ := json.Marshal(vv)

		return string(b)
	default:
		return fmt.Sprint(vv)
	}
}

// dispatch sends req in the given namespace and decodes the JSON payload.
// Transport errors are wrapped, never replaced, so *api.ResponseError stays
// reachable.
func (c *Client) dispatch(ctx context.Context, req *api.Request, namespace string, span trace.Span) (any, error) {
	// the transport sets the namespace header from its own state, replacing
	// whatever the request carries
	//nolint:staticcheck // RawRequestWithContext is the only raw entry point
	resp, err := c.api.WithNamespace(namespace).RawRequestWithContext(ctx, req)
	if resp != nil {
		defer resp.Body.Close()

		span.SetAttributes(StatusCodeAttr(resp.StatusCode))
	}

	if err != nil {
		return nil, fmt.Errorf("http %s %s failed with: %w", req.Method, req.URL.Path, err)
	}

	return decodePayload(resp.Body)
}

// decodePayload decodes a JSON body. An empty body (204 No Content, as
// returned by sys/seal and most writes) decodes to an empty object.
func decodePayload(r io.Reader) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault response: %w", err)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]any{}, nil
	}

	var payload any
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse vault response: %w", err)
	}

	return payload, nil
}
