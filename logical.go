package vaultcmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hairyhenderson/go-vaultcmd/schema"
)

// EngineArg is the argument to Read that selects an engine's schemas. It is
// never sent to Vault.
const EngineArg = "engine"

// Definitions of the generic write and delete commands.
//
//nolint:gochecknoglobals
var (
	WriteDefinition = Definition{
		Name:           "write",
		Method:         http.MethodPost,
		Path:           "/{{path}}",
		PathSchema:     secretPath,
		BodySchema:     schema.Any(),
		ResponseSchema: schema.Object(),
	}

	DeleteDefinition = Definition{
		Name:           "delete",
		Method:         http.MethodDelete,
		Path:           "/{{path}}",
		PathSchema:     secretPath,
		ResponseSchema: schema.Object(),
	}
)

// readDefinition builds the definition for one Read call - the schemas depend
// on the engine named in the call's arguments.
func readDefinition(engine EngineName) Definition {
	e := Engine(engine)

	name := "read"
	if engine != "" {
		name += "." + string(engine)
	}

	return Definition{
		Name:           name,
		Method:         http.MethodGet,
		Path:           "/{{path}}",
		PathSchema:     secretPath,
		QuerySchema:    e.Query,
		ResponseSchema: e.Response,
	}
}

// Read reads the secret at args["path"]. If args["engine"] names a known
// engine (see EngineName), that engine's schemas validate the query and the
// response; otherwise any object is accepted. Remaining arguments are sent as
// query parameters.
func (c *Client) Read(ctx context.Context, args Args, opts ...CallOption) (map[string]any, error) {
	out, err := c.readCommand(ctx, args, opts...)
	if err != nil {
		return nil, err
	}

	return asObject(out)
}

func (c *Client) readCommand(ctx context.Context, args Args, opts ...CallOption) (any, error) {
	rest := make(Args, len(args))

	var engine EngineName

	for k, v := range args {
		if k != EngineArg {
			rest[k] = v

			continue
		}

		switch e := v.(type) {
		case EngineName:
			engine = e
		case string:
			engine = EngineName(e)
		case nil:
		default:
			return nil, schema.Errorf(schema.LocationArgs, EngineArg, "engine must be a string, got %T", v)
		}
	}

	return c.do(ctx, readDefinition(engine), rest, opts)
}

// Write writes to args["path"]. All other arguments form the request body.
func (c *Client) Write(ctx context.Context, args Args, opts ...CallOption) (map[string]any, error) {
	out, err := c.sys.write(ctx, args, opts...)
	if err != nil {
		return nil, err
	}

	return asObject(out)
}

// Delete deletes args["path"]. Other arguments are sent as query parameters.
func (c *Client) Delete(ctx context.Context, args Args, opts ...CallOption) (map[string]any, error) {
	out, err := c.sys.delete(ctx, args, opts...)
	if err != nil {
		return nil, err
	}

	return asObject(out)
}

func asObject(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object from vault, got %T", v)
	}

	return m, nil
}
