package vaultcmd

import (
	"net/http"
	"testing"

	"github.com/hairyhenderson/go-vaultcmd/internal/tests/fakevault"
	"github.com/hairyhenderson/go-vaultcmd/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v, Options{Token: fakevault.RootToken})

	_, err := c.Write(t.Context(), Args{
		"path": "secret/data/app",
		"data": map[string]any{"foo": "bar"},
	})
	require.NoError(t, err)

	req := v.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v1/secret/data/app", req.Path)
	assert.Equal(t, map[string]any{"data": map[string]any{"foo": "bar"}}, req.Body)

	for _, engine := range []any{EngineKV2, "kv2", "no-such-engine", nil} {
		out, err := c.Read(t.Context(), Args{"path": "secret/data/app", EngineArg: engine})
		require.NoError(t, err, "engine %v", engine)

		data := out["data"].(map[string]any)["data"].(map[string]any)
		assert.Equal(t, "bar", data["foo"], "engine %v", engine)
	}

	// the engine argument is never sent
	assert.Empty(t, v.LastRequest().RawQuery)
}

func TestRead_KV1(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v, Options{Token: fakevault.RootToken})

	require.NoError(t, c.Mount(t.Context(), "kv", &MountRequest{Type: "kv"}))

	_, err := c.Write(t.Context(), Args{"path": "kv/app", "password": "hunter2"})
	require.NoError(t, err)

	out, err := c.Read(t.Context(), Args{"path": "kv/app", EngineArg: EngineKV})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"password": "hunter2"}, out["data"])

	// a kv1 payload doesn't have the kv2 shape
	_, err = c.Read(t.Context(), Args{"path": "kv/app", EngineArg: EngineKV2})
	require.Error(t, err)

	verr := &schema.ValidationError{}
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, schema.LocationResponse, verr.Location)
}

func TestRead_EngineQuery(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v, Options{Token: fakevault.RootToken})

	_, err := c.Write(t.Context(), Args{"path": "secret/data/app", "data": map[string]any{"a": 1}})
	require.NoError(t, err)

	_, err = c.Read(t.Context(), Args{"path": "secret/data/app", EngineArg: EngineKV2, "version": 1})
	require.NoError(t, err)
	assert.Equal(t, "version=1", v.LastRequest().RawQuery)

	n := len(v.Requests())

	_, err = c.Read(t.Context(), Args{"path": "secret/data/app", EngineArg: EngineKV2, "version": -1})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = c.Read(t.Context(), Args{"path": "secret/data/app", EngineArg: 42})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = c.Read(t.Context(), Args{})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	assert.Len(t, v.Requests(), n)
}

func TestDelete(t *testing.T) {
	v := fakevault.Unsealed(t)
	c := testClient(t, v, Options{Token: fakevault.RootToken})

	_, err := c.Write(t.Context(), Args{"path": "secret/data/app", "data": map[string]any{"a": "b"}})
	require.NoError(t, err)

	out, err := c.Delete(t.Context(), Args{"path": "secret/data/app"})
	require.NoError(t, err)
	assert.Empty(t, out)

	req := v.LastRequest()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/v1/secret/data/app", req.Path)

	_, ok := v.Secret("secret/data/app")
	assert.False(t, ok)

	_, err = c.Read(t.Context(), Args{"path": "secret/data/app"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestEngine(t *testing.T) {
	assert.Equal(t, anyEngine, Engine(""))
	assert.Equal(t, anyEngine, Engine("transit"))
	assert.NotNil(t, Engine(EngineKV2).Query)

	_, err := Engine("transit").Response.Validate(map[string]any{"anything": []any{1.0}})
	require.NoError(t, err)

	_, err = Engine("transit").Response.Validate("not an object")
	require.Error(t, err)
}
