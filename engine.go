package vaultcmd

import (
	"github.com/hairyhenderson/go-vaultcmd/schema"
)

// EngineName identifies a secrets engine with known request and response
// shapes.
type EngineName string

const (
	// EngineKV is the K/V secrets engine, version 1.
	EngineKV EngineName = "kv"
	// EngineKV2 is the K/V secrets engine, version 2. Paths must include the
	// "data/" segment, e.g. "secret/data/foo".
	EngineKV2 EngineName = "kv2"
)

// EngineSchemas holds the schemas used when reading from an engine.
type EngineSchemas struct {
	Query    schema.Validator
	Response schema.Validator
}

//nolint:gochecknoglobals
var (
	// anyEngine is used for unknown engines: any query, any object back.
	anyEngine = EngineSchemas{Response: schema.Object()}

	engines = map[EngineName]EngineSchemas{
		EngineKV: {
			Response: schema.MustCompile(`
type: object
required: [data]
properties:
  data: {type: object}
  lease_duration: {type: number}
  renewable: {type: boolean}
`),
		},
		EngineKV2: {
			Query: schema.MustCompile(`
type: object
properties:
  version:
    type: number
    minimum: 0
`),
			Response: schema.MustCompile(`
type: object
required: [data]
properties:
  data:
    type: object
    required: [data, metadata]
    properties:
      data: {type: object}
      metadata:
        type: object
        properties:
          version: {type: number}
          created_time: {type: string}
          deletion_time: {type: string}
          destroyed: {type: boolean}
`),
		},
	}
)

// Engine returns the schemas for the named engine. Unknown (or empty) names
// resolve to a permissive fallback that accepts any object.
func Engine(name EngineName) EngineSchemas {
	if e, ok := engines[name]; ok {
		return e
	}

	return anyEngine
}
