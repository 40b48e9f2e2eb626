// Package schema validates the JSON-shaped values exchanged with the Vault
// HTTP API.
//
// Schemas are written as YAML (or JSON) documents in the OpenAPI/JSON Schema
// dialect understood by [github.com/go-openapi/validate], and compiled once
// with [Compile] or [MustCompile]:
//
//	var initBody = schema.MustCompile(`
//	type: object
//	required: [secret_shares, secret_threshold]
//	properties:
//	  secret_shares:
//	    type: number
//	  secret_threshold:
//	    type: number
//	  root_token_pgp_key:
//	    type: string
//	    default: ""
//	`)
//
// Declared defaults are filled in before validation, so a value returned from
// [Validator.Validate] always carries them.
//
// Responses whose shape depends on a single field (for example the sealed and
// unsealed forms of an unseal response) can be described with [OneOf], which
// picks a variant by the value of that field.
//
// Every failure is reported as a [*ValidationError], which names the location
// (path, query, body, response) and the offending fields.
package schema
