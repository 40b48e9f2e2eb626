package vaultcmd

import (
	"context"
	"fmt"

	"github.com/go-openapi/swag"
)

// TypedCommand is a Command whose validated response is decoded into T.
type TypedCommand[T any] func(ctx context.Context, args Args, opts ...CallOption) (*T, error)

// Typed wraps cmd so that its validated response is decoded into a *T, using
// T's JSON field names.
func Typed[T any](cmd Command) TypedCommand[T] {
	return func(ctx context.Context, args Args, opts ...CallOption) (*T, error) {
		out, err := cmd(ctx, args, opts...)
		if err != nil {
			return nil, err
		}

		return decodeAs[T](out)
	}
}

func decodeAs[T any](v any) (*T, error) {
	out := new(T)
	if err := swag.DynamicJSONToStruct(v, out); err != nil {
		return nil, fmt.Errorf("failed to decode vault response into %T: %w", out, err)
	}

	return out, nil
}
