package vaultcmd

import (
	"errors"

	"github.com/hairyhenderson/go-vaultcmd/schema"
	"github.com/hashicorp/vault/api"
)

// ErrUnknownCommand is returned by Call when no command is attached under the
// requested name.
var ErrUnknownCommand = errors.New("unknown command")

// IsValidationError reports whether err was caused by a value failing its
// schema - either an argument (before any request was sent) or a response.
// Validation errors are never worth retrying.
func IsValidationError(err error) bool {
	return schema.IsValidationError(err)
}

// StatusCode returns the HTTP status code of a failed Vault request, or 0 if
// err did not come from an HTTP error response.
func StatusCode(err error) int {
	rerr := &api.ResponseError{}
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}

	return 0
}
