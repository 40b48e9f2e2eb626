package vaultcmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hairyhenderson/go-vaultcmd/schema"
)

//nolint:gochecknoglobals
var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Placeholders returns the names of the {{placeholders}} in a path template,
// in order of first appearance.
func Placeholders(tmpl string) []string {
	matches := placeholderRE.FindAllStringSubmatch(tmpl, -1)

	names := make([]string, 0, len(matches))
	seen := map[string]bool{}

	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}

	return names
}

// ResolvePath substitutes every {{placeholder}} in tmpl with the matching
// value from vals. Values may contain slashes (secret paths usually do), but
// may not contain "." or ".." segments. The result is an unescaped path -
// escaping happens when the request URL is serialized.
func ResolvePath(tmpl string, vals map[string]any) (string, error) {
	var errs []schema.FieldError

	out := placeholderRE.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRE.FindStringSubmatch(m)[1]

		v, ok := vals[name]
		if !ok || v == nil {
			errs = append(errs, schema.FieldError{
				Field:   name,
				Message: fmt.Sprintf("%s is required by path template %q", name, tmpl),
			})

			return m
		}

		s := queryValue(v)
		if err := checkSegments(s); err != nil {
			errs = append(errs, schema.FieldError{Field: name, Message: name + " " + err.Error()})

			return m
		}

		return strings.Trim(s, "/")
	})

	if len(errs) > 0 {
		return "", &schema.ValidationError{Location: schema.LocationPath, Errors: errs}
	}

	if strings.Contains(out, "{{") || strings.Contains(out, "}}") {
		return "", schema.Errorf(schema.LocationPath, "", "unresolved template markers in %q", out)
	}

	return out, nil
}

func checkSegments(s string) error {
	if strings.Trim(s, "/") == "" {
		return fmt.Errorf("must not be empty")
	}

	for _, seg := range strings.Split(s, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("must not contain %q segments", seg)
		}
	}

	return nil
}
