package vaultauth

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Secret says where a login credential (a secret ID, password or GitHub
// token) is kept. Exactly one source must be set.
type Secret struct {
	// FromFile is the path to a file containing the credential. The path is
	// resolved against the root filesystem.
	FromFile   string
	FromString string
	FromEnv    string
}

func (s *Secret) validate() error {
	if s == nil {
		return errors.New("a credential is required")
	}

	n := 0

	for _, src := range []string{s.FromFile, s.FromEnv, s.FromString} {
		if src != "" {
			n++
		}
	}

	switch n {
	case 0:
		return errors.New("credential must be provided with a source file, environment variable, or plaintext string")
	case 1:
		return nil
	default:
		return errors.New("only one source for the credential should be specified")
	}
}

func (s *Secret) read(fsys fs.FS) (string, error) {
	switch {
	case s.FromFile != "":
		return readFile(fsys, s.FromFile)
	case s.FromEnv != "":
		v := os.Getenv(s.FromEnv)
		if v == "" {
			return "", fmt.Errorf("environment variable %q not set", s.FromEnv)
		}

		return v, nil
	default:
		return s.FromString, nil
	}
}

func readFile(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(strings.TrimPrefix(name, "/"))
	if err != nil {
		return "", fmt.Errorf("unable to open file containing credential: %w", err)
	}
	defer f.Close()

	// limit the read since credentials are ~short
	b, err := io.ReadAll(io.LimitReader(f, 4096))
	if err != nil {
		return "", fmt.Errorf("unable to read credential: %w", err)
	}

	// trim any accidentally-added leading or trailing whitespace
	return strings.TrimSpace(string(b)), nil
}
