// Package credentials provides token sources for authenticating against
// the backend API. Each source implements domain.CredentialProvider and
// reports token absence instead of erroring so callers can degrade to
// unauthenticated requests.
package credentials

import (
	"os"
	"strings"
)

// Static holds a fixed token in memory. An empty token means absent.
type Static struct {
	token string
}

func NewStatic(token string) *Static {
	return &Static{token: token}
}

func (s *Static) Token() (string, bool) {
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

// EnvVar reads the token from an environment variable on every call,
// so rotated values are picked up without a restart.
type EnvVar struct {
	name string
}

func NewEnvVar(name string) *EnvVar {
	return &EnvVar{name: name}
}

func (e *EnvVar) Token() (string, bool) {
	v := strings.TrimSpace(os.Getenv(e.name))
	if v == "" {
		return "", false
	}
	return v, true
}

// File reads the token from a file on every call. Unreadable or empty
// files report an absent token rather than an error, keeping the
// request path free of credential failures.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Token() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}
