package config

import (
	"os"
	"strings"
)

// EnvironmentExpander expands ${VAR} placeholders in configuration data.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
// ${VAR:-default} yields default when VAR is unset or empty; other unset variables expand to "".
type OsEnvironmentExpander struct{}

func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.Expand(string(input), lookupWithDefault)), nil
}

func lookupWithDefault(name string) string {
	key, def, hasDefault := strings.Cut(name, ":-")
	if v := os.Getenv(key); v != "" || !hasDefault {
		return v
	}
	return def
}
