package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/config"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd(nil)
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{
		"migrate", "load", "activate", "reactivate", "reset", "process", "status", "export", "delete", "serve",
	}, names)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "task")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseID(bad, "task")
		assert.Error(t, err, bad)
	}
}

func TestMigrateCommandAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	embedded := config.EmbeddedConfig(fmt.Sprintf(`
recordhub:
  database:
    default_ref: main
    connections:
      main:
        type: sqlite
        database: %s
  metrics:
    type: noop
`, filepath.Join(dir, "hub.db")))
	options := app.Options("", embedded, []fx.Option{app.DBProviderMap["sqlite"]})

	var out bytes.Buffer
	root := newRootCmd(options)
	root.SetOut(&out)

	root.SetArgs([]string{"migrate", "up"})
	require.NoError(t, root.Execute())

	root.SetArgs([]string{"migrate", "version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "dirty: false")
}

func TestLoadRequiresOrg(t *testing.T) {
	root := newRootCmd(nil)
	root.SetArgs([]string{"load", "staff.csv"})
	assert.EqualError(t, root.Execute(), "--org is required")
}
