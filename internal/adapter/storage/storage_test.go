package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/adapter/storage/local"
	"github.com/tigerroll/recordhub/internal/config"
)

func testConfig(dir string) *config.Config {
	cfg := config.NewConfig()
	cfg.RecordHub.Storage.DefaultRef = "files"
	cfg.RecordHub.Storage.Connections = map[string]interface{}{
		"files":  map[string]interface{}{"type": "local", "base_dir": dir, "bucket_name": "exports"},
		"remote": map[string]interface{}{"type": "s3"},
	}
	return cfg
}

func TestResolveDefaultAndCache(t *testing.T) {
	r := storage.NewResolverFor(testConfig(t.TempDir()), local.NewProvider())

	c, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "files", c.Name())
	assert.Equal(t, "local", c.Type())

	again, err := r.Resolve(context.Background(), "files")
	require.NoError(t, err)
	assert.Same(t, c, again)

	assert.NoError(t, r.CloseAll())
}

func TestResolveErrors(t *testing.T) {
	r := storage.NewResolverFor(testConfig(t.TempDir()), local.NewProvider())

	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorContains(t, err, "not found")

	_, err = r.Resolve(context.Background(), "remote")
	assert.ErrorContains(t, err, "no storage provider")
}

func TestDecodeConfig(t *testing.T) {
	sc, err := storage.DecodeConfig(testConfig("/data"), "files")
	require.NoError(t, err)
	assert.Equal(t, storage.Config{Type: "local", BaseDir: "/data", BucketName: "exports"}, sc)
}
