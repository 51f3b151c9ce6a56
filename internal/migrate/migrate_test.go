package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/consultorio/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingOrdersAndSkipsApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("SELECT 2")},
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0003_c.sql": {Data: []byte("SELECT 3")},
		"README.md":  {Data: []byte("ignored")},
		"sub/x.sql":  {Data: []byte("ignored")},
	}
	got, err := Pending(fsys, map[string]bool{"0002_b": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0003_c.sql"}, got)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	got, err := Pending(migrations.FS, nil)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001_therapists.sql", got[0])
}
