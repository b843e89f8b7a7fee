package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_pages.up.sql":   {Data: []byte("CREATE TABLE pages ();")},
		"0002_pages.down.sql": {Data: []byte("DROP TABLE pages;")},
		"0001_init.up.sql":    {Data: []byte("CREATE TABLE websites ();")},
		"0001_init.down.sql":  {Data: []byte("DROP TABLE websites;")},
		"README.md":           {Data: []byte("ignored")},
		"embed.go":            {Data: []byte("package migrations")},
	}

	migrations, err := Load(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "0001", migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE websites ();", migrations[0].UpSQL)
	assert.Equal(t, "DROP TABLE websites;", migrations[0].DownSQL)
	assert.Equal(t, "0002", migrations[1].Version)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "down without up",
			fsys: fstest.MapFS{
				"0001_init.down.sql": {Data: []byte("DROP TABLE websites;")},
			},
		},
		{
			name: "conflicting names",
			fsys: fstest.MapFS{
				"0001_init.up.sql":  {Data: []byte("SELECT 1;")},
				"0001_other.up.sql": {Data: []byte("SELECT 2;")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestPending(t *testing.T) {
	migrations := []Migration{{Version: "0001"}, {Version: "0002"}, {Version: "0003"}}
	records := []MigrationRecord{
		{Version: "0001", Status: StatusApplied},
		{Version: "0002", Status: StatusFailed},
	}

	pending := Pending(migrations, records)
	require.Len(t, pending, 2)
	assert.Equal(t, "0002", pending[0].Version)
	assert.Equal(t, "0003", pending[1].Version)
}

func TestMergeStatus(t *testing.T) {
	migrations := []Migration{{Version: "0001", Name: "init"}, {Version: "0002", Name: "pages"}}
	records := []MigrationRecord{{Version: "0001", Name: "init", Status: StatusApplied}}

	got := mergeStatus(migrations, records)
	require.Len(t, got, 2)
	assert.Equal(t, StatusApplied, got[0].Status)
	assert.Equal(t, StatusPending, got[1].Status)
	assert.Equal(t, "pages", got[1].Name)
	assert.Nil(t, got[1].AppliedAt)
}
