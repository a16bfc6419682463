package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInitialSchema(t *testing.T) {
	schema, err := GetInitialSchema()
	require.NoError(t, err)

	for _, table := range []string{
		"threads", "contacts", "interactions", "attachments", "interaction_attachments",
		"quotes", "link_previews", "reactions", "group_members", "jobs", "received_messages",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, schema, "UNIQUE (thread_id, timestamp_ms, variant, author_id)")
}

func TestLoad_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_later.sql":   {Data: []byte("SELECT 10;")},
		"m/002_second.sql":  {Data: []byte("SELECT 2;")},
		"m/README.md":       {Data: []byte("ignored")},
		"m/001_initial.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := load(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{got[0].Version, got[1].Version, got[2].Version})
	assert.Equal(t, "later", got[2].Name)
}

func TestLoad_RejectsBadNames(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"missing separator", fstest.MapFS{"m/001.sql": {Data: []byte("x")}}},
		{"non numeric", fstest.MapFS{"m/abc_x.sql": {Data: []byte("x")}}},
		{"duplicate version", fstest.MapFS{
			"m/001_a.sql": {Data: []byte("x")},
			"m/001_b.sql": {Data: []byte("y")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.fsys, "m")
			assert.Error(t, err)
		})
	}
}
