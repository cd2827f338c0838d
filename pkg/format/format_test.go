package format

import (
	"os"
	"path/filepath"
	"testing"

	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `path: /data/tas_Amon_CESM2_historical_r1i1p1f1_gn_185001-201412.nc
global_attributes:
  cmor_version: "3.5.0"
  table_id: Amon
  variable_id: tas
  realization_index: 1
  branch_time: 0.0
  parent_variant_label: [r1i1p1f1, r2i1p1f1]
`

func TestAttributeFile(t *testing.T) {
	f := NewAttributeFile("/data/a.nc", types.Attributes{"project_id": "GeoMIP"})

	assert.Equal(t, "/data/a.nc", f.Path())
	assert.True(t, f.HasAttribute("project_id"))
	assert.False(t, f.HasAttribute("table_id"))

	v, err := f.GetAttribute("project_id")
	require.NoError(t, err)
	assert.Equal(t, "GeoMIP", v)

	_, err = f.GetAttribute("table_id")
	assert.ErrorIs(t, err, handler.ErrAttributeNotFound)

	attrs := f.Attributes()
	attrs["project_id"] = "changed"
	v, _ = f.GetAttribute("project_id")
	assert.Equal(t, "GeoMIP", v, "Attributes should return a copy")
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	require.NoError(t, err)

	attrs := m.Attributes()
	assert.Equal(t, "3.5.0", attrs["cmor_version"])
	assert.Equal(t, "Amon", attrs["table_id"])
	assert.Equal(t, "1", attrs["realization_index"])
	assert.Equal(t, "0", attrs["branch_time"])
	assert.Equal(t, "r1i1p1f1 r2i1p1f1", attrs["parent_variant_label"])

	_, err = ParseManifest([]byte("global_attributes: [unterminated"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("Manifest path", func(t *testing.T) {
		path := filepath.Join(dir, "tas.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testManifest), 0644))

		f, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, "/data/tas_Amon_CESM2_historical_r1i1p1f1_gn_185001-201412.nc", f.Path())
		assert.True(t, f.HasAttribute("variable_id"))
	})

	t.Run("Sidecar manifest", func(t *testing.T) {
		dataPath := filepath.Join(dir, "pr.nc")
		require.NoError(t, os.WriteFile(dataPath+ManifestSuffix, []byte("global_attributes:\n  variable_id: pr\n"), 0644))

		f, err := Opener.Open(dataPath)
		require.NoError(t, err)
		assert.Equal(t, dataPath, f.Path())

		v, err := f.GetAttribute("variable_id")
		require.NoError(t, err)
		assert.Equal(t, "pr", v)
	})

	t.Run("Missing manifest", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.nc"))
		assert.ErrorIs(t, err, errNoManifest)
	})
}
