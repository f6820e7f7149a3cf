package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjkal/tinybvh/types"
)

func TestMeshRoundTrip(t *testing.T) {
	src := New("src")
	src.Append([]Triangle{
		{V0: types.XYZ(0, 0, 0), V1: types.XYZ(1, 0, 0), V2: types.XYZ(0, 1, 0)},
		{V0: types.XYZ(0, 0, 1), V1: types.XYZ(1, 0, 1), V2: types.XYZ(0, 1, 1)},
	})

	path := filepath.Join(t.TempDir(), "mesh.bin")
	require.NoError(t, WriteMesh(src, path))

	dst := New("dst")
	require.NoError(t, AppendMesh(dst, path, 1, types.Vec3{}))
	require.Equal(t, 2, dst.TriCount())
	assert.Equal(t, src.Tris(), dst.Tris())

	min, max := dst.Bounds()
	assert.Equal(t, types.XYZ(0, 0, 0), min)
	assert.Equal(t, types.XYZ(1, 1, 1), max)
}

func TestAppendMeshScaleOffset(t *testing.T) {
	src := New("src")
	src.Append([]Triangle{
		{V0: types.XYZ(0, 0, 0), V1: types.XYZ(1, 0, 0), V2: types.XYZ(0, 1, 0)},
	})
	path := filepath.Join(t.TempDir(), "mesh.bin")
	require.NoError(t, WriteMesh(src, path))

	dst := New("dst")
	require.NoError(t, AppendMesh(dst, path, 2, types.XYZ(10, 0, 0)))
	tri := dst.Tris()[0]
	assert.Equal(t, types.XYZ(10, 0, 0), tri.V0)
	assert.Equal(t, types.XYZ(12, 0, 0), tri.V1)
	assert.Equal(t, types.XYZ(10, 2, 0), tri.V2)
}

func TestAppendMeshMissingFile(t *testing.T) {
	dst := New("dst")
	err := AppendMesh(dst, filepath.Join(t.TempDir(), "nope.bin"), 1, types.Vec3{})
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestSceneDerivedMetrics(t *testing.T) {
	s := New("box")
	s.Append([]Triangle{
		{V0: types.XYZ(-1, -2, -3), V1: types.XYZ(4, 0, 0), V2: types.XYZ(0, 5, 6)},
	})
	assert.Equal(t, types.XYZ(5, 7, 9), s.Extent())
	assert.Equal(t, float32(9), s.Size())
}
