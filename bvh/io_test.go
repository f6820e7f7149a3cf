package bvh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tris := randomTris(60, 0xcafe)
	b := BuildHQ(tris, BuildOptions{BinCount: 12})

	path := filepath.Join(t.TempDir(), "tree.bin")
	require.NoError(t, b.Save(path))

	loaded, err := Load(path, tris)
	require.NoError(t, err)
	assert.Equal(t, b.UsedNodes, loaded.UsedNodes)
	assert.Empty(t, cmp.Diff(b.Nodes[:b.UsedNodes], loaded.Nodes))
	assert.Empty(t, cmp.Diff(b.PrimIdx, loaded.PrimIdx))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.bin"), nil)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "missing checkpoints must surface as not-exist for fallback logic")
}

func TestLoadTriCountMismatch(t *testing.T) {
	tris := randomTris(20, 0x8)
	b := Build(tris)
	path := filepath.Join(t.TempDir(), "tree.bin")
	require.NoError(t, b.Save(path))

	_, err := Load(path, tris[:10])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triangles")
}

func TestLoadRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint at all, just bytes"), 0644))
	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	b := Build(randomTris(10, 0x5))
	require.NoError(t, b.Save(filepath.Join(dir, "tree.bin")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tree.bin", entries[0].Name())
}

func TestPackedMatchesPlainTraversal(t *testing.T) {
	tris := randomTris(90, 0x1f)
	b := BuildHQ(tris, BuildOptions{BinCount: 8})
	packed := Pack(b)

	seed := uint32(0x77)
	for i := 0; i < 100; i++ {
		origin := testVec(&seed, 2, -0.5)
		dir := testVec(&seed, 2, -1)
		if dir.Len() < 0.1 {
			continue
		}
		r1 := NewRay(origin, dir)
		r2 := NewRay(origin, dir)
		b.Intersect(&r1)
		packed.Intersect(&r2)
		require.Equal(t, r1.Hit.T, r2.Hit.T)
		require.Equal(t, r1.Hit.Prim, r2.Hit.Prim)
	}
}
