package search

import (
	"fmt"
	"path/filepath"

	"github.com/mjkal/tinybvh/bvh"
	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/scene"
)

// CheckpointStore resolves and persists hierarchy checkpoints for one
// scene. A checkpoint is keyed by its configuration (bin count or the
// "optimized" tag) and is only ever replaced by a strictly better result,
// so it doubles as resumable state for interrupted sessions.
type CheckpointStore struct {
	Dir   string
	Scene string

	logger log.Logger
}

func NewCheckpointStore(dir, sceneName string) *CheckpointStore {
	if dir == "" {
		dir = "."
	}
	return &CheckpointStore{Dir: dir, Scene: sceneName, logger: log.New("search")}
}

// BinnedPath returns the checkpoint path for a binned build configuration,
// e.g. "sbvh_sponza_27.5bins.bin".
func (c *CheckpointStore) BinnedPath(bins float32) string {
	return filepath.Join(c.Dir, fmt.Sprintf("sbvh_%s_%gbins.bin", c.Scene, bins))
}

// OptimizedPath returns the checkpoint path for the optimization stage.
func (c *CheckpointStore) OptimizedPath() string {
	return filepath.Join(c.Dir, fmt.Sprintf("sbvh_%s_opt.bin", c.Scene))
}

// Save persists a hierarchy checkpoint.
func (c *CheckpointStore) Save(h *bvh.BVH, path string) error {
	if err := h.Save(path); err != nil {
		return err
	}
	c.logger.Infof("saved checkpoint %s", path)
	return nil
}

// Load reads a checkpoint and binds it to the scene triangles. Missing
// files surface as os.IsNotExist errors for the caller's fallback logic.
func (c *CheckpointStore) Load(path string, tris []scene.Triangle) (*bvh.BVH, error) {
	return bvh.Load(path, tris)
}
