package scene

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/mjkal/tinybvh/log"
	"github.com/mjkal/tinybvh/types"
)

var logger = log.New("scene")

// AppendMesh reads a flat binary triangle mesh and appends it to the scene,
// applying an optional uniform scale and translation. The file layout is a
// little-endian int32 triangle count followed by 3 vec4 vertices per
// triangle (the w component carries baked color data which the harness
// discards).
func AppendMesh(s *Scene, path string, scale float32, offset types.Vec3) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)

	var triCount int32
	if err := binary.Read(r, binary.LittleEndian, &triCount); err != nil {
		return fmt.Errorf("%s: failed to read triangle count: %v", path, err)
	}
	if triCount < 0 {
		return fmt.Errorf("%s: invalid triangle count %d", path, triCount)
	}

	verts := make([]types.Vec4, triCount*3)
	if err := binary.Read(r, binary.LittleEndian, verts); err != nil {
		return fmt.Errorf("%s: failed to read %d vertices: %v", path, triCount*3, err)
	}

	tris := make([]Triangle, triCount)
	for i := range tris {
		tris[i] = Triangle{
			V0: verts[i*3].Vec3().Mul(scale).Add(offset),
			V1: verts[i*3+1].Vec3().Mul(scale).Add(offset),
			V2: verts[i*3+2].Vec3().Mul(scale).Add(offset),
		}
	}
	s.Append(tris)

	logger.Debugf("appended %d triangles from %s", triCount, path)
	return nil
}

// WriteMesh writes the scene triangles in the same flat binary layout that
// AppendMesh consumes. Used to produce synthetic test scenes.
func WriteMesh(s *Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, int32(len(s.tris))); err != nil {
		return err
	}
	verts := make([]types.Vec4, 0, len(s.tris)*3)
	for _, tri := range s.tris {
		verts = append(verts, tri.V0.Vec4(0), tri.V1.Vec4(0), tri.V2.Vec4(0))
	}
	if err := binary.Write(w, binary.LittleEndian, verts); err != nil {
		return err
	}
	return w.Flush()
}
