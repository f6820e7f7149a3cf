package bvh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/mjkal/tinybvh/scene"
)

const (
	fileMagic   uint32 = 0x54485642 // "BVHT"
	fileVersion uint32 = 1
)

type fileHeader struct {
	Magic     uint32
	Version   uint32
	TriCount  uint32
	UsedNodes uint32
	PrimCount uint32
}

// Save writes the hierarchy to a checkpoint file. The file is written to a
// temporary sibling and renamed into place, so a run killed mid-write never
// leaves a torn checkpoint behind.
func (b *BVH) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriterSize(f, 1<<20)
	hdr := fileHeader{
		Magic:     fileMagic,
		Version:   fileVersion,
		TriCount:  uint32(len(b.Tris)),
		UsedNodes: uint32(b.UsedNodes),
		PrimCount: uint32(len(b.PrimIdx)),
	}
	err = binary.Write(w, binary.LittleEndian, hdr)
	if err == nil {
		err = binary.Write(w, binary.LittleEndian, b.Nodes[:b.UsedNodes])
	}
	if err == nil {
		err = binary.Write(w, binary.LittleEndian, b.PrimIdx)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write checkpoint %s: %v", path, err)
	}
	return os.Rename(tmp, path)
}

// Load reads a hierarchy checkpoint written by Save and binds it to the
// given triangle list. Callers should treat os.IsNotExist errors as a
// fallback signal, not a failure.
func Load(path string, tris []scene.Triangle) (*BVH, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %v", path, err)
	}
	if hdr.Magic != fileMagic || hdr.Version != fileVersion {
		return nil, fmt.Errorf("%s: not a hierarchy checkpoint", path)
	}
	if hdr.TriCount != uint32(len(tris)) {
		return nil, fmt.Errorf("%s: checkpoint was built over %d triangles, scene has %d",
			path, hdr.TriCount, len(tris))
	}

	nodes := make([]Node, hdr.UsedNodes)
	if err := binary.Read(r, binary.LittleEndian, nodes); err != nil {
		return nil, fmt.Errorf("%s: failed to read nodes: %v", path, err)
	}
	primIdx := make([]uint32, hdr.PrimCount)
	if err := binary.Read(r, binary.LittleEndian, primIdx); err != nil {
		return nil, fmt.Errorf("%s: failed to read primitive indices: %v", path, err)
	}

	return &BVH{
		Tris:      tris,
		Nodes:     nodes,
		PrimIdx:   primIdx,
		UsedNodes: int(hdr.UsedNodes),
	}, nil
}
