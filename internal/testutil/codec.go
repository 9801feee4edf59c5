package testutil

import (
	"errors"
	"os"

	"eggpatch/internal/container"
	"eggpatch/internal/engine"
)

// ErrSimulatedWrite is the error returned by BrokenWriteCodec containers.
var ErrSimulatedWrite = errors.New("simulated write failure")

// BrokenWriteCodec opens real zip containers but fails every write after
// deliberately clobbering the container file. It exercises the engine's
// rollback guarantee: after a failed run the file must be byte-identical to
// its pre-run state.
type BrokenWriteCodec struct {
	codec *container.ZipCodec
}

func NewBrokenWriteCodec() *BrokenWriteCodec {
	return &BrokenWriteCodec{codec: container.NewZipCodec()}
}

func (c *BrokenWriteCodec) Open(path string) (engine.Container, error) {
	inner, err := c.codec.Open(path)
	if err != nil {
		return nil, err
	}
	return &brokenWriteContainer{Container: inner, path: path}, nil
}

type brokenWriteContainer struct {
	engine.Container
	path string
}

// WriteMembers scribbles over the container file and fails, simulating a
// crash mid-write. The scribble proves restoration is real: a rollback that
// merely skips the write would pass a weaker check.
func (c *brokenWriteContainer) WriteMembers(map[string][]byte) error {
	if err := os.WriteFile(c.path, []byte("clobbered by failed write"), 0644); err != nil {
		return err
	}
	return ErrSimulatedWrite
}

// Compile-time check that BrokenWriteCodec implements engine.Codec
var _ engine.Codec = (*BrokenWriteCodec)(nil)
