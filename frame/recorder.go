package frame

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// vulkanClip maps OpenGL clip space (y up, z in [-1, 1]) to Vulkan's
// (y down, z in [0, 1]).
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Recorder records the fixed per-frame workload. It has no synchronization
// side effects: the caller guarantees the buffer is not in use by the GPU.
type Recorder struct {
	encoder Encoder
}

func NewRecorder(encoder Encoder) *Recorder {
	return &Recorder{encoder: encoder}
}

// Record emits begin pass, viewport, pipeline, constants, geometry, draw,
// end pass into cb for the target at targetIndex.
func (r *Recorder) Record(cb CommandBuffer, targetIndex int, targets *TargetSet, state PipelineState, geometry Geometry, extent Extent) error {
	target, err := targets.At(targetIndex)
	if err != nil {
		return err
	}

	constants, err := ViewProjection(state.Camera, extent)
	if err != nil {
		return err
	}

	err = r.encoder.Begin(cb)
	if err != nil {
		return errors.Wrap(err, "begin command buffer")
	}

	err = r.encoder.BeginPass(cb, target.RenderTarget, extent, state.ClearColor)
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}

	r.encoder.SetViewport(cb, extent)
	r.encoder.BindPipeline(cb, state.Pipeline)
	r.encoder.PushConstants(cb, state.Pipeline, constants)
	r.encoder.BindGeometry(cb, geometry.Vertices, geometry.Indices)
	r.encoder.DrawIndexed(cb, geometry.IndexCount, 1)
	r.encoder.EndPass(cb)

	err = r.encoder.End(cb)
	if err != nil {
		return errors.Wrap(err, "end command buffer")
	}

	return nil
}

// ViewProjection returns the camera's clip-from-world matrix for extent as
// the raw push constant bytes, column major.
func ViewProjection(camera Camera, extent Extent) ([]byte, error) {
	proj := mgl32.Perspective(camera.FovY, extent.Aspect(), camera.Near, camera.Far)
	view := mgl32.LookAtV(camera.Eye, camera.Center, camera.Up)
	mvp := vulkanClip.Mul4(proj).Mul4(view)

	buf := &bytes.Buffer{}
	err := binary.Write(buf, binary.NativeEndian, mvp)
	if err != nil {
		return nil, errors.Wrap(err, "encode view projection")
	}

	return buf.Bytes(), nil
}
