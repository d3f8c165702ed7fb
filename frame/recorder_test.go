package frame

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

type recorderFixture struct {
	gpu     *fakeGPU
	chain   *Chain
	targets *TargetSet
	buffers []CommandBuffer
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	t.Helper()
	gpu := newFakeGPU(t, nil)
	chain := buildTestChain(t, gpu)
	targets, err := BuildTargets(gpu, chain.Images(), chain.Extent())
	if err != nil {
		t.Fatalf("BuildTargets() error = %v", err)
	}
	buffers, _ := gpu.AllocateCommandBuffers(2)
	return &recorderFixture{gpu: gpu, chain: chain, targets: targets, buffers: buffers}
}

func TestRecorder_Deterministic(t *testing.T) {
	f := newRecorderFixture(t)
	rec := NewRecorder(f.gpu)

	for _, cb := range f.buffers {
		err := rec.Record(cb, 1, f.targets, testPipelineState(), testGeometry(), f.chain.Extent())
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	first := f.gpu.streams[f.buffers[0].(*fakeHandle)].Bytes()
	second := f.gpu.streams[f.buffers[1].(*fakeHandle)].Bytes()
	if len(first) == 0 || !bytes.Equal(first, second) {
		t.Errorf("streams differ for identical inputs:\n%x\n%x", first, second)
	}

	// Re-recording replaces the previous contents.
	err := rec.Record(f.buffers[0], 1, f.targets, testPipelineState(), testGeometry(), f.chain.Extent())
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if again := f.gpu.streams[f.buffers[0].(*fakeHandle)].Bytes(); !bytes.Equal(again, second) {
		t.Errorf("re-recorded stream differs")
	}

	if first[0] != opBegin || first[len(first)-1] != opEnd || first[len(first)-2] != opEndPass {
		t.Errorf("stream framing = %x...%x, want begin ... end pass, end", first[:1], first[len(first)-2:])
	}

	constants, err := ViewProjection(testCamera(), f.chain.Extent())
	if err != nil {
		t.Fatalf("ViewProjection() error = %v", err)
	}
	if !bytes.Contains(first, constants) {
		t.Errorf("stream does not carry the view projection constants")
	}
}

func TestRecorder_TargetIndex(t *testing.T) {
	f := newRecorderFixture(t)
	rec := NewRecorder(f.gpu)

	for _, index := range []int{2, 0} {
		err := rec.Record(f.buffers[0], index, f.targets, testPipelineState(), testGeometry(), f.chain.Extent())
		if err != nil {
			t.Fatalf("Record(%d) error = %v", index, err)
		}
	}
	if len(f.gpu.passes) != 2 || f.gpu.passes[0] != 2 || f.gpu.passes[1] != 0 {
		t.Errorf("passes = %v, want [2 0]", f.gpu.passes)
	}

	err := rec.Record(f.buffers[1], f.targets.Len(), f.targets, testPipelineState(), testGeometry(), f.chain.Extent())
	if !errors.Is(err, ErrTargetIndex) {
		t.Fatalf("Record() error = %v, want ErrTargetIndex", err)
	}
	if _, ok := f.gpu.streams[f.buffers[1].(*fakeHandle)]; ok {
		t.Errorf("commands recorded for an invalid target")
	}
}

func TestRecorder_ExtentChangesConstants(t *testing.T) {
	wide, err := ViewProjection(testCamera(), Extent{Width: 1600, Height: 900})
	if err != nil {
		t.Fatal(err)
	}
	square, err := ViewProjection(testCamera(), Extent{Width: 900, Height: 900})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(wide, square) {
		t.Errorf("aspect ratio does not affect the projection")
	}
}

func TestViewProjection(t *testing.T) {
	camera := testCamera()
	data, err := ViewProjection(camera, Extent{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("ViewProjection() error = %v", err)
	}
	if len(data) != 64 {
		t.Fatalf("len = %d, want 64", len(data))
	}

	var m mgl32.Mat4
	if err := binary.Read(bytes.NewReader(data), binary.NativeEndian, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}

	project := func(p mgl32.Vec3) mgl32.Vec3 {
		clip := m.Mul4x1(p.Vec4(1))
		return clip.Vec3().Mul(1 / clip.W())
	}

	center := project(camera.Center)
	if math.Abs(float64(center.X())) > 1e-5 || math.Abs(float64(center.Y())) > 1e-5 {
		t.Errorf("look-at target projects to %v, want screen center", center)
	}
	if center.Z() <= 0 || center.Z() >= 1 {
		t.Errorf("look-at target depth = %v, want within (0, 1)", center.Z())
	}

	// Vulkan's framebuffer y axis points down: a point above the target
	// lands in the upper half, which is negative y.
	above := project(camera.Center.Add(camera.Up.Mul(0.5)))
	if above.Y() >= 0 {
		t.Errorf("point above target projects to y = %v, want negative", above.Y())
	}
}
