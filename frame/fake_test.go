package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

// =============================================================================
// Fake GPU for driver tests
// =============================================================================

// fakeHandle is every handle the fake GPU hands out.
type fakeHandle struct {
	kind string
	id   int
	// image index for image views and targets, -1 otherwise.
	image int
	// view backing a render target.
	view *fakeHandle
	// swapchain that owns an image or view.
	owner *fakeHandle
}

func (h *fakeHandle) Initialized() bool { return h != nil }

func (h *fakeHandle) String() string { return fmt.Sprintf("%s#%d", h.kind, h.id) }

type fakeFence struct {
	signaled bool
	pending  *fakeSubmission
}

type fakeSubmission struct {
	seq     int
	cb      *fakeHandle
	fence   *fakeHandle
	retired bool
}

type acquireStep struct {
	index  int
	status Status
	err    error
}

type presentStep struct {
	status Status
	err    error
}

// fakeGPU implements Device, Presenter, TargetFactory and Encoder. It
// simulates a GPU timeline on which a submission only retires when its fence
// is waited on or the device idles, and fails the test when the frame
// pipeline breaks an ordering rule.
type fakeGPU struct {
	t *testing.T

	nextID int
	events []string
	live   map[*fakeHandle]bool
	fences map[*fakeHandle]*fakeFence

	submissions []*fakeSubmission

	caps      SurfaceCapabilities
	surface   *fakeSurface
	swapchain *fakeHandle
	images    []*fakeHandle

	acquireScript []acquireStep
	presentScript []presentStep
	nextImage     int

	// failure injection
	failSemaphoreAt int // 1-based CreateSemaphore call to fail, 0 disables
	failFenceAt     int
	failTargetAt    int
	swapchainErr    error
	submitErr       error
	idleErr         error
	hangFences      bool

	semaphoresCreated int
	fencesCreated     int
	targetsCreated    int

	swapchainBuilds int
	acquires        int
	submits         int
	presents        []int
	passes          []int

	streams map[*fakeHandle]*bytes.Buffer
}

func newFakeGPU(t *testing.T, surface *fakeSurface) *fakeGPU {
	t.Helper()
	return &fakeGPU{
		t:       t,
		live:    make(map[*fakeHandle]bool),
		fences:  make(map[*fakeHandle]*fakeFence),
		streams: make(map[*fakeHandle]*bytes.Buffer),
		surface: surface,
		caps: SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 3,
			CurrentExtent: Extent{Width: -1, Height: -1},
			MinExtent:     Extent{Width: 1, Height: 1},
			MaxExtent:     Extent{Width: 4096, Height: 4096},
			Formats: []SurfaceFormat{
				{Format: 44, ColorSpace: 0},
				{Format: 50, ColorSpace: 0},
			},
			PresentModes: []PresentMode{PresentModeFIFO, PresentModeMailbox},
		},
	}
}

func (g *fakeGPU) newHandle(kind string) *fakeHandle {
	g.nextID++
	h := &fakeHandle{kind: kind, id: g.nextID, image: -1}
	g.live[h] = true
	return h
}

func (g *fakeGPU) log(format string, args ...any) {
	g.events = append(g.events, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) outstanding() int {
	n := 0
	for _, sub := range g.submissions {
		if !sub.retired {
			n++
		}
	}
	return n
}

func (g *fakeGPU) retire(sub *fakeSubmission) {
	if sub.retired {
		return
	}
	sub.retired = true
	g.fences[sub.fence].signaled = true
	g.fences[sub.fence].pending = nil
	g.log("retire submit#%d", sub.seq)
}

func (g *fakeGPU) destroy(h Resource, kind string) {
	g.t.Helper()
	fh, ok := h.(*fakeHandle)
	if !ok || fh == nil {
		g.t.Errorf("destroy %s: foreign handle %v", kind, h)
		return
	}
	if fh.kind != kind {
		g.t.Errorf("destroy %s called with %s", kind, fh)
	}
	if !g.live[fh] {
		g.t.Errorf("double destroy of %s", fh)
	}
	if n := g.outstanding(); n > 0 {
		g.t.Errorf("destroy of %s while %d submissions are still executing", fh, n)
	}
	delete(g.live, fh)
	g.log("destroy %s", fh)
}

func (g *fakeGPU) liveCount(kind string) int {
	n := 0
	for h := range g.live {
		if h.kind == kind {
			n++
		}
	}
	return n
}

// --- Device ------------------------------------------------------------------

func (g *fakeGPU) CreateSemaphore() (Semaphore, error) {
	g.semaphoresCreated++
	if g.semaphoresCreated == g.failSemaphoreAt {
		return nil, errors.New("out of semaphores")
	}
	return g.newHandle("semaphore"), nil
}

func (g *fakeGPU) DestroySemaphore(s Semaphore) { g.destroy(s, "semaphore") }

func (g *fakeGPU) CreateFence(signaled bool) (Fence, error) {
	g.fencesCreated++
	if g.fencesCreated == g.failFenceAt {
		return nil, errors.New("out of fences")
	}
	h := g.newHandle("fence")
	g.fences[h] = &fakeFence{signaled: signaled}
	return h, nil
}

func (g *fakeGPU) DestroyFence(f Fence) {
	g.destroy(f, "fence")
	delete(g.fences, f.(*fakeHandle))
}

func (g *fakeGPU) WaitFence(f Fence, timeout time.Duration) error {
	g.t.Helper()
	fence := g.fences[f.(*fakeHandle)]
	if fence == nil {
		g.t.Fatalf("wait on unknown fence %v", f)
	}
	if g.hangFences {
		return errors.Wrapf(ErrTimeout, "after %s", timeout)
	}
	if fence.pending != nil {
		g.retire(fence.pending)
	}
	if !fence.signaled {
		g.t.Fatalf("wait on %v would never return: unsignaled with no pending work", f)
	}
	g.log("wait %v", f)
	return nil
}

func (g *fakeGPU) ResetFence(f Fence) error {
	fence := g.fences[f.(*fakeHandle)]
	if fence.pending != nil {
		g.t.Errorf("reset of %v while its submission is pending", f)
	}
	fence.signaled = false
	g.log("reset %v", f)
	return nil
}

func (g *fakeGPU) AllocateCommandBuffers(count int) ([]CommandBuffer, error) {
	var buffers []CommandBuffer
	for i := 0; i < count; i++ {
		buffers = append(buffers, g.newHandle("cmd"))
	}
	return buffers, nil
}

func (g *fakeGPU) FreeCommandBuffers(buffers []CommandBuffer) {
	for _, cb := range buffers {
		g.destroy(cb, "cmd")
	}
}

func (g *fakeGPU) ResetCommandBuffer(cb CommandBuffer) error {
	g.t.Helper()
	for _, sub := range g.submissions {
		if sub.cb == cb.(*fakeHandle) && !sub.retired {
			g.t.Errorf("reset of %v before submit#%d retired", cb, sub.seq)
		}
	}
	g.log("reset %v", cb)
	return nil
}

func (g *fakeGPU) Submit(s Submission) error {
	g.t.Helper()
	if g.submitErr != nil {
		return g.submitErr
	}
	fh := s.Fence.(*fakeHandle)
	fence := g.fences[fh]
	if fence.signaled || fence.pending != nil {
		g.t.Errorf("submit with %v not reset", fh)
	}
	g.submits++
	sub := &fakeSubmission{seq: g.submits, cb: s.CommandBuffer.(*fakeHandle), fence: fh}
	g.submissions = append(g.submissions, sub)
	fence.pending = sub
	g.log("submit#%d %v", sub.seq, s.CommandBuffer)
	return nil
}

func (g *fakeGPU) WaitIdle() error {
	if g.idleErr != nil {
		return g.idleErr
	}
	for _, sub := range g.submissions {
		g.retire(sub)
	}
	g.log("idle")
	return nil
}

// --- Presenter ---------------------------------------------------------------

func (g *fakeGPU) SurfaceCapabilities() (SurfaceCapabilities, error) {
	caps := g.caps
	if g.surface != nil && g.surface.extent.IsZero() {
		caps.MaxExtent = Extent{}
	}
	return caps, nil
}

func (g *fakeGPU) CreateSwapchain(cfg SwapchainConfig) (Swapchain, []Image, error) {
	if g.swapchainErr != nil {
		return nil, nil, g.swapchainErr
	}
	if g.swapchain != nil && g.live[g.swapchain] {
		g.t.Errorf("new swapchain created while %v is alive", g.swapchain)
	}
	g.swapchainBuilds++
	sc := g.newHandle("swapchain")
	g.swapchain = sc
	g.images = nil
	var images []Image
	for i := 0; i < cfg.ImageCount; i++ {
		img := &fakeHandle{kind: "image", id: i, image: i, owner: sc}
		g.images = append(g.images, img)
		images = append(images, img)
	}
	g.nextImage = 0
	g.log("swapchain %v %s x%d", sc, cfg.Extent, cfg.ImageCount)
	return sc, images, nil
}

func (g *fakeGPU) DestroySwapchain(sc Swapchain) { g.destroy(sc, "swapchain") }

func (g *fakeGPU) CreateImageView(image Image, format Format) (ImageView, error) {
	img := image.(*fakeHandle)
	if !g.live[img.owner] {
		g.t.Errorf("view created over %v of a destroyed swapchain", img)
	}
	view := g.newHandle("view")
	view.image = img.image
	view.owner = img.owner
	return view, nil
}

func (g *fakeGPU) DestroyImageView(view ImageView) { g.destroy(view, "view") }

func (g *fakeGPU) AcquireNextImage(sc Swapchain, signal Semaphore, timeout time.Duration) (int, Status, error) {
	g.t.Helper()
	if sc != g.swapchain || !g.live[g.swapchain] {
		g.t.Errorf("acquire on stale swapchain %v", sc)
	}
	if g.liveCount("target") != len(g.images) {
		g.t.Errorf("acquire with %d targets for %d images", g.liveCount("target"), len(g.images))
	}
	g.acquires++

	if len(g.acquireScript) > 0 {
		step := g.acquireScript[0]
		g.acquireScript = g.acquireScript[1:]
		g.log("acquire %d %s", step.index, step.status)
		return step.index, step.status, step.err
	}

	index := g.nextImage % len(g.images)
	g.nextImage++
	g.log("acquire %d", index)
	return index, StatusSuccess, nil
}

func (g *fakeGPU) Present(sc Swapchain, index int, wait Semaphore) (Status, error) {
	step := presentStep{status: StatusSuccess}
	if len(g.presentScript) > 0 {
		step = g.presentScript[0]
		g.presentScript = g.presentScript[1:]
	}
	if step.err == nil && step.status != StatusOutOfDate {
		g.presents = append(g.presents, index)
	}
	g.log("present %d %s", index, step.status)
	return step.status, step.err
}

// --- TargetFactory -----------------------------------------------------------

func (g *fakeGPU) CreateTarget(view ImageView, extent Extent) (RenderTarget, error) {
	g.targetsCreated++
	if g.targetsCreated == g.failTargetAt {
		return nil, errors.New("framebuffer creation failed")
	}
	v := view.(*fakeHandle)
	if !g.live[v] {
		g.t.Errorf("target created over destroyed %v", v)
	}
	target := g.newHandle("target")
	target.view = v
	target.image = v.image
	return target, nil
}

func (g *fakeGPU) DestroyTarget(rt RenderTarget) {
	target := rt.(*fakeHandle)
	if !g.live[target.view] {
		g.t.Errorf("%v destroyed after its %v", target, target.view)
	}
	g.destroy(rt, "target")
}

// --- Encoder -----------------------------------------------------------------

const (
	opBegin byte = iota + 1
	opBeginPass
	opViewport
	opBindPipeline
	opPushConstants
	opBindGeometry
	opDrawIndexed
	opEndPass
	opEnd
)

func (g *fakeGPU) stream(cb CommandBuffer) *bytes.Buffer {
	h := cb.(*fakeHandle)
	buf, ok := g.streams[h]
	if !ok {
		buf = &bytes.Buffer{}
		g.streams[h] = buf
	}
	return buf
}

func handleID(r Resource) int32 {
	if h, ok := r.(*fakeHandle); ok && h != nil {
		return int32(h.id)
	}
	return -1
}

func (g *fakeGPU) write(cb CommandBuffer, op byte, args ...any) {
	buf := g.stream(cb)
	buf.WriteByte(op)
	for _, arg := range args {
		if err := binary.Write(buf, binary.LittleEndian, arg); err != nil {
			g.t.Fatalf("encode op %d: %v", op, err)
		}
	}
}

func (g *fakeGPU) Begin(cb CommandBuffer) error {
	g.stream(cb).Reset()
	g.write(cb, opBegin)
	return nil
}

func (g *fakeGPU) BeginPass(cb CommandBuffer, target RenderTarget, extent Extent, clear Color) error {
	g.passes = append(g.passes, target.(*fakeHandle).image)
	g.write(cb, opBeginPass, int32(target.(*fakeHandle).image), int32(extent.Width), int32(extent.Height), [4]float32(clear))
	return nil
}

func (g *fakeGPU) SetViewport(cb CommandBuffer, extent Extent) {
	g.write(cb, opViewport, int32(extent.Width), int32(extent.Height))
}

func (g *fakeGPU) BindPipeline(cb CommandBuffer, pipeline Pipeline) {
	g.write(cb, opBindPipeline, handleID(pipeline))
}

func (g *fakeGPU) PushConstants(cb CommandBuffer, pipeline Pipeline, data []byte) {
	g.write(cb, opPushConstants, handleID(pipeline), int32(len(data)), data)
}

func (g *fakeGPU) BindGeometry(cb CommandBuffer, vertices, indices Buffer) {
	g.write(cb, opBindGeometry, handleID(vertices), handleID(indices))
}

func (g *fakeGPU) DrawIndexed(cb CommandBuffer, indexCount, instanceCount int) {
	g.write(cb, opDrawIndexed, int32(indexCount), int32(instanceCount))
}

func (g *fakeGPU) EndPass(cb CommandBuffer) {
	g.write(cb, opEndPass)
}

func (g *fakeGPU) End(cb CommandBuffer) error {
	g.write(cb, opEnd)
	return nil
}

// =============================================================================
// Fake surface
// =============================================================================

type fakeSurface struct {
	extent  Extent
	resized bool
	closed  bool
	waits   int
	// onWait runs inside WaitEvents, standing in for the window system.
	onWait func(s *fakeSurface)
}

func (s *fakeSurface) DrawableExtent() Extent { return s.extent }

func (s *fakeSurface) ShouldRebuild() bool {
	r := s.resized
	s.resized = false
	return r
}

func (s *fakeSurface) WaitEvents() {
	s.waits++
	if s.onWait != nil {
		s.onWait(s)
	}
}

func (s *fakeSurface) Closed() bool { return s.closed }

// =============================================================================
// Helpers
// =============================================================================

func testPipelineState() PipelineState {
	return PipelineState{
		Pipeline:   &fakeHandle{kind: "pipeline", id: 1000},
		ClearColor: Color{0, 0, 0, 1},
		Camera:     testCamera(),
	}
}

func testGeometry() Geometry {
	return Geometry{
		Vertices:   &fakeHandle{kind: "buffer", id: 2000},
		Indices:    &fakeHandle{kind: "buffer", id: 2001},
		IndexCount: 36,
	}
}

func testCamera() Camera {
	cam := Camera{FovY: math.Pi / 4, Near: 0.1, Far: 10}
	cam.Eye[0], cam.Eye[1], cam.Eye[2] = 2, 2, 2
	cam.Up[2] = 1
	return cam
}

type harness struct {
	gpu     *fakeGPU
	surface *fakeSurface
	driver  *Driver
}

func newHarness(t *testing.T, slots int, configure func(*fakeGPU, *Config)) *harness {
	t.Helper()
	surface := &fakeSurface{extent: Extent{Width: 800, Height: 600}}
	gpu := newFakeGPU(t, surface)

	cfg := DefaultConfig()
	cfg.MaxFramesInFlight = slots
	if configure != nil {
		configure(gpu, &cfg)
	}

	driver, err := NewDriver(Options{
		Device:    gpu,
		Presenter: gpu,
		Targets:   gpu,
		Encoder:   gpu,
		Surface:   surface,
		Pipeline:  testPipelineState(),
		Geometry:  testGeometry(),
		Config:    cfg,
	})
	if err != nil {
		t.Fatalf("NewDriver() error = %+v", err)
	}

	return &harness{gpu: gpu, surface: surface, driver: driver}
}

func (h *harness) render(t *testing.T, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		if err := h.driver.RenderFrame(); err != nil {
			t.Fatalf("RenderFrame() tick %d error = %+v", i, err)
		}
	}
}
