package compute

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/compute/gpucore"
)

func newFakeSession(t *testing.T, dev *fakeDevice) *Session {
	t.Helper()
	s, err := NewSessionOnDevice(dev, "fake source", "main", WithLabel("test"))
	if err != nil {
		t.Fatalf("NewSessionOnDevice failed: %v", err)
	}
	return s
}

func mustCreate(t *testing.T, s *Session, desc BufferDescriptor, err error) *Buffer {
	t.Helper()
	if err != nil {
		t.Fatalf("descriptor failed: %v", err)
	}
	b, err := s.CreateBuffer(desc)
	if err != nil {
		t.Fatalf("CreateBuffer(%q) failed: %v", desc.Name, err)
	}
	return b
}

func TestNewSessionUnknownBackend(t *testing.T) {
	_, err := NewSession("no-such-backend", "", "main")
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("NewSession error = %v, want ErrNotSupported", err)
	}
}

type stubProvider struct {
	name      gpucore.Backend
	available bool
	dev       *fakeDevice
}

func (p stubProvider) Name() gpucore.Backend { return p.name }
func (p stubProvider) Available() bool       { return p.available }
func (p stubProvider) Open() (gpucore.Device, error) {
	return p.dev, nil
}

func TestNewSessionProvider(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		gpucore.Register(stubProvider{name: "stub-off"})
		t.Cleanup(func() { gpucore.Unregister("stub-off") })

		_, err := NewSession("stub-off", "", "main")
		if !errors.Is(err, ErrNotSupported) {
			t.Errorf("NewSession error = %v, want ErrNotSupported", err)
		}
	})

	t.Run("available", func(t *testing.T) {
		dev := newFakeDevice()
		gpucore.Register(stubProvider{name: "stub-on", available: true, dev: dev})
		t.Cleanup(func() { gpucore.Unregister("stub-on") })

		s, err := NewSession("stub-on", "", "main")
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		if s.Backend() != "stub-on" {
			t.Errorf("Backend = %q, want stub-on", s.Backend())
		}
		if s.EntryPoint() != "main" {
			t.Errorf("EntryPoint = %q, want main", s.EntryPoint())
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
}

func TestNewSessionNotSupported(t *testing.T) {
	dev := newFakeDevice()
	dev.features.StructuredBuffers = false

	_, err := NewSessionOnDevice(dev, "", "main")
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("NewSessionOnDevice error = %v, want ErrNotSupported", err)
	}
	if !dev.destroyed {
		t.Error("device should be released when structured buffers are missing")
	}
	if dev.live() != 0 {
		t.Errorf("%d resources leaked", dev.live())
	}
}

func TestNewSessionShaderFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failOn["CreateShaderModule"] = true

	_, err := NewSessionOnDevice(dev, "", "main")
	if !errors.Is(err, errInjected) {
		t.Fatalf("NewSessionOnDevice error = %v, want injected failure", err)
	}
	if !dev.destroyed {
		t.Error("device should be released after a compile failure")
	}
}

func TestNewSessionCommandListFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failOn["CreateCommandList"] = true

	if _, err := NewSessionOnDevice(dev, "", "main"); err == nil {
		t.Fatal("NewSessionOnDevice should fail")
	}
	if !dev.destroyed || dev.live() != 0 {
		t.Errorf("destroyed = %v, live = %d; want true, 0", dev.destroyed, dev.live())
	}
}

func TestNewSessionOnNilDevice(t *testing.T) {
	if _, err := NewSessionOnDevice(nil, "", "main"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("error = %v, want ErrNotSupported", err)
	}
}

func TestCreateBufferAllocations(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	d, err := StructuredDescriptor[float32]("data", 0, 0, 16)
	data := mustCreate(t, s, d, err)
	u, err := UniformDescriptor[[4]int32]("info", 0, 1)
	info := mustCreate(t, s, u, err)

	primary := dev.buffers[data.primary]
	if primary == nil {
		t.Fatal("primary allocation missing")
	}
	wantUsage := gpucore.BufferUsageStorage | gpucore.BufferUsageCopySrc | gpucore.BufferUsageCopyDst
	if primary.desc.Usage != wantUsage || primary.desc.Size != 64 || primary.desc.Stride != 4 {
		t.Errorf("primary = %+v, want usage %v size 64 stride 4", primary.desc, wantUsage)
	}
	if primary.desc.Label != "test:data" {
		t.Errorf("primary label = %q, want test:data", primary.desc.Label)
	}

	staging := dev.buffers[data.staging]
	if staging == nil {
		t.Fatal("structured buffer should have a staging allocation")
	}
	if staging.desc.Usage != gpucore.BufferUsageMapRead|gpucore.BufferUsageCopyDst || staging.desc.Size != 64 {
		t.Errorf("staging = %+v", staging.desc)
	}

	if info.staging != gpucore.InvalidID {
		t.Error("uniform buffer should not have a staging allocation")
	}
	if got := dev.buffers[info.primary].desc.Usage; got != gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst {
		t.Errorf("uniform usage = %v", got)
	}

	if got, ok := s.Buffer("info"); !ok || got != info {
		t.Error("Buffer(info) lookup failed")
	}
	if _, ok := s.Buffer("missing"); ok {
		t.Error("Buffer(missing) should not be found")
	}
	if got := s.Buffers(); len(got) != 2 || got[0] != data || got[1] != info {
		t.Errorf("Buffers() = %v, want creation order", got)
	}
}

func TestCreateBufferStagingFailure(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	before := dev.live()
	d, _ := StructuredDescriptor[uint32]("data", 0, 0, 4)

	// The primary allocation succeeds and the staging one fails.
	s.device = &stagingFailDevice{fakeDevice: dev, failAfter: 1}
	_, err := s.CreateBuffer(d)
	s.device = dev

	if !errors.Is(err, errInjected) {
		t.Fatalf("CreateBuffer error = %v, want injected failure", err)
	}
	if dev.live() != before {
		t.Errorf("live resources = %d, want %d", dev.live(), before)
	}
	if _, ok := s.Buffer("data"); ok {
		t.Error("failed buffer should not be registered")
	}
}

// stagingFailDevice fails CreateBuffer after failAfter successful calls.
type stagingFailDevice struct {
	*fakeDevice
	failAfter int
}

func (d *stagingFailDevice) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if d.failAfter == 0 {
		return gpucore.InvalidID, errInjected
	}
	d.failAfter--
	return d.fakeDevice.CreateBuffer(desc)
}

func TestCreateBufferDuplicates(t *testing.T) {
	tests := []struct {
		name string
		desc func() (BufferDescriptor, error)
	}{
		{"same name", func() (BufferDescriptor, error) {
			return StructuredDescriptor[float32]("a", 3, 3, 1)
		}},
		{"same slot", func() (BufferDescriptor, error) {
			return StructuredDescriptor[float32]("b", 0, 0, 1)
		}},
		{"same name uniform", func() (BufferDescriptor, error) {
			return UniformDescriptor[float32]("a", 1, 0)
		}},
		{"same slot uniform", func() (BufferDescriptor, error) {
			return UniformDescriptor[float32]("c", 0, 0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			s := newFakeSession(t, dev)
			defer s.Close()

			d, err := StructuredDescriptor[float32]("a", 0, 0, 1)
			mustCreate(t, s, d, err)
			live := dev.live()

			dup, err := tt.desc()
			if err != nil {
				t.Fatalf("descriptor failed: %v", err)
			}
			if _, err := s.CreateBuffer(dup); !errors.Is(err, ErrDuplicateResource) {
				t.Errorf("CreateBuffer error = %v, want ErrDuplicateResource", err)
			}
			if dev.live() != live {
				t.Errorf("duplicate allocated resources: live = %d, want %d", dev.live(), live)
			}
			if len(s.Buffers()) != 1 {
				t.Errorf("len(Buffers) = %d, want 1", len(s.Buffers()))
			}
		})
	}
}

func TestCreateBufferInvalidDescriptor(t *testing.T) {
	s := newFakeSession(t, newFakeDevice())
	defer s.Close()

	bad := BufferDescriptor{Name: "odd", TotalBytes: 10, BytesPerItem: 3}
	if _, err := s.CreateBuffer(bad); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("CreateBuffer error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestPipelineOrdering(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	// Created out of order on purpose.
	slots := []struct {
		name         string
		set, binding uint32
	}{
		{"d", 1, 2},
		{"b", 0, 1},
		{"c", 1, 0},
		{"a", 0, 0},
	}
	byName := make(map[string]*Buffer)
	for _, sl := range slots {
		d, err := StructuredDescriptor[float32](sl.name, sl.set, sl.binding, 4)
		byName[sl.name] = mustCreate(t, s, d, err)
	}

	if s.PipelineReady() {
		t.Fatal("pipeline should not exist before the first Dispatch")
	}
	if err := s.Dispatch(4, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !s.PipelineReady() {
		t.Fatal("pipeline should exist after Dispatch")
	}

	if len(dev.layoutOrder) != 2 || len(dev.groupOrder) != 2 {
		t.Fatalf("got %d layouts and %d groups, want 2 and 2", len(dev.layoutOrder), len(dev.groupOrder))
	}

	want := [][]string{{"a", "b"}, {"c", "d"}}
	for i, names := range want {
		layout := dev.layouts[dev.layoutOrder[i]]
		group := dev.groups[dev.groupOrder[i]]
		if group.Layout != dev.layoutOrder[i] {
			t.Errorf("group %d uses layout %d, want %d", i, group.Layout, dev.layoutOrder[i])
		}

		var gotNames []string
		for _, e := range layout.Entries {
			gotNames = append(gotNames, e.Name)
		}
		if diff := cmp.Diff(names, gotNames); diff != "" {
			t.Errorf("layout %d entries mismatch (-want +got):\n%s", i, diff)
		}

		for j, e := range group.Entries {
			b := byName[names[j]]
			if e.Buffer != b.primary || e.Binding != b.desc.LayoutBinding || e.Size != 16 {
				t.Errorf("group %d entry %d = %+v, want buffer %q", i, j, e, names[j])
			}
			if layout.Entries[j].Binding != e.Binding {
				t.Errorf("group %d entry %d binding %d does not match layout binding %d",
					i, j, e.Binding, layout.Entries[j].Binding)
			}
		}
	}

	p := dev.pipelines[dev.pipelineOrder[0]]
	if p.EntryPoint != "main" || p.Shader != s.shader {
		t.Errorf("pipeline = %+v", p)
	}
	wantGroups := []gpucore.PipelineGroup{
		{Set: 0, Layout: dev.layoutOrder[0]},
		{Set: 1, Layout: dev.layoutOrder[1]},
	}
	if diff := cmp.Diff(wantGroups, p.Groups); diff != "" {
		t.Errorf("pipeline groups mismatch (-want +got):\n%s", diff)
	}

	if len(dev.dispatches) != 1 {
		t.Fatalf("dispatches = %d, want 1", len(dev.dispatches))
	}
	got := dev.dispatches[0]
	if got.x != 4 || got.y != 1 || got.z != 1 {
		t.Errorf("dispatch counts = (%d, %d, %d), want (4, 1, 1)", got.x, got.y, got.z)
	}
	if got.groups[0] != dev.groupOrder[0] || got.groups[1] != dev.groupOrder[1] {
		t.Errorf("bound groups = %v", got.groups)
	}
}

func TestPipelineSparseSets(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	d, err := StructuredDescriptor[float32]("late", 2, 0, 1)
	mustCreate(t, s, d, err)
	if err := s.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	p := dev.pipelines[dev.pipelineOrder[0]]
	if len(p.Groups) != 1 || p.Groups[0].Set != 2 {
		t.Errorf("pipeline groups = %+v, want one group at set 2", p.Groups)
	}
	if g := dev.dispatches[0].groups; len(g) != 1 || g[2] == gpucore.InvalidID {
		t.Errorf("bound groups = %v, want set 2 only", g)
	}
}

func TestPipelineInvalidation(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	d, err := StructuredDescriptor[float32]("a", 0, 0, 1)
	mustCreate(t, s, d, err)
	if err := s.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	first := dev.pipelineOrder[0]

	// A second dispatch reuses the pipeline.
	if err := s.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(dev.pipelineOrder) != 1 {
		t.Errorf("pipelines built = %d, want 1", len(dev.pipelineOrder))
	}

	d, err = StructuredDescriptor[float32]("b", 0, 1, 1)
	mustCreate(t, s, d, err)
	if s.PipelineReady() {
		t.Error("CreateBuffer should invalidate the pipeline")
	}
	if _, ok := dev.pipelines[first]; ok {
		t.Error("stale pipeline should be destroyed")
	}
	if len(dev.layouts) != 0 || len(dev.groups) != 0 {
		t.Errorf("stale layouts (%d) or groups (%d) left", len(dev.layouts), len(dev.groups))
	}

	if err := s.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if n := len(dev.layouts[dev.layoutOrder[1]].Entries); n != 2 {
		t.Errorf("rebuilt layout has %d entries, want 2", n)
	}
}

func TestPipelineTooManySets(t *testing.T) {
	dev := newFakeDevice()
	dev.features.MaxBindGroups = 2
	s := newFakeSession(t, dev)
	defer s.Close()

	d, err := StructuredDescriptor[float32]("a", 2, 0, 1)
	mustCreate(t, s, d, err)
	live := dev.live()
	if err := s.Dispatch(1, 1, 1); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Dispatch error = %v, want ErrNotSupported", err)
	}
	if dev.live() != live || s.PipelineReady() {
		t.Error("failed pipeline build should leave nothing behind")
	}
}

func TestPipelineBuildFailure(t *testing.T) {
	for _, step := range []string{"CreateBindGroupLayout", "CreateBindGroup", "CreateComputePipeline"} {
		t.Run(step, func(t *testing.T) {
			dev := newFakeDevice()
			s := newFakeSession(t, dev)
			defer s.Close()

			d, err := StructuredDescriptor[float32]("a", 0, 0, 1)
			mustCreate(t, s, d, err)
			d, err = UniformDescriptor[float32]("u", 1, 0)
			mustCreate(t, s, d, err)
			live := dev.live()

			dev.failOn[step] = true
			if err := s.Dispatch(1, 1, 1); !errors.Is(err, errInjected) {
				t.Errorf("Dispatch error = %v, want injected failure", err)
			}
			if dev.live() != live {
				t.Errorf("live = %d, want %d", dev.live(), live)
			}
			if s.PipelineReady() {
				t.Error("pipeline should not be ready after a failed build")
			}

			dev.failOn[step] = false
			if err := s.Dispatch(1, 1, 1); err != nil {
				t.Errorf("retry Dispatch failed: %v", err)
			}
		})
	}
}

func TestDispatchZeroCount(t *testing.T) {
	s := newFakeSession(t, newFakeDevice())
	defer s.Close()

	for _, c := range [][3]uint32{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}} {
		if err := s.Dispatch(c[0], c[1], c[2]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Dispatch%v error = %v, want ErrOutOfRange", c, err)
		}
	}
}

func TestDispatchWithoutBuffers(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	if err := s.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if p := dev.pipelines[dev.pipelineOrder[0]]; len(p.Groups) != 0 {
		t.Errorf("pipeline groups = %v, want none", p.Groups)
	}
}

func TestWriteRead(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	d, err := StructuredDescriptor[int32]("data", 0, 0, 4)
	b := mustCreate(t, s, d, err)

	in := []int32{1, -2, 3, -4}
	if err := Write(b, in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read[int32](b)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Reinterpretation: the 16 bytes read as 8 int16 halves.
	halves, err := Read[int16](b)
	if err != nil {
		t.Fatalf("Read[int16] failed: %v", err)
	}
	if len(halves) != 8 {
		t.Errorf("len(Read[int16]) = %d, want 8", len(halves))
	}

	// 16 bytes is not a multiple of 3.
	if _, err := Read[[3]byte](b); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Read[[3]byte] error = %v, want ErrInvalidOperation", err)
	}

	partial := make([]int32, 2)
	if err := ReadInto(b, partial); err != nil {
		t.Fatalf("ReadInto failed: %v", err)
	}
	if diff := cmp.Diff(in[:2], partial); diff != "" {
		t.Errorf("partial read mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadBytes(t *testing.T) {
	s := newFakeSession(t, newFakeDevice())
	defer s.Close()

	d, err := NewStructuredDescriptor("raw", 0, 0, 1, 8)
	b := mustCreate(t, s, d, err)

	if err := b.WriteBytes([]byte("gpgpu!!!")); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	out := make([]byte, 5)
	if err := b.ReadBytes(out); err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if string(out) != "gpgpu" {
		t.Errorf("ReadBytes = %q, want gpgpu", out)
	}
}

func TestTransferBoundaries(t *testing.T) {
	s := newFakeSession(t, newFakeDevice())
	defer s.Close()

	d, err := StructuredDescriptor[uint32]("data", 0, 0, 4)
	b := mustCreate(t, s, d, err)

	exact := make([]uint32, 4)
	over := make([]uint32, 5)

	if err := Write(b, exact); err != nil {
		t.Errorf("Write of exactly the buffer size failed: %v", err)
	}
	if err := Write(b, over); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("oversized Write error = %v, want ErrOutOfRange", err)
	}
	if err := ReadInto(b, exact); err != nil {
		t.Errorf("ReadInto of exactly the buffer size failed: %v", err)
	}
	if err := ReadInto(b, over); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("oversized ReadInto error = %v, want ErrOutOfRange", err)
	}
	if err := Write(b, []uint32{}); err != nil {
		t.Errorf("empty Write failed: %v", err)
	}
	if err := b.WriteRaw(nil, 4); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("WriteRaw(nil, 4) error = %v, want ErrInvalidOperation", err)
	}
	if err := b.WriteRaw(nil, -1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("WriteRaw(nil, -1) error = %v, want ErrOutOfRange", err)
	}
}

func TestUniformBuffer(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)
	defer s.Close()

	type info struct {
		Width, Height int32
		_             [2]float32
	}
	d, err := UniformDescriptor[info]("Info", 0, 0)
	b := mustCreate(t, s, d, err)

	if err := WriteValue(b, info{Width: 640, Height: 480}); err != nil {
		t.Fatalf("WriteValue failed: %v", err)
	}
	if got := dev.buffers[b.primary].data[:4]; got[0] != 0x80 || got[1] != 0x02 {
		t.Errorf("uniform bytes = %v, want little-endian 640", got)
	}

	if _, err := Read[info](b); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Read error = %v, want ErrInvalidOperation", err)
	}
	if err := b.ReadRaw(nil, 0); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("ReadRaw error = %v, want ErrInvalidOperation", err)
	}
	if err := Write(b, make([]info, 2)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("oversized uniform write error = %v, want ErrOutOfRange", err)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)

	d, err := StructuredDescriptor[float32]("a", 0, 0, 4)
	b := mustCreate(t, s, d, err)
	d, err = UniformDescriptor[float32]("u", 1, 0)
	mustCreate(t, s, d, err)
	if err := s.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if dev.live() != 0 {
		t.Errorf("%d resources leaked", dev.live())
	}
	if !dev.destroyed {
		t.Error("device should be destroyed")
	}

	// Pipeline objects go before buffers; the device goes last.
	last := dev.calls[len(dev.calls)-1]
	if last != "Destroy" {
		t.Errorf("last call = %q, want Destroy", last)
	}
	pipelineAt := slices.Index(dev.calls, "DestroyComputePipeline")
	bufferAt := slices.Index(dev.calls, "DestroyBuffer")
	if pipelineAt < 0 || bufferAt < 0 || pipelineAt > bufferAt {
		t.Errorf("pipeline destroyed at %d, first buffer at %d", pipelineAt, bufferAt)
	}

	calls := len(dev.calls)
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if len(dev.calls) != calls {
		t.Error("second Close should not touch the device")
	}

	if _, err := s.CreateBuffer(d); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("CreateBuffer after Close error = %v, want ErrSessionClosed", err)
	}
	if err := s.Dispatch(1, 1, 1); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Dispatch after Close error = %v, want ErrSessionClosed", err)
	}
	if err := Write(b, []float32{1}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Write after Close error = %v, want ErrSessionClosed", err)
	}
	if _, err := Read[float32](b); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Read after Close error = %v, want ErrSessionClosed", err)
	}
}

func TestCloseReportsWaitErrors(t *testing.T) {
	dev := newFakeDevice()
	s := newFakeSession(t, dev)

	dev.failOn["WaitIdle"] = true
	if err := s.Close(); !errors.Is(err, errInjected) {
		t.Errorf("Close error = %v, want injected failure", err)
	}
	if !dev.destroyed {
		t.Error("device should be destroyed even when waiting fails")
	}
}
