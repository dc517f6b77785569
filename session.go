package compute

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/compute/gpucore"
)

// Session runs one compute shader against a dynamic set of buffers.
//
// A session owns a device, the compiled shader, one reusable command list
// and every buffer created through it. The pipeline (bind group layouts,
// bind groups, compute pipeline) is derived from the current buffer set:
// it is built lazily on the first Dispatch and discarded whenever a buffer
// is added.
//
// Session is not safe for concurrent use. All device operations block until
// the device reports completion.
type Session struct {
	backend    gpucore.Backend
	device     gpucore.Device
	features   gpucore.Features
	shader     gpucore.ShaderModuleID
	entryPoint string
	cmdList    gpucore.CommandList
	opts       options

	buffers []*Buffer
	byName  map[string]*Buffer
	bySlot  map[slot]*Buffer

	pipeline *pipelineArtifact

	closed bool
}

// slot is a (set, binding) pair.
type slot struct {
	set, binding uint32
}

// NewSession opens a device on the named backend and compiles source for
// the compute stage with the given entry point.
//
// It fails with ErrNotSupported when the backend is not registered, not
// available on this host, or lacks read-write structured buffers. No
// device resources are retained on failure.
func NewSession(backend gpucore.Backend, source, entryPoint string, opts ...Option) (*Session, error) {
	p, ok := gpucore.Lookup(backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %q is not registered", ErrNotSupported, backend)
	}
	if !p.Available() {
		return nil, fmt.Errorf("%w: backend %q is not available", ErrNotSupported, backend)
	}

	dev, err := p.Open()
	if err != nil {
		return nil, fmt.Errorf("compute: open %s device: %w", backend, err)
	}
	return newSession(backend, dev, source, entryPoint, opts)
}

// NewSessionOnDevice creates a session on a device the caller already
// opened. The session takes ownership of dev and destroys it on Close or
// on failure.
func NewSessionOnDevice(dev gpucore.Device, source, entryPoint string, opts ...Option) (*Session, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrNotSupported)
	}
	return newSession("", dev, source, entryPoint, opts)
}

func newSession(backend gpucore.Backend, dev gpucore.Device, source, entryPoint string, opts []Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		backend:    backend,
		device:     dev,
		features:   dev.Features(),
		entryPoint: entryPoint,
		opts:       o,
		byName:     make(map[string]*Buffer),
		bySlot:     make(map[slot]*Buffer),
	}

	if !s.features.StructuredBuffers {
		s.releaseDevice()
		return nil, fmt.Errorf("%w: backend %q lacks read-write structured buffers", ErrNotSupported, backend)
	}

	shader, err := dev.CreateShaderModule(&gpucore.ShaderModuleDesc{
		Label:      o.label + ":shader",
		Source:     source,
		EntryPoint: entryPoint,
		Stage:      gpucore.ShaderStageCompute,
	})
	if err != nil {
		s.releaseDevice()
		return nil, fmt.Errorf("compute: compile shader %q: %w", entryPoint, err)
	}
	s.shader = shader

	cl, err := dev.CreateCommandList()
	if err != nil {
		dev.DestroyShaderModule(shader)
		s.releaseDevice()
		return nil, fmt.Errorf("compute: create command list: %w", err)
	}
	s.cmdList = cl

	s.logger().Info("compute: session created",
		"backend", backend,
		"label", o.label,
		"entry_point", entryPoint,
		"max_bind_groups", s.features.MaxBindGroups)
	return s, nil
}

// releaseDevice waits for the device and destroys it.
func (s *Session) releaseDevice() {
	if err := s.device.WaitIdle(); err != nil {
		s.logger().Warn("compute: wait idle before release", "err", err)
	}
	s.device.Destroy()
	s.device = nil
}

func (s *Session) logger() *slog.Logger {
	if s.opts.logger != nil {
		return s.opts.logger
	}
	return Logger()
}

// Backend returns the backend the session was opened on. It is empty for
// sessions created with NewSessionOnDevice.
func (s *Session) Backend() gpucore.Backend { return s.backend }

// Features returns the capabilities of the session's device.
func (s *Session) Features() gpucore.Features { return s.features }

// EntryPoint returns the shader entry point name.
func (s *Session) EntryPoint() string { return s.entryPoint }

// CreateBuffer allocates a buffer described by desc and adds it to the
// session. The pipeline is rebuilt on the next Dispatch.
//
// A buffer whose name or (set, binding) slot is already taken fails with
// ErrDuplicateResource before anything is allocated.
func (s *Session) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.byName[desc.Name]; ok {
		return nil, fmt.Errorf("%w: name %q already taken", ErrDuplicateResource, desc.Name)
	}
	key := slot{desc.LayoutSet, desc.LayoutBinding}
	if other, ok := s.bySlot[key]; ok {
		return nil, fmt.Errorf("%w: set %d binding %d already taken by %q",
			ErrDuplicateResource, desc.LayoutSet, desc.LayoutBinding, other.desc.Name)
	}

	b, err := newBuffer(s, desc)
	if err != nil {
		return nil, err
	}

	s.buffers = append(s.buffers, b)
	s.byName[desc.Name] = b
	s.bySlot[key] = b
	s.invalidatePipeline()

	s.logger().Debug("compute: buffer created",
		"name", desc.Name,
		"kind", desc.Kind,
		"set", desc.LayoutSet,
		"binding", desc.LayoutBinding,
		"bytes", desc.TotalBytes)
	return b, nil
}

// Buffer returns the buffer with the given name.
func (s *Session) Buffer(name string) (*Buffer, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// Buffers returns the session's buffers in creation order.
func (s *Session) Buffers() []*Buffer {
	out := make([]*Buffer, len(s.buffers))
	copy(out, s.buffers)
	return out
}

// PipelineReady reports whether a pipeline matching the current buffer
// set has been built.
func (s *Session) PipelineReady() bool {
	return s.pipeline != nil
}

// Dispatch runs the shader with the given workgroup counts and waits for
// it to finish. Results are visible to Read as soon as Dispatch returns.
func (s *Session) Dispatch(x, y, z uint32) error {
	if s.closed {
		return ErrSessionClosed
	}
	if x == 0 || y == 0 || z == 0 {
		return fmt.Errorf("%w: workgroup count (%d, %d, %d)", ErrOutOfRange, x, y, z)
	}
	if err := s.ensurePipeline(); err != nil {
		return err
	}

	p := s.pipeline
	err := s.submit("dispatch", func(cl gpucore.CommandList) {
		cl.SetPipeline(p.pipeline)
		for i, g := range p.groups {
			cl.SetBindGroup(p.sets[i], g)
		}
		cl.Dispatch(x, y, z)
	})
	if err != nil {
		return err
	}

	s.logger().Debug("compute: dispatched", "x", x, "y", y, "z", z)
	return nil
}

// submit records a command list with record, submits it and waits for
// the device to go idle.
func (s *Session) submit(what string, record func(cl gpucore.CommandList)) error {
	if s.closed {
		return ErrSessionClosed
	}
	cl := s.cmdList
	if err := cl.Begin(); err != nil {
		return fmt.Errorf("compute: %s: begin: %w", what, err)
	}
	record(cl)
	if err := cl.End(); err != nil {
		return fmt.Errorf("compute: %s: end: %w", what, err)
	}
	if err := s.device.Submit(cl); err != nil {
		return fmt.Errorf("compute: %s: submit: %w", what, err)
	}
	if err := s.device.WaitIdle(); err != nil {
		return fmt.Errorf("compute: %s: wait: %w", what, err)
	}
	return nil
}

// Close releases every device resource the session owns, then the device.
// Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.device.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("compute: wait idle: %w", err))
	}

	s.invalidatePipeline()
	if s.cmdList != nil {
		s.cmdList.Destroy()
		s.cmdList = nil
	}
	if s.shader != gpucore.InvalidID {
		s.device.DestroyShaderModule(s.shader)
		s.shader = gpucore.InvalidID
	}
	for _, b := range s.buffers {
		b.destroy(s.device)
	}

	if err := s.device.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("compute: wait idle: %w", err))
	}
	s.device.Destroy()

	err := errors.Join(errs...)
	if err != nil {
		s.logger().Warn("compute: session closed with errors", "err", err)
	} else {
		s.logger().Info("compute: session closed", "backend", s.backend, "buffers", len(s.buffers))
	}
	return err
}
