// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/compute/internal/parallel"
)

// DefaultMaxBindGroups matches the WebGPU default limit.
const DefaultMaxBindGroups = 4

// Option configures a software Device.
type Option func(*options)

type options struct {
	structuredBuffers bool
	maxBindGroups     uint32
	pool              *parallel.WorkerPool
}

// WithoutStructuredBuffers makes the device report no read-write
// structured buffer support, as some GPU backends do.
func WithoutStructuredBuffers() Option {
	return func(o *options) {
		o.structuredBuffers = false
	}
}

// WithMaxBindGroups sets the reported bind group limit. Zero means unlimited.
func WithMaxBindGroups(n uint32) Option {
	return func(o *options) {
		o.maxBindGroups = n
	}
}

// WithPool runs workgroups on p instead of the shared pool.
func WithPool(p *parallel.WorkerPool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// Device implements gpucore.Device in host memory.
//
// Thread Safety: the resource maps are protected by a mutex. Kernels of a
// single dispatch run concurrently; dispatches themselves are sequential.
type Device struct {
	mu   sync.Mutex
	opts options

	nextID atomic.Uint64

	buffers   map[gpucore.BufferID]*buffer
	shaders   map[gpucore.ShaderModuleID]Kernel
	layouts   map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDesc
	groups    map[gpucore.BindGroupID]*bindGroup
	pipelines map[gpucore.ComputePipelineID]*pipeline

	submissions atomic.Uint64
	destroyed   bool
}

type buffer struct {
	data  []byte
	usage gpucore.BufferUsage
}

type bindGroup struct {
	layout  gpucore.BindGroupLayoutID
	entries []gpucore.BindGroupEntry
}

type pipeline struct {
	kernel Kernel
	groups []gpucore.PipelineGroup
}

var _ gpucore.Device = (*Device)(nil)

// New creates a software device.
func New(opts ...Option) *Device {
	o := options{structuredBuffers: true, maxBindGroups: DefaultMaxBindGroups}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		opts:      o,
		buffers:   make(map[gpucore.BufferID]*buffer),
		shaders:   make(map[gpucore.ShaderModuleID]Kernel),
		layouts:   make(map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDesc),
		groups:    make(map[gpucore.BindGroupID]*bindGroup),
		pipelines: make(map[gpucore.ComputePipelineID]*pipeline),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Features reports the configured capabilities.
func (d *Device) Features() gpucore.Features {
	return gpucore.Features{
		StructuredBuffers: d.opts.structuredBuffers,
		MaxBindGroups:     d.opts.maxBindGroups,
	}
}

func (d *Device) workers() int {
	if d.opts.pool != nil {
		return d.opts.pool.Workers()
	}
	return parallel.Default().Workers()
}

// LiveResources returns the number of resources not yet destroyed.
func (d *Device) LiveResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers) + len(d.shaders) + len(d.layouts) + len(d.groups) + len(d.pipelines)
}

// Submissions returns the number of command lists submitted so far.
func (d *Device) Submissions() uint64 {
	return d.submissions.Load()
}

// Destroyed reports whether Destroy has been called.
func (d *Device) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// CreateShaderModule resolves desc.EntryPoint to a registered kernel.
// The source text is ignored.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil shader module descriptor")
	}
	k, ok := LookupKernel(desc.EntryPoint)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %q", ErrUnknownKernel, desc.EntryPoint)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}
	id := gpucore.ShaderModuleID(d.newID())
	d.shaders[id] = k
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, id)
}

// CreateBuffer allocates zeroed host memory. Storage is 8-byte aligned so
// kernels can view it as any scalar or vector type.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil buffer descriptor")
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("software: buffer size must be positive")
	}
	if desc.Usage.Has(gpucore.BufferUsageStorage) && !d.opts.structuredBuffers {
		return gpucore.InvalidID, fmt.Errorf("software: storage buffers are disabled")
	}

	words := make([]uint64, (desc.Size+7)/8)
	data := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), desc.Size)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{data: data, usage: desc.Usage}
	return id, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

// MapRead returns the staging buffer's memory.
func (d *Device) MapRead(id gpucore.BufferID) ([]byte, error) {
	b, err := d.buffer(id)
	if err != nil {
		return nil, err
	}
	if !b.usage.Has(gpucore.BufferUsageMapRead) {
		return nil, fmt.Errorf("software: buffer %d is not mappable", id)
	}
	return b.data, nil
}

// Unmap is a no-op: host memory is always mapped.
func (d *Device) Unmap(gpucore.BufferID) {}

func (d *Device) buffer(id gpucore.BufferID) (*buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	return b, nil
}

// CreateBindGroupLayout records the layout entries.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil bind group layout descriptor")
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return gpucore.InvalidID, fmt.Errorf("software: layout %q: binding %d declared twice", desc.Label, e.Binding)
		}
		seen[e.Binding] = true
	}

	cp := *desc
	cp.Entries = append([]gpucore.BindGroupLayoutEntry(nil), desc.Entries...)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}
	id := gpucore.BindGroupLayoutID(d.newID())
	d.layouts[id] = &cp
	return id, nil
}

// DestroyBindGroupLayout releases a layout.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.layouts, id)
}

// CreateBindGroup checks the entries against the layout, position by
// position, and records them.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil bind group descriptor")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}
	layout, ok := d.layouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, desc.Layout)
	}
	if len(layout.Entries) != len(desc.Entries) {
		return gpucore.InvalidID, fmt.Errorf("software: bind group %q has %d entries, layout has %d",
			desc.Label, len(desc.Entries), len(layout.Entries))
	}
	for i, e := range desc.Entries {
		le := layout.Entries[i]
		if e.Binding != le.Binding {
			return gpucore.InvalidID, fmt.Errorf("software: bind group %q entry %d binds %d, layout declares %d",
				desc.Label, i, e.Binding, le.Binding)
		}
		b, ok := d.buffers[e.Buffer]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: buffer %d at binding %d", ErrUnknownResource, e.Buffer, e.Binding)
		}
		want := gpucore.BufferUsageStorage
		if le.Type == gpucore.BindingTypeUniformBuffer {
			want = gpucore.BufferUsageUniform
		}
		if !b.usage.Has(want) {
			return gpucore.InvalidID, fmt.Errorf("software: buffer %d at binding %d lacks %s usage",
				e.Buffer, e.Binding, le.Type)
		}
		if e.Offset+e.Size > uint64(len(b.data)) {
			return gpucore.InvalidID, fmt.Errorf("%w: binding %d range [%d, %d) of %d-byte buffer",
				ErrOutOfBounds, e.Binding, e.Offset, e.Offset+e.Size, len(b.data))
		}
	}

	id := gpucore.BindGroupID(d.newID())
	d.groups[id] = &bindGroup{
		layout:  desc.Layout,
		entries: append([]gpucore.BindGroupEntry(nil), desc.Entries...),
	}
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.groups, id)
}

// CreateComputePipeline binds the shader's kernel to the group layouts.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil compute pipeline descriptor")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}
	k, ok := d.shaders[desc.Shader]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", ErrUnknownResource, desc.Shader)
	}
	for i, g := range desc.Groups {
		if _, ok := d.layouts[g.Layout]; !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, g.Layout)
		}
		if limit := d.opts.maxBindGroups; limit > 0 && g.Set >= limit {
			return gpucore.InvalidID, fmt.Errorf("software: set %d exceeds %d bind groups", g.Set, limit)
		}
		if i > 0 && g.Set <= desc.Groups[i-1].Set {
			return gpucore.InvalidID, fmt.Errorf("software: pipeline groups not in ascending set order")
		}
	}

	id := gpucore.ComputePipelineID(d.newID())
	d.pipelines[id] = &pipeline{
		kernel: k,
		groups: append([]gpucore.PipelineGroup(nil), desc.Groups...),
	}
	return id, nil
}

// DestroyComputePipeline releases a pipeline.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, id)
}

// CreateCommandList creates a reusable command list.
func (d *Device) CreateCommandList() (gpucore.CommandList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	return &commandList{device: d}, nil
}

// Submit executes an ended command list synchronously.
func (d *Device) Submit(list gpucore.CommandList) error {
	cl, ok := list.(*commandList)
	if !ok || cl.device != d {
		return fmt.Errorf("software: command list %T does not belong to this device", list)
	}
	if d.Destroyed() {
		return ErrDeviceDestroyed
	}
	d.submissions.Add(1)
	return cl.execute()
}

// WaitIdle returns immediately: Submit does not return before the work is done.
func (d *Device) WaitIdle() error { return nil }

// Destroy releases every resource. It is safe to call more than once.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}
	d.destroyed = true
	clear(d.buffers)
	clear(d.shaders)
	clear(d.layouts)
	clear(d.groups)
	clear(d.pipelines)
}
