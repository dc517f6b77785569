// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device implements gpucore.Device on a gogpu/wgpu HAL device.
//
// Resources are tracked in maps from gpucore IDs to HAL objects. Destroy
// releases everything still alive and, unless the device was adopted from
// a shared provider, the HAL device and instance themselves.
//
// Thread Safety: the resource maps are protected by a mutex; command
// submission is expected from one goroutine.
type Device struct {
	mu sync.Mutex

	instance hal.Instance // nil for shared devices
	device   hal.Device
	queue    hal.Queue
	shared   bool

	backend     gpucore.Backend
	adapterName string
	limits      gputypes.Limits
	opts        options

	nextID atomic.Uint64

	buffers   map[gpucore.BufferID]*bufferEntry
	shaders   map[gpucore.ShaderModuleID]*shaderEntry
	layouts   map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	groups    map[gpucore.BindGroupID]hal.BindGroup
	pipelines map[gpucore.ComputePipelineID]*pipelineEntry
	mapped    map[gpucore.BufferID][]byte

	destroyed bool
}

type bufferEntry struct {
	buf   hal.Buffer
	size  uint64
	usage gpucore.BufferUsage
}

type shaderEntry struct {
	module     hal.ShaderModule
	entryPoint string
}

// pipelineEntry owns the pipeline layout and the empty layouts that fill
// unused group indices below the highest set.
type pipelineEntry struct {
	pipeline hal.ComputePipeline
	layout   hal.PipelineLayout
	fillers  []hal.BindGroupLayout
}

func newDevice(backend gpucore.Backend, device hal.Device, queue hal.Queue, o options) *Device {
	d := &Device{
		device:    device,
		queue:     queue,
		backend:   backend,
		limits:    o.limits,
		opts:      o,
		buffers:   make(map[gpucore.BufferID]*bufferEntry),
		shaders:   make(map[gpucore.ShaderModuleID]*shaderEntry),
		layouts:   make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		groups:    make(map[gpucore.BindGroupID]hal.BindGroup),
		pipelines: make(map[gpucore.ComputePipelineID]*pipelineEntry),
		mapped:    make(map[gpucore.BufferID][]byte),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Backend returns the backend identifier the device was opened with.
func (d *Device) Backend() gpucore.Backend { return d.backend }

// AdapterName returns the name of the adapter the device was opened on.
// It is empty for shared devices.
func (d *Device) AdapterName() string { return d.adapterName }

// Shared reports whether the device was adopted from an external provider.
func (d *Device) Shared() bool { return d.shared }

// Features reports storage buffer support and the bind group limit.
func (d *Device) Features() gpucore.Features {
	return gpucore.Features{
		StructuredBuffers: true,
		MaxBindGroups:     d.limits.MaxBindGroups,
	}
}

// === Shader Compilation ===

// CreateShaderModule compiles WGSL source to SPIR-V and creates a module.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil shader module descriptor")
	}
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}

	spirv, err := compileWGSL(desc.Source)
	if err != nil {
		return gpucore.InvalidID, err
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: desc.Label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create shader module: %w", err)
	}

	id := gpucore.ShaderModuleID(d.newID())
	d.mu.Lock()
	d.shaders[id] = &shaderEntry{module: module, entryPoint: desc.EntryPoint}
	d.mu.Unlock()

	slogger().Debug("wgpu: shader module created",
		"label", desc.Label,
		"entry_point", desc.EntryPoint,
		"spirv_words", len(spirv))
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	s, ok := d.shaders[id]
	delete(d.shaders, id)
	d.mu.Unlock()

	if ok {
		d.device.DestroyShaderModule(s.module)
	}
}

// === Buffer Management ===

// CreateBuffer creates a HAL buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil buffer descriptor")
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: buffer size must be positive")
	}
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: convertBufferUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}

	id := gpucore.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = &bufferEntry{buf: buf, size: desc.Size, usage: desc.Usage}
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer releases a HAL buffer and drops any mapping of it.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	delete(d.buffers, id)
	delete(d.mapped, id)
	d.mu.Unlock()

	if ok {
		d.device.DestroyBuffer(b.buf)
	}
}

// MapRead reads the whole staging buffer back to host memory.
func (d *Device) MapRead(id gpucore.BufferID) ([]byte, error) {
	b, err := d.buffer(id)
	if err != nil {
		return nil, err
	}
	if !b.usage.Has(gpucore.BufferUsageMapRead) {
		return nil, fmt.Errorf("wgpu: buffer %d is not mappable", id)
	}

	data := make([]byte, b.size)
	if err := d.queue.ReadBuffer(b.buf, 0, data); err != nil {
		return nil, fmt.Errorf("wgpu: read buffer %d: %w", id, err)
	}

	d.mu.Lock()
	d.mapped[id] = data
	d.mu.Unlock()
	return data, nil
}

// Unmap drops the host copy created by MapRead.
func (d *Device) Unmap(id gpucore.BufferID) {
	d.mu.Lock()
	delete(d.mapped, id)
	d.mu.Unlock()
}

func (d *Device) buffer(id gpucore.BufferID) (*bufferEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	return b, nil
}

// === Pipeline Management ===

// CreateBindGroupLayout creates a bind group layout with compute visibility.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil bind group layout descriptor")
	}
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = convertBindGroupLayoutEntry(e)
	}

	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group layout %q: %w", desc.Label, err)
	}

	id := gpucore.BindGroupLayoutID(d.newID())
	d.mu.Lock()
	d.layouts[id] = layout
	d.mu.Unlock()
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.mu.Lock()
	l, ok := d.layouts[id]
	delete(d.layouts, id)
	d.mu.Unlock()

	if ok {
		d.device.DestroyBindGroupLayout(l)
	}
}

// CreateBindGroup binds buffers to a layout.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil bind group descriptor")
	}
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}

	d.mu.Lock()
	layout, ok := d.layouts[desc.Layout]
	if !ok {
		d.mu.Unlock()
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, desc.Layout)
	}
	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		b, ok := d.buffers[e.Buffer]
		if !ok {
			d.mu.Unlock()
			return gpucore.InvalidID, fmt.Errorf("%w: buffer %d at binding %d", ErrUnknownResource, e.Buffer, e.Binding)
		}
		size := e.Size
		if size == 0 {
			size = b.size - e.Offset
		}
		entries[i] = gputypes.BindGroupEntry{
			Binding: e.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Offset: e.Offset,
				Size:   size,
			},
		}
	}
	d.mu.Unlock()

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group %q: %w", desc.Label, err)
	}

	id := gpucore.BindGroupID(d.newID())
	d.mu.Lock()
	d.groups[id] = group
	d.mu.Unlock()
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	g, ok := d.groups[id]
	delete(d.groups, id)
	d.mu.Unlock()

	if ok {
		d.device.DestroyBindGroup(g)
	}
}

// CreateComputePipeline creates a pipeline layout over desc.Groups and a
// compute pipeline using it. Group indices with no layout get an empty one.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil compute pipeline descriptor")
	}
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}

	d.mu.Lock()
	shader, ok := d.shaders[desc.Shader]
	if !ok {
		d.mu.Unlock()
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", ErrUnknownResource, desc.Shader)
	}
	var count uint32
	for _, g := range desc.Groups {
		if g.Set+1 > count {
			count = g.Set + 1
		}
	}
	halLayouts := make([]hal.BindGroupLayout, count)
	for _, g := range desc.Groups {
		l, ok := d.layouts[g.Layout]
		if !ok {
			d.mu.Unlock()
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, g.Layout)
		}
		halLayouts[g.Set] = l
	}
	d.mu.Unlock()

	entry := &pipelineEntry{}
	fail := func(err error) (gpucore.ComputePipelineID, error) {
		entry.destroy(d.device)
		return gpucore.InvalidID, err
	}

	for i := range halLayouts {
		if halLayouts[i] != nil {
			continue
		}
		empty, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: fmt.Sprintf("%s_empty%d", desc.Label, i),
		})
		if err != nil {
			return fail(fmt.Errorf("wgpu: create empty layout for group %d: %w", i, err))
		}
		entry.fillers = append(entry.fillers, empty)
		halLayouts[i] = empty
	}

	pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pl",
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return fail(fmt.Errorf("wgpu: create pipeline layout: %w", err))
	}
	entry.layout = pipelineLayout

	entryPoint := desc.EntryPoint
	if entryPoint == "" {
		entryPoint = shader.entryPoint
	}
	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     shader.module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return fail(fmt.Errorf("wgpu: create compute pipeline %q: %w", desc.Label, err))
	}
	entry.pipeline = pipeline

	id := gpucore.ComputePipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = entry
	d.mu.Unlock()

	slogger().Debug("wgpu: compute pipeline created",
		"label", desc.Label,
		"groups", len(halLayouts),
		"empty_groups", len(entry.fillers))
	return id, nil
}

// DestroyComputePipeline releases a pipeline and the layouts it owns.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	p, ok := d.pipelines[id]
	delete(d.pipelines, id)
	d.mu.Unlock()

	if ok {
		p.destroy(d.device)
	}
}

func (p *pipelineEntry) destroy(device hal.Device) {
	if p.pipeline != nil {
		device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	for _, l := range p.fillers {
		device.DestroyBindGroupLayout(l)
	}
	p.fillers = nil
}

// === Command Recording and Execution ===

// CreateCommandList creates a reusable command list for this device.
func (d *Device) CreateCommandList() (gpucore.CommandList, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	return &commandList{device: d}, nil
}

// Submit executes an ended command list and waits for it to complete.
func (d *Device) Submit(list gpucore.CommandList) error {
	cl, ok := list.(*commandList)
	if !ok || cl.device != d {
		return fmt.Errorf("wgpu: command list %T does not belong to this device", list)
	}
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	return cl.execute()
}

// WaitIdle blocks until the queue has drained.
func (d *Device) WaitIdle() error {
	if d.destroyed {
		return nil
	}
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return d.wait(fence)
}

func (d *Device) wait(fence hal.Fence) error {
	ok, err := d.device.Wait(fence, 1, d.opts.timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrTimeout, d.opts.timeout)
	}
	return nil
}

// Destroy releases every remaining resource, then the device and instance
// unless they are shared.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	pipelines, groups, layouts := d.pipelines, d.groups, d.layouts
	buffers, shaders := d.buffers, d.shaders
	d.pipelines = make(map[gpucore.ComputePipelineID]*pipelineEntry)
	d.groups = make(map[gpucore.BindGroupID]hal.BindGroup)
	d.layouts = make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout)
	d.buffers = make(map[gpucore.BufferID]*bufferEntry)
	d.shaders = make(map[gpucore.ShaderModuleID]*shaderEntry)
	d.mapped = make(map[gpucore.BufferID][]byte)
	d.mu.Unlock()

	leaked := len(pipelines) + len(groups) + len(layouts) + len(buffers) + len(shaders)
	if leaked > 0 {
		slogger().Warn("wgpu: releasing resources still alive at device destroy", "count", leaked)
	}
	for _, p := range pipelines {
		p.destroy(d.device)
	}
	for _, g := range groups {
		d.device.DestroyBindGroup(g)
	}
	for _, l := range layouts {
		d.device.DestroyBindGroupLayout(l)
	}
	for _, b := range buffers {
		d.device.DestroyBuffer(b.buf)
	}
	for _, s := range shaders {
		d.device.DestroyShaderModule(s.module)
	}

	if d.shared {
		// Shared devices belong to the host application.
		d.device = nil
		d.queue = nil
		return
	}
	d.device.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	slogger().Info("wgpu: device destroyed", "backend", d.backend, "adapter", d.adapterName)
}

// === Type Conversion Helpers ===

// convertBufferUsage converts gpucore.BufferUsage to gputypes.BufferUsage.
func convertBufferUsage(usage gpucore.BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage
	if usage.Has(gpucore.BufferUsageMapRead) {
		result |= gputypes.BufferUsageMapRead
	}
	if usage.Has(gpucore.BufferUsageCopySrc) {
		result |= gputypes.BufferUsageCopySrc
	}
	if usage.Has(gpucore.BufferUsageCopyDst) {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage.Has(gpucore.BufferUsageUniform) {
		result |= gputypes.BufferUsageUniform
	}
	if usage.Has(gpucore.BufferUsageStorage) {
		result |= gputypes.BufferUsageStorage
	}
	return result
}

// convertBindGroupLayoutEntry converts a gpucore layout entry to gputypes.
func convertBindGroupLayoutEntry(entry gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	result := gputypes.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case gpucore.BindingTypeStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	}
	return result
}
