package compute

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/compute/gpucore"
)

var errInjected = errors.New("injected failure")

// fakeDevice is an in-memory gpucore.Device that records every call.
type fakeDevice struct {
	features gpucore.Features
	failOn   map[string]bool

	calls  []string
	nextID uint64

	buffers   map[gpucore.BufferID]*fakeBuffer
	shaders   map[gpucore.ShaderModuleID]string
	layouts   map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDesc
	groups    map[gpucore.BindGroupID]gpucore.BindGroupDesc
	pipelines map[gpucore.ComputePipelineID]gpucore.ComputePipelineDesc

	// Creation order, for ordering assertions.
	layoutOrder   []gpucore.BindGroupLayoutID
	groupOrder    []gpucore.BindGroupID
	pipelineOrder []gpucore.ComputePipelineID

	dispatches []fakeDispatch
	destroyed  bool
}

type fakeBuffer struct {
	desc gpucore.BufferDesc
	data []byte
}

type fakeDispatch struct {
	pipeline gpucore.ComputePipelineID
	groups   map[uint32]gpucore.BindGroupID
	x, y, z  uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		features:  gpucore.Features{StructuredBuffers: true, MaxBindGroups: 4},
		failOn:    make(map[string]bool),
		buffers:   make(map[gpucore.BufferID]*fakeBuffer),
		shaders:   make(map[gpucore.ShaderModuleID]string),
		layouts:   make(map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDesc),
		groups:    make(map[gpucore.BindGroupID]gpucore.BindGroupDesc),
		pipelines: make(map[gpucore.ComputePipelineID]gpucore.ComputePipelineDesc),
	}
}

func (d *fakeDevice) call(name string) error {
	d.calls = append(d.calls, name)
	if d.failOn[name] {
		return fmt.Errorf("%s: %w", name, errInjected)
	}
	return nil
}

func (d *fakeDevice) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *fakeDevice) live() int {
	return len(d.buffers) + len(d.shaders) + len(d.layouts) + len(d.groups) + len(d.pipelines)
}

func (d *fakeDevice) Features() gpucore.Features { return d.features }

func (d *fakeDevice) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if err := d.call("CreateShaderModule"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ShaderModuleID(d.id())
	d.shaders[id] = desc.EntryPoint
	return id, nil
}

func (d *fakeDevice) DestroyShaderModule(id gpucore.ShaderModuleID) {
	_ = d.call("DestroyShaderModule")
	delete(d.shaders, id)
}

func (d *fakeDevice) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if err := d.call("CreateBuffer"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &fakeBuffer{desc: *desc, data: make([]byte, desc.Size)}
	return id, nil
}

func (d *fakeDevice) DestroyBuffer(id gpucore.BufferID) {
	_ = d.call("DestroyBuffer")
	delete(d.buffers, id)
}

func (d *fakeDevice) MapRead(id gpucore.BufferID) ([]byte, error) {
	if err := d.call("MapRead"); err != nil {
		return nil, err
	}
	b, ok := d.buffers[id]
	if !ok || !b.desc.Usage.Has(gpucore.BufferUsageMapRead) {
		return nil, fmt.Errorf("buffer %d is not mappable", id)
	}
	return b.data, nil
}

func (d *fakeDevice) Unmap(gpucore.BufferID) { _ = d.call("Unmap") }

func (d *fakeDevice) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if err := d.call("CreateBindGroupLayout"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BindGroupLayoutID(d.id())
	cp := *desc
	cp.Entries = slices.Clone(desc.Entries)
	d.layouts[id] = cp
	d.layoutOrder = append(d.layoutOrder, id)
	return id, nil
}

func (d *fakeDevice) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	_ = d.call("DestroyBindGroupLayout")
	delete(d.layouts, id)
}

func (d *fakeDevice) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if err := d.call("CreateBindGroup"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BindGroupID(d.id())
	cp := *desc
	cp.Entries = slices.Clone(desc.Entries)
	d.groups[id] = cp
	d.groupOrder = append(d.groupOrder, id)
	return id, nil
}

func (d *fakeDevice) DestroyBindGroup(id gpucore.BindGroupID) {
	_ = d.call("DestroyBindGroup")
	delete(d.groups, id)
}

func (d *fakeDevice) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if err := d.call("CreateComputePipeline"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ComputePipelineID(d.id())
	cp := *desc
	cp.Groups = slices.Clone(desc.Groups)
	d.pipelines[id] = cp
	d.pipelineOrder = append(d.pipelineOrder, id)
	return id, nil
}

func (d *fakeDevice) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	_ = d.call("DestroyComputePipeline")
	delete(d.pipelines, id)
}

func (d *fakeDevice) CreateCommandList() (gpucore.CommandList, error) {
	if err := d.call("CreateCommandList"); err != nil {
		return nil, err
	}
	return &fakeList{device: d}, nil
}

func (d *fakeDevice) Submit(list gpucore.CommandList) error {
	if err := d.call("Submit"); err != nil {
		return err
	}
	fl := list.(*fakeList)
	st := fakeDispatch{groups: make(map[uint32]gpucore.BindGroupID)}
	for _, op := range fl.ops {
		if err := op(&st); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDevice) WaitIdle() error { return d.call("WaitIdle") }

func (d *fakeDevice) Destroy() {
	_ = d.call("Destroy")
	d.destroyed = true
}

// fakeList records commands as closures run by Submit.
type fakeList struct {
	device *fakeDevice
	ops    []func(*fakeDispatch) error
}

func (l *fakeList) Begin() error {
	l.ops = l.ops[:0]
	return l.device.call("Begin")
}

func (l *fakeList) UpdateBuffer(dst gpucore.BufferID, offset uint64, data []byte) {
	_ = l.device.call("UpdateBuffer")
	data = slices.Clone(data)
	l.ops = append(l.ops, func(*fakeDispatch) error {
		b, ok := l.device.buffers[dst]
		if !ok {
			return fmt.Errorf("update of unknown buffer %d", dst)
		}
		copy(b.data[offset:], data)
		return nil
	})
}

func (l *fakeList) CopyBuffer(src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset, size uint64) {
	_ = l.device.call("CopyBuffer")
	l.ops = append(l.ops, func(*fakeDispatch) error {
		s, t := l.device.buffers[src], l.device.buffers[dst]
		if s == nil || t == nil {
			return fmt.Errorf("copy between unknown buffers %d and %d", src, dst)
		}
		copy(t.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		return nil
	})
}

func (l *fakeList) SetPipeline(p gpucore.ComputePipelineID) {
	_ = l.device.call("SetPipeline")
	l.ops = append(l.ops, func(st *fakeDispatch) error {
		st.pipeline = p
		return nil
	})
}

func (l *fakeList) SetBindGroup(index uint32, g gpucore.BindGroupID) {
	_ = l.device.call("SetBindGroup")
	l.ops = append(l.ops, func(st *fakeDispatch) error {
		st.groups[index] = g
		return nil
	})
}

func (l *fakeList) Dispatch(x, y, z uint32) {
	_ = l.device.call("Dispatch")
	l.ops = append(l.ops, func(st *fakeDispatch) error {
		rec := *st
		rec.groups = make(map[uint32]gpucore.BindGroupID, len(st.groups))
		for k, v := range st.groups {
			rec.groups[k] = v
		}
		rec.x, rec.y, rec.z = x, y, z
		l.device.dispatches = append(l.device.dispatches, rec)
		return nil
	})
}

func (l *fakeList) End() error { return l.device.call("End") }

func (l *fakeList) Destroy() { _ = l.device.call("DestroyCommandList") }
