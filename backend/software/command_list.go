// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"slices"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/compute/internal/parallel"
)

type listState uint8

const (
	stateIdle listState = iota
	stateRecording
	stateEnded
)

// commandList records closures over the device and runs them in order
// at submission.
type commandList struct {
	device *Device
	state  listState
	ops    []func(*execState) error
	err    error
}

// execState is the pipeline and bind group state while a list executes.
type execState struct {
	pipeline gpucore.ComputePipelineID
	groups   map[uint32]gpucore.BindGroupID
}

var _ gpucore.CommandList = (*commandList)(nil)

func (cl *commandList) Begin() error {
	if cl.device == nil {
		return ErrDeviceDestroyed
	}
	cl.ops = cl.ops[:0]
	cl.err = nil
	cl.state = stateRecording
	return nil
}

func (cl *commandList) record(fn func(*execState) error) {
	if cl.state != stateRecording {
		if cl.err == nil {
			cl.err = ErrNotRecording
		}
		return
	}
	cl.ops = append(cl.ops, fn)
}

func (cl *commandList) UpdateBuffer(dst gpucore.BufferID, offset uint64, data []byte) {
	data = slices.Clone(data)
	d := cl.device
	cl.record(func(*execState) error {
		b, err := d.buffer(dst)
		if err != nil {
			return err
		}
		if offset > uint64(len(b.data)) || uint64(len(data)) > uint64(len(b.data))-offset {
			return fmt.Errorf("%w: update of %d bytes at %d into %d-byte buffer",
				ErrOutOfBounds, len(data), offset, len(b.data))
		}
		copy(b.data[offset:], data)
		return nil
	})
}

func (cl *commandList) CopyBuffer(src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset, size uint64) {
	d := cl.device
	cl.record(func(*execState) error {
		s, err := d.buffer(src)
		if err != nil {
			return err
		}
		t, err := d.buffer(dst)
		if err != nil {
			return err
		}
		if !s.usage.Has(gpucore.BufferUsageCopySrc) || !t.usage.Has(gpucore.BufferUsageCopyDst) {
			return fmt.Errorf("software: copy %d -> %d without copy usage", src, dst)
		}
		if !inBounds(srcOffset, size, len(s.data)) || !inBounds(dstOffset, size, len(t.data)) {
			return fmt.Errorf("%w: copy of %d bytes", ErrOutOfBounds, size)
		}
		copy(t.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		return nil
	})
}

func inBounds(offset, size uint64, length int) bool {
	return offset <= uint64(length) && size <= uint64(length)-offset
}

func (cl *commandList) SetPipeline(pipeline gpucore.ComputePipelineID) {
	cl.record(func(st *execState) error {
		st.pipeline = pipeline
		return nil
	})
}

func (cl *commandList) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	cl.record(func(st *execState) error {
		st.groups[index] = group
		return nil
	})
}

func (cl *commandList) Dispatch(x, y, z uint32) {
	d := cl.device
	cl.record(func(st *execState) error {
		return d.dispatch(st, [3]uint32{x, y, z})
	})
}

func (cl *commandList) End() error {
	if cl.state != stateRecording {
		return ErrNotRecording
	}
	cl.state = stateEnded
	return cl.err
}

func (cl *commandList) Destroy() {
	cl.ops = nil
	cl.device = nil
	cl.state = stateIdle
}

func (cl *commandList) execute() error {
	if cl.state != stateEnded {
		return ErrNotRecording
	}
	if cl.err != nil {
		return cl.err
	}
	st := &execState{groups: make(map[uint32]gpucore.BindGroupID)}
	for i, fn := range cl.ops {
		if err := fn(st); err != nil {
			return fmt.Errorf("software: command %d: %w", i, err)
		}
	}
	return nil
}

// dispatch resolves the bound groups against the pipeline and runs the
// kernel once per workgroup.
func (d *Device) dispatch(st *execState, grid [3]uint32) error {
	d.mu.Lock()
	p, ok := d.pipelines[st.pipeline]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: compute pipeline %d", ErrUnknownResource, st.pipeline)
	}
	bindings := &Bindings{sets: make(map[uint32]map[uint32][]byte, len(p.groups))}
	for _, pg := range p.groups {
		gid, ok := st.groups[pg.Set]
		if !ok {
			d.mu.Unlock()
			return fmt.Errorf("software: no bind group set at index %d", pg.Set)
		}
		g, ok := d.groups[gid]
		if !ok {
			d.mu.Unlock()
			return fmt.Errorf("%w: bind group %d", ErrUnknownResource, gid)
		}
		if g.layout != pg.Layout {
			d.mu.Unlock()
			return fmt.Errorf("software: bind group %d does not match layout of set %d", gid, pg.Set)
		}
		set := make(map[uint32][]byte, len(g.entries))
		for _, e := range g.entries {
			b, ok := d.buffers[e.Buffer]
			if !ok {
				d.mu.Unlock()
				return fmt.Errorf("%w: buffer %d", ErrUnknownResource, e.Buffer)
			}
			set[e.Binding] = b.data[e.Offset : e.Offset+e.Size]
		}
		bindings.sets[pg.Set] = set
	}
	d.mu.Unlock()

	total := int(grid[0]) * int(grid[1]) * int(grid[2])
	slogger().Debug("software: dispatch",
		"x", grid[0], "y", grid[1], "z", grid[2], "sets", len(p.groups))

	plane := int(grid[0]) * int(grid[1])
	parallel.For(d.opts.pool, total, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			inv := Invocation{
				WorkgroupID: [3]uint32{
					uint32(i % int(grid[0])),
					uint32(i % plane / int(grid[0])),
					uint32(i / plane),
				},
				NumWorkgroups: grid,
			}
			p.kernel(inv, bindings)
		}
	})
	return nil
}
