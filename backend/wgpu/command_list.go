// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"
	"slices"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/wgpu/hal"
)

type listState uint8

const (
	stateIdle listState = iota
	stateRecording
	stateEnded
)

type opKind uint8

const (
	opUpdate opKind = iota
	opCopy
	opSetPipeline
	opSetBindGroup
	opDispatch
)

// op is one recorded command.
type op struct {
	kind opKind

	dst, src             gpucore.BufferID
	dstOffset, srcOffset uint64
	size                 uint64
	data                 []byte

	pipeline gpucore.ComputePipelineID
	index    uint32
	group    gpucore.BindGroupID

	x, y, z uint32
}

// commandList records commands and replays them at submission.
//
// Buffer updates go through the queue; copies and dispatches are encoded
// into a HAL command buffer. An update recorded after encoded commands
// first flushes those commands so the recorded order is preserved.
type commandList struct {
	device *Device
	state  listState
	ops    []op
	err    error
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

func (cl *commandList) record(o op) {
	if cl.state != stateRecording {
		if cl.err == nil {
			cl.err = ErrNotRecording
		}
		return
	}
	cl.ops = append(cl.ops, o)
}

func (cl *commandList) UpdateBuffer(dst gpucore.BufferID, offset uint64, data []byte) {
	cl.record(op{kind: opUpdate, dst: dst, dstOffset: offset, data: slices.Clone(data)})
}

func (cl *commandList) CopyBuffer(src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset, size uint64) {
	cl.record(op{kind: opCopy, src: src, srcOffset: srcOffset, dst: dst, dstOffset: dstOffset, size: size})
}

func (cl *commandList) SetPipeline(pipeline gpucore.ComputePipelineID) {
	cl.record(op{kind: opSetPipeline, pipeline: pipeline})
}

func (cl *commandList) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	cl.record(op{kind: opSetBindGroup, index: index, group: group})
}

func (cl *commandList) Dispatch(x, y, z uint32) {
	cl.record(op{kind: opDispatch, x: x, y: y, z: z})
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

// encoding tracks the HAL encoder and compute pass being replayed into.
type encoding struct {
	d       *Device
	encoder hal.CommandEncoder
	pass    hal.ComputePassEncoder

	pipeline hal.ComputePipeline
	groups   map[uint32]hal.BindGroup
}

func (e *encoding) begin() error {
	if e.encoder != nil {
		return nil
	}
	encoder, err := e.d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "compute_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("compute"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	e.encoder = encoder
	return nil
}

// beginPass opens a compute pass and restores the bound state into it.
func (e *encoding) beginPass() error {
	if e.pass != nil {
		return nil
	}
	if err := e.begin(); err != nil {
		return err
	}
	e.pass = e.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "compute_pass"})
	if e.pipeline != nil {
		e.pass.SetPipeline(e.pipeline)
	}
	for index, g := range e.groups {
		e.pass.SetBindGroup(index, g, nil)
	}
	return nil
}

func (e *encoding) endPass() {
	if e.pass != nil {
		e.pass.End()
		e.pass = nil
	}
}

func (e *encoding) discard() {
	e.endPass()
	if e.encoder != nil {
		e.encoder.DiscardEncoding()
		e.encoder = nil
	}
}

// flush submits everything encoded so far and waits for it.
func (e *encoding) flush() error {
	if e.encoder == nil {
		return nil
	}
	e.endPass()
	cmdBuf, err := e.encoder.EndEncoding()
	e.encoder = nil
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer e.d.device.FreeCommandBuffer(cmdBuf)

	fence, err := e.d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer e.d.device.DestroyFence(fence)

	if err := e.d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return e.d.wait(fence)
}

// execute replays the recorded commands on the device.
func (cl *commandList) execute() error {
	if cl.state != stateEnded {
		return fmt.Errorf("%w: submit before End", ErrNotRecording)
	}
	if cl.err != nil {
		return cl.err
	}
	d := cl.device
	e := &encoding{d: d, groups: make(map[uint32]hal.BindGroup)}

	for _, o := range cl.ops {
		if err := cl.replay(e, o); err != nil {
			e.discard()
			return err
		}
	}
	return e.flush()
}

func (cl *commandList) replay(e *encoding, o op) error {
	d := cl.device
	switch o.kind {
	case opUpdate:
		if err := e.flush(); err != nil {
			return err
		}
		b, err := d.buffer(o.dst)
		if err != nil {
			return err
		}
		if o.dstOffset+uint64(len(o.data)) > b.size {
			return fmt.Errorf("wgpu: update of %d bytes at %d overflows buffer %d", len(o.data), o.dstOffset, o.dst)
		}
		if len(o.data) > 0 {
			d.queue.WriteBuffer(b.buf, o.dstOffset, o.data)
		}

	case opCopy:
		src, err := d.buffer(o.src)
		if err != nil {
			return err
		}
		dst, err := d.buffer(o.dst)
		if err != nil {
			return err
		}
		if err := e.begin(); err != nil {
			return err
		}
		e.endPass()
		e.encoder.CopyBufferToBuffer(src.buf, dst.buf, []hal.BufferCopy{
			{SrcOffset: o.srcOffset, DstOffset: o.dstOffset, Size: o.size},
		})

	case opSetPipeline:
		d.mu.Lock()
		p, ok := d.pipelines[o.pipeline]
		d.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: compute pipeline %d", ErrUnknownResource, o.pipeline)
		}
		e.pipeline = p.pipeline
		if e.pass != nil {
			e.pass.SetPipeline(p.pipeline)
		}

	case opSetBindGroup:
		d.mu.Lock()
		g, ok := d.groups[o.group]
		d.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: bind group %d", ErrUnknownResource, o.group)
		}
		e.groups[o.index] = g
		if e.pass != nil {
			e.pass.SetBindGroup(o.index, g, nil)
		}

	case opDispatch:
		if e.pipeline == nil {
			return fmt.Errorf("wgpu: dispatch without pipeline")
		}
		if err := e.beginPass(); err != nil {
			return err
		}
		e.pass.Dispatch(o.x, o.y, o.z)
	}
	return nil
}
