package compute

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/compute/gpucore"
)

// pipelineArtifact holds the device objects derived from the buffer set.
// layouts, groups and sets are parallel and sorted by set index.
type pipelineArtifact struct {
	layouts  []gpucore.BindGroupLayoutID
	groups   []gpucore.BindGroupID
	sets     []uint32
	pipeline gpucore.ComputePipelineID
}

// destroy releases the pipeline, then bind groups, then layouts.
func (p *pipelineArtifact) destroy(dev gpucore.Device) {
	if p.pipeline != gpucore.InvalidID {
		dev.DestroyComputePipeline(p.pipeline)
		p.pipeline = gpucore.InvalidID
	}
	for _, g := range p.groups {
		dev.DestroyBindGroup(g)
	}
	for _, l := range p.layouts {
		dev.DestroyBindGroupLayout(l)
	}
	p.groups = nil
	p.layouts = nil
	p.sets = nil
}

// invalidatePipeline drops the derived pipeline, if any.
func (s *Session) invalidatePipeline() {
	if s.pipeline == nil {
		return
	}
	s.pipeline.destroy(s.device)
	s.pipeline = nil
	s.logger().Debug("compute: pipeline invalidated")
}

func (s *Session) ensurePipeline() error {
	if s.pipeline != nil {
		return nil
	}
	p, err := s.buildPipeline()
	if err != nil {
		return err
	}
	s.pipeline = p
	return nil
}

// partitionBySet groups buffers by set index. Partitions are returned in
// ascending set order and each one is sorted by binding.
func partitionBySet(buffers []*Buffer) [][]*Buffer {
	sorted := slices.Clone(buffers)
	slices.SortFunc(sorted, func(a, b *Buffer) int {
		if c := cmp.Compare(a.desc.LayoutSet, b.desc.LayoutSet); c != 0 {
			return c
		}
		return cmp.Compare(a.desc.LayoutBinding, b.desc.LayoutBinding)
	})

	var parts [][]*Buffer
	for i, b := range sorted {
		if i == 0 || b.desc.LayoutSet != sorted[i-1].desc.LayoutSet {
			parts = append(parts, nil)
		}
		parts[len(parts)-1] = append(parts[len(parts)-1], b)
	}
	return parts
}

// buildPipeline creates one bind group layout and one bind group per set,
// then the compute pipeline over those layouts. Layout entries and bind
// group entries are emitted in the same binding order: the device binds
// by position.
func (s *Session) buildPipeline() (*pipelineArtifact, error) {
	parts := partitionBySet(s.buffers)
	if n := len(parts); n > 0 && s.features.MaxBindGroups > 0 {
		if last := parts[n-1][0].desc.LayoutSet; last >= s.features.MaxBindGroups {
			return nil, fmt.Errorf("%w: set %d exceeds device limit of %d bind groups",
				ErrNotSupported, last, s.features.MaxBindGroups)
		}
	}

	p := &pipelineArtifact{}
	fail := func(err error) (*pipelineArtifact, error) {
		p.destroy(s.device)
		return nil, err
	}

	groups := make([]gpucore.PipelineGroup, 0, len(parts))
	for _, part := range parts {
		set := part[0].desc.LayoutSet
		layoutEntries := make([]gpucore.BindGroupLayoutEntry, 0, len(part))
		groupEntries := make([]gpucore.BindGroupEntry, 0, len(part))
		for _, b := range part {
			le, ge := b.describeBinding()
			layoutEntries = append(layoutEntries, le)
			groupEntries = append(groupEntries, ge)
		}

		layout, err := s.device.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
			Label:   fmt.Sprintf("%s:layout%d", s.opts.label, set),
			Entries: layoutEntries,
		})
		if err != nil {
			return fail(fmt.Errorf("compute: create bind group layout for set %d: %w", set, err))
		}
		p.layouts = append(p.layouts, layout)

		group, err := s.device.CreateBindGroup(&gpucore.BindGroupDesc{
			Label:   fmt.Sprintf("%s:group%d", s.opts.label, set),
			Layout:  layout,
			Entries: groupEntries,
		})
		if err != nil {
			return fail(fmt.Errorf("compute: create bind group for set %d: %w", set, err))
		}
		p.groups = append(p.groups, group)
		p.sets = append(p.sets, set)
		groups = append(groups, gpucore.PipelineGroup{Set: set, Layout: layout})
	}

	pipeline, err := s.device.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:         s.opts.label + ":pipeline",
		Shader:        s.shader,
		EntryPoint:    s.entryPoint,
		Groups:        groups,
		WorkgroupSize: [3]uint32{1, 1, 1},
	})
	if err != nil {
		return fail(fmt.Errorf("compute: create compute pipeline: %w", err))
	}
	p.pipeline = pipeline

	s.logger().Debug("compute: pipeline built", "sets", p.sets, "buffers", len(s.buffers))
	return p, nil
}
