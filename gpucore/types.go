package gpucore

// Resource IDs
//
// These opaque IDs represent device resources. Each Device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a read-write
	// storage (structured) buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// Has reports whether all bits of flag are set in u.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeStorageBuffer is a storage buffer binding (read-write).
	BindingTypeStorageBuffer
)

// String returns the binding type name.
func (t BindingType) String() string {
	switch t {
	case BindingTypeUniformBuffer:
		return "UniformBuffer"
	case BindingTypeStorageBuffer:
		return "StorageBuffer"
	default:
		return "Unknown"
	}
}

// ShaderStage is a bitmask of shader stages a binding is visible to.
type ShaderStage uint32

// ShaderStageCompute is the only stage used by compute sessions.
const ShaderStageCompute ShaderStage = 1 << 2

// ShaderModuleDesc describes a shader module to compile.
type ShaderModuleDesc struct {
	// Label is an optional debug label.
	Label string

	// Source is the shader source text.
	Source string

	// EntryPoint is the name of the entry point function.
	EntryPoint string

	// Stage is the pipeline stage the module is compiled for.
	Stage ShaderStage
}

// BufferDesc describes a buffer allocation.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage BufferUsage

	// Stride is the per-element byte size for structured buffers.
	// Zero for uniform and staging buffers.
	Stride uint32
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Name is the resource name the shader refers to.
	Name string

	// Binding is the binding index within the group.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// Visibility lists the shader stages that see the binding.
	Visibility ShaderStage
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	// Label is an optional debug label.
	Label string

	// Entries defines the bindings in this layout, in binding order.
	Entries []BindGroupLayoutEntry
}

// BindGroupEntry describes a single resource bound in a bind group.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind.
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64
}

// BindGroupDesc describes a bind group.
type BindGroupDesc struct {
	// Label is an optional debug label.
	Label string

	// Layout is the bind group layout.
	Layout BindGroupLayoutID

	// Entries are the resource bindings, in the same order as the layout entries.
	Entries []BindGroupEntry
}

// PipelineGroup places a bind group layout at a group (set) index of a pipeline.
type PipelineGroup struct {
	// Set is the group index the layout occupies.
	Set uint32

	// Layout is the layout bound at Set.
	Layout BindGroupLayoutID
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Shader contains the compute shader.
	Shader ShaderModuleID

	// EntryPoint is the name of the shader entry point function.
	EntryPoint string

	// Groups lists the bind group layouts in ascending Set order.
	Groups []PipelineGroup

	// WorkgroupSize is the dispatch group size. The shader defines its
	// own local size, so callers pass [1, 1, 1].
	WorkgroupSize [3]uint32
}

// Features describes optional device capabilities.
type Features struct {
	// StructuredBuffers reports read-write structured buffer support.
	StructuredBuffers bool

	// MaxBindGroups is the number of bind groups a pipeline may use.
	// Zero means unlimited.
	MaxBindGroups uint32
}
