package gpucore

// Device abstracts over different GPU backend implementations.
//
// This interface is the only path by which the compute core reaches a GPU:
// it allocates resources, compiles shaders, records and submits commands,
// and maps staging memory. Implementations are owned by one session and are
// not required to be safe for concurrent use.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
type Device interface {
	// === Capabilities ===

	// Features returns the optional capabilities of the device.
	Features() Features

	// === Shader Compilation ===

	// CreateShaderModule compiles a shader from source for the given stage.
	// Returns an error if compilation fails.
	CreateShaderModule(desc *ShaderModuleDesc) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Buffer Management ===

	// CreateBuffer allocates a device buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// DestroyBuffer releases a device buffer.
	DestroyBuffer(id BufferID)

	// MapRead maps a staging buffer (BufferUsageMapRead) into host memory.
	// The returned slice is valid until Unmap.
	MapRead(id BufferID) ([]byte, error)

	// Unmap releases a mapping created by MapRead.
	Unmap(id BufferID)

	// === Pipeline Management ===

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreateBindGroup binds actual buffers to a bind group layout.
	CreateBindGroup(desc *BindGroupDesc) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// === Command Recording and Execution ===

	// CreateCommandList creates a reusable command list.
	CreateCommandList() (CommandList, error)

	// Submit submits a recorded (ended) command list to the device queue.
	Submit(list CommandList) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error

	// Destroy releases the device and everything it still owns.
	Destroy()
}

// CommandList records device commands.
//
// Usage:
//  1. Obtain a list from Device.CreateCommandList()
//  2. Begin() starts recording and discards anything recorded before
//  3. Record updates, copies, pipeline and bind group state, dispatches
//  4. End() finishes recording
//  5. Device.Submit() executes the list
//
// A list may be re-recorded with Begin() once its previous submission has
// completed. Recording calls made outside Begin/End are reported by End
// or Submit.
type CommandList interface {
	// Begin starts recording.
	Begin() error

	// UpdateBuffer records a host-to-device write of data into dst at offset.
	// The data is copied at record time.
	UpdateBuffer(dst BufferID, offset uint64, data []byte)

	// CopyBuffer records a device-side copy of size bytes from src to dst.
	CopyBuffer(src BufferID, srcOffset uint64, dst BufferID, dstOffset, size uint64)

	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetBindGroup sets a bind group at the specified group (set) index.
	SetBindGroup(index uint32, group BindGroupID)

	// Dispatch dispatches compute workgroups.
	// x, y, z are the number of workgroups in each dimension.
	Dispatch(x, y, z uint32)

	// End finishes recording.
	End() error

	// Destroy releases the list.
	Destroy()
}
