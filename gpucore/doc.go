// Package gpucore provides the device abstraction the compute core calls through.
//
// This package defines the [Device] interface, which abstracts over different
// GPU backend implementations, allowing the same compute session to work with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL, see backend/wgpu)
//   - a host-memory software device running Go kernels (see backend/software)
//
// # Architecture
//
//	               +-----------------+
//	               |     compute     |
//	               | (Session/Buffer)|
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |     gpucore     |
//	               | (Device, IDs,   |
//	               |  registry)      |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  backend/wgpu   |          | backend/software|
//	|  (hal.Device)   |          |  (Go kernels)   |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// Device resources are managed via opaque IDs ([BufferID], [BindGroupID], etc.).
// The [Device] interface provides creation and destruction methods for
// each resource type. Devices are responsible for tracking the mapping
// between IDs and actual backend resources.
//
// # Backend Registry
//
// Backend packages register a [Provider] from init(). Import a backend for
// its side effect to make it selectable by name:
//
//	import _ "github.com/gogpu/compute/backend/software"
//
//	dev, err := gpucore.Open("software")
package gpucore
