package vulkan

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/vulkray/frame"
)

// Buffer is a buffer together with the memory bound to it.
type Buffer struct {
	driver core1_0.DeviceDriver
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	size   int
}

var _ frame.Buffer = (*Buffer)(nil)

func (b *Buffer) Initialized() bool { return b != nil && b.buffer.Initialized() }

func (b *Buffer) Size() int { return b.size }

func (b *Buffer) Destroy() {
	if b.buffer.Initialized() {
		b.driver.DestroyBuffer(b.buffer, nil)
		b.buffer = core1_0.Buffer{}
	}
	if b.memory.Initialized() {
		b.driver.FreeMemory(b.memory, nil)
		b.memory = core1_0.DeviceMemory{}
	}
}

// UploadGeometry copies vertices and indices into device-local buffers
// through host-visible staging buffers and returns them as frame.Geometry.
// Release both buffers with DestroyGeometry.
func UploadGeometry(ctx *Context, vertices []Vertex, indices []uint32) (frame.Geometry, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return frame.Geometry{}, errors.New("upload geometry: empty vertex or index list")
	}

	vertexBuffer, err := ctx.createDeviceLocalBuffer(vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return frame.Geometry{}, errors.Wrap(err, "upload vertices")
	}

	indexBuffer, err := ctx.createDeviceLocalBuffer(indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		vertexBuffer.Destroy()
		return frame.Geometry{}, errors.Wrap(err, "upload indices")
	}

	frame.Logger().Debug("geometry uploaded",
		slog.Int("vertex_bytes", vertexBuffer.Size()),
		slog.Int("index_bytes", indexBuffer.Size()))

	return frame.Geometry{
		Vertices:   vertexBuffer,
		Indices:    indexBuffer,
		IndexCount: len(indices),
	}, nil
}

// DestroyGeometry releases buffers created by UploadGeometry.
func DestroyGeometry(geometry frame.Geometry) {
	for _, b := range []frame.Buffer{geometry.Vertices, geometry.Indices} {
		if buffer, ok := b.(*Buffer); ok && buffer != nil {
			buffer.Destroy()
		}
	}
}

func (c *Context) createDeviceLocalBuffer(data any, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	bufferSize := binary.Size(data)

	staging, err := c.createBuffer(bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	err = writeData(c.deviceDriver, staging.memory, 0, data)
	if err != nil {
		return nil, err
	}

	buffer, err := c.createBuffer(bufferSize, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = c.copyBuffer(staging.buffer, buffer.buffer, bufferSize)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	return buffer, nil
}

func (c *Context) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	b := &Buffer{driver: c.deviceDriver, size: size}

	var err error
	b.buffer, _, err = c.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	memRequirements := c.deviceDriver.GetBufferMemoryRequirements(b.buffer)
	memoryTypeIndex, err := c.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		b.Destroy()
		return nil, err
	}

	b.memory, _, err = c.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "allocate buffer memory")
	}

	_, err = c.deviceDriver.BindBufferMemory(b.buffer, b.memory, 0)
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	return b, nil
}

func (c *Context) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := c.instanceDriver.GetPhysicalDeviceMemoryProperties(c.physicalDevice)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type matches filter %b with properties %v", typeFilter, properties)
}

func writeData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer driver.UnmapMemory(memory)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return err
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}

func (c *Context) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	buffer := buffers[0]
	_, err = c.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(buffer)
		return core1_0.CommandBuffer{}, err
	}
	return buffer, nil
}

func (c *Context) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	defer c.deviceDriver.FreeCommandBuffers(buffer)

	_, err := c.deviceDriver.EndCommandBuffer(buffer)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.QueueSubmit(c.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.QueueWaitIdle(c.graphicsQueue)
	return err
}

func (c *Context) copyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	buffer, err := c.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = c.deviceDriver.CmdCopyBuffer(buffer, srcBuffer, dstBuffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(buffer)
		return err
	}

	return c.endSingleTimeCommands(buffer)
}
