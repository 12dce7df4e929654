// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/kanvas/gfx"
	vk "github.com/vulkan-go/vulkan"
)

type commandBuffer struct {
	device vk.Device
	pool   vk.CommandPool
	cmd    vk.CommandBuffer
}

// Reset implements interface
func (c *commandBuffer) Reset() error {
	return NewError("vk.ResetCommandBuffer()", vk.ResetCommandBuffer(c.cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)))
}

// Begin implements interface
func (c *commandBuffer) Begin() error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return NewError("vk.BeginCommandBuffer()", vk.BeginCommandBuffer(c.cmd, &cbbi))
}

// End implements interface
func (c *commandBuffer) End() error {
	return NewError("vk.EndCommandBuffer()", vk.EndCommandBuffer(c.cmd))
}

// TransitionImage implements interface. Only the transitions needed to
// upload into a presentable image are known; others become a full barrier.
func (c *commandBuffer) TransitionImage(img gfx.Image, from, to gfx.Layout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayout(from),
		NewLayout:           vk.ImageLayout(to),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.(vk.Image),
		SubresourceRange:    colorSubresource(),
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case from == gfx.LayoutUndefined && to == gfx.LayoutTransferDst:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case from == gfx.LayoutTransferDst && to == gfx.LayoutPresentSrc:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessMemoryReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	default:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessMemoryWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}

	vk.CmdPipelineBarrier(c.cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CopyBufferToImage implements interface
func (c *commandBuffer) CopyBufferToImage(buf gfx.UploadBuffer, img gfx.Image, extent gfx.Extent2D) {
	bic := vk.BufferImageCopy{
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdCopyBufferToImage(c.cmd, buf.(*uploadBuffer).Get(), img.(vk.Image), vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{bic})
}

// Release implements interface
func (c *commandBuffer) Release() {
	vk.FreeCommandBuffers(c.device, c.pool, 1, []vk.CommandBuffer{c.cmd})
}
