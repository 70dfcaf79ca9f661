package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

// clearValues converts the colour and depth/stencil clears of a render pass
// begin.
func clearValues(values [2]metadata.ClearValue) []vk.ClearValue {
	out := make([]vk.ClearValue, 2)

	c := values[0].Color
	color := []float32{c.X, c.Y, c.Z, c.W}
	out[0].SetColor(color)
	out[1].SetDepthStencil(values[1].Depth, values[1].Stencil)

	return out
}
