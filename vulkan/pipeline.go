package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkngmath "github.com/vkngwrapper/math"

	"github.com/vkngwrapper/vulkray/frame"
)

// PushConstantSize is one column-major float32 mat4.
const PushConstantSize = 64

// Vertex is the vertex layout the pipeline consumes.
type Vertex struct {
	Position vkngmath.Vec3[float32]
	Color    vkngmath.Vec3[float32]
}

func getVertexBindingDescription() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func getVertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
	}
}

// Shaders holds SPIR-V bytecode for the two pipeline stages.
type Shaders struct {
	Vertex   []byte
	Fragment []byte
}

// Pipeline is the render pass and graphics pipeline every frame records
// against. Viewport and scissor are dynamic so it survives chain rebuilds.
type Pipeline struct {
	driver core1_0.DeviceDriver
	format frame.SurfaceFormat

	renderPass core1_0.RenderPass
	layout     core1_0.PipelineLayout
	pipeline   core1_0.Pipeline
}

var _ frame.Pipeline = (*Pipeline)(nil)

func (p *Pipeline) Initialized() bool { return p != nil && p.pipeline.Initialized() }

// Format is the color attachment format the render pass was built for.
func (p *Pipeline) Format() frame.SurfaceFormat { return p.format }

// NewPipeline builds a single-subpass render pass writing format and a
// pipeline drawing Vertex triangle lists with a vertex-stage mat4 push
// constant.
func NewPipeline(ctx *Context, format frame.SurfaceFormat, shaders Shaders) (*Pipeline, error) {
	p := &Pipeline{driver: ctx.deviceDriver, format: format}

	err := p.createRenderPass()
	if err == nil {
		err = p.createGraphicsPipeline(shaders)
	}
	if err != nil {
		p.Destroy()
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) createRenderPass() error {
	renderPass, _, err := p.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         core1_0.Format(p.format.Format),
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}

	p.renderPass = renderPass
	return nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

func (p *Pipeline) createShaderModule(name string, code []byte) (core1_0.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return core1_0.ShaderModule{}, errors.Newf("%s shader: SPIR-V size %d is not a positive multiple of 4", name, len(code))
	}

	module, _, err := p.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: bytesToBytecode(code),
	})
	if err != nil {
		return core1_0.ShaderModule{}, errors.Wrapf(err, "%s shader", name)
	}
	return module, nil
}

func (p *Pipeline) createGraphicsPipeline(shaders Shaders) error {
	vertShader, err := p.createShaderModule("vertex", shaders.Vertex)
	if err != nil {
		return err
	}
	defer p.driver.DestroyShaderModule(vertShader, nil)

	fragShader, err := p.createShaderModule("fragment", shaders.Fragment)
	if err != nil {
		return err
	}
	defer p.driver.DestroyShaderModule(fragShader, nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   getVertexBindingDescription(),
		VertexAttributeDescriptions: getVertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	// Counts only; the values are set per frame.
	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{{Width: 1, Height: 1, MaxDepth: 1}},
		Scissors:  []core1_0.Rect2D{{Extent: core1_0.Extent2D{Width: 1, Height: 1}}},
	}

	dynamic := &core1_0.PipelineDynamicStateCreateInfo{
		DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	p.layout, _, err = p.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		PushConstantRanges: []core1_0.PushConstantRange{
			{
				StageFlags: core1_0.StageVertex,
				Offset:     0,
				Size:       PushConstantSize,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create pipeline layout")
	}

	pipelines, _, err := p.driver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			ColorBlendState:    colorBlend,
			DynamicState:       dynamic,
			Layout:             p.layout,
			RenderPass:         p.renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return errors.Wrap(err, "create graphics pipeline")
	}
	p.pipeline = pipelines[0]

	return nil
}

// Destroy releases the pipeline, its layout and the render pass.
func (p *Pipeline) Destroy() {
	if p.pipeline.Initialized() {
		p.driver.DestroyPipeline(p.pipeline, nil)
		p.pipeline = core1_0.Pipeline{}
	}

	if p.layout.Initialized() {
		p.driver.DestroyPipelineLayout(p.layout, nil)
		p.layout = core1_0.PipelineLayout{}
	}

	if p.renderPass.Initialized() {
		p.driver.DestroyRenderPass(p.renderPass, nil)
		p.renderPass = core1_0.RenderPass{}
	}
}
