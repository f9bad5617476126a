package nativetest

import "github.com/wippyai/vspirv/abi"

// Enum ordinals used by PlanetReflection.
const (
	semanticTextureCoordinate = 2
	formatFloat2              = 1
	formatFloat3              = 2
	kindUniformBuffer         = 0
	kindTextureReadOnly       = 3
	kindSampler               = 5
	stagesVertex              = 1
	stagesFragment            = 16
)

// PlanetReflection is the reflection the native compiler reports for the
// planet.vert / planet.frag pair with normalized resource names. Slot 1 of
// set 0 is unused by either stage and comes back as a placeholder.
func PlanetReflection() abi.Reflection {
	return abi.Reflection{
		VertexElements: []abi.VertexElement{
			{Name: "Position", Semantic: semanticTextureCoordinate, Format: formatFloat3},
			{Name: "Normal", Semantic: semanticTextureCoordinate, Format: formatFloat3},
			{Name: "TexCoord", Semantic: semanticTextureCoordinate, Format: formatFloat2},
		},
		ResourceLayouts: []abi.ResourceLayout{
			{Elements: []abi.ResourceElement{
				{Name: "vdspv_0_0", Kind: kindUniformBuffer, Stages: stagesVertex | stagesFragment},
				{Name: "", Options: 2},
				{Name: "vdspv_0_2", Kind: kindUniformBuffer, Stages: stagesFragment},
			}},
			{Elements: []abi.ResourceElement{
				{Name: "vdspv_1_0", Kind: kindTextureReadOnly, Stages: stagesFragment},
				{Name: "vdspv_1_1", Kind: kindSampler, Stages: stagesFragment},
			}},
		},
	}
}

// PlanetCross translates like DefaultCross and attaches PlanetReflection to
// successful results.
func PlanetCross(req abi.CrossCompileRequest) abi.Result {
	res := DefaultCross(req)
	if res.Succeeded {
		res.Reflection = PlanetReflection()
	}
	return res
}
