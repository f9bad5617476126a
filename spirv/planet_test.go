package spirv

// planetExpected is nativetest.PlanetReflection in managed form.
func planetExpected() Reflection {
	return Reflection{
		VertexElements: []VertexElementDescription{
			{Name: "Position", Semantic: SemanticTextureCoordinate, Format: FormatFloat3},
			{Name: "Normal", Semantic: SemanticTextureCoordinate, Format: FormatFloat3},
			{Name: "TexCoord", Semantic: SemanticTextureCoordinate, Format: FormatFloat2},
		},
		ResourceLayouts: []ResourceLayoutDescription{
			{Elements: []ResourceLayoutElementDescription{
				{Name: "vdspv_0_0", Kind: ResourceUniformBuffer, Stages: StagesVertex | StagesFragment},
				{Name: "", Options: ResourceLayoutElementOptions(2)},
				{Name: "vdspv_0_2", Kind: ResourceUniformBuffer, Stages: StagesFragment},
			}},
			{Elements: []ResourceLayoutElementDescription{
				{Name: "vdspv_1_0", Kind: ResourceTextureReadOnly, Stages: StagesFragment},
				{Name: "vdspv_1_1", Kind: ResourceSampler, Stages: StagesFragment},
			}},
		},
	}
}
