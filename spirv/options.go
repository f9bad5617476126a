package spirv

// MacroDefinition is a preprocessor definition applied to GLSL sources.
type MacroDefinition struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
}

// GlslCompileOptions control GLSL to SPIR-V compilation.
type GlslCompileOptions struct {
	Macros []MacroDefinition
	Debug  bool
}

// CrossCompileOptions control SPIR-V translation.
type CrossCompileOptions struct {
	Specializations        []SpecializationConstant `json:"specializations,omitempty" yaml:"specializations,omitempty" toml:"specializations,omitempty"`
	FixClipSpaceZ          bool                     `json:"fixClipSpaceZ" yaml:"fixClipSpaceZ" toml:"fixClipSpaceZ"`
	InvertVertexOutputY    bool                     `json:"invertVertexOutputY" yaml:"invertVertexOutputY" toml:"invertVertexOutputY"`
	NormalizeResourceNames bool                     `json:"normalizeResourceNames" yaml:"normalizeResourceNames" toml:"normalizeResourceNames"`
}

// DefaultFileName is reported by the compiler for sources without a name.
const DefaultFileName = "<vspirv-input>"
