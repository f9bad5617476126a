package spirv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Stage is the kind of shader a GLSL source is compiled as.
type Stage uint32

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
	StageGeometry
	StageTessellationControl
	StageTessellationEvaluation
)

var stageNames = []string{
	"Vertex",
	"Fragment",
	"Compute",
	"Geometry",
	"TessellationControl",
	"TessellationEvaluation",
}

func (s Stage) String() string { return enumString(stageNames, uint32(s)) }

// Valid reports whether s is a defined stage.
func (s Stage) Valid() bool { return int(s) < len(stageNames) }

// ParseStage parses a stage name or ordinal.
func ParseStage(s string) (Stage, error) {
	v, err := parseEnum(stageNames, "stage", s)
	return Stage(v), err
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s Stage) MarshalJSON() ([]byte, error) { return enumJSON(stageNames, uint32(s)) }
func (s *Stage) UnmarshalText(b []byte) (err error) {
	*s, err = ParseStage(string(b))
	return err
}
func (s *Stage) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, s.UnmarshalText)
}

// Target is a cross-compile output language.
type Target uint32

const (
	TargetHLSL Target = iota
	TargetGLSL
	TargetESSL
	TargetMSL
)

var targetNames = []string{"HLSL", "GLSL", "ESSL", "MSL"}

func (t Target) String() string { return enumString(targetNames, uint32(t)) }

// Valid reports whether t is a defined target.
func (t Target) Valid() bool { return int(t) < len(targetNames) }

// ParseTarget parses a target name or ordinal.
func ParseTarget(s string) (Target, error) {
	v, err := parseEnum(targetNames, "target", s)
	return Target(v), err
}

func (t Target) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
func (t Target) MarshalJSON() ([]byte, error) { return enumJSON(targetNames, uint32(t)) }
func (t *Target) UnmarshalText(b []byte) (err error) {
	*t, err = ParseTarget(string(b))
	return err
}
func (t *Target) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, t.UnmarshalText)
}

// VertexElementSemantic is the meaning of a vertex input.
type VertexElementSemantic uint8

const (
	SemanticPosition VertexElementSemantic = iota
	SemanticNormal
	SemanticTextureCoordinate
	SemanticColor
)

var semanticNames = []string{"Position", "Normal", "TextureCoordinate", "Color"}

func (s VertexElementSemantic) String() string { return enumString(semanticNames, uint32(s)) }

// ParseVertexElementSemantic parses a semantic name or ordinal.
func ParseVertexElementSemantic(s string) (VertexElementSemantic, error) {
	v, err := parseEnum(semanticNames, "vertex element semantic", s)
	if err == nil && v > 0xFF {
		err = fmt.Errorf("vertex element semantic %d out of range", v)
	}
	return VertexElementSemantic(v), err
}

func (s VertexElementSemantic) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s VertexElementSemantic) MarshalJSON() ([]byte, error) {
	return enumJSON(semanticNames, uint32(s))
}
func (s *VertexElementSemantic) UnmarshalText(b []byte) (err error) {
	*s, err = ParseVertexElementSemantic(string(b))
	return err
}
func (s *VertexElementSemantic) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, s.UnmarshalText)
}

// VertexElementFormat is the data format of a vertex input.
type VertexElementFormat uint8

const (
	FormatFloat1 VertexElementFormat = iota
	FormatFloat2
	FormatFloat3
	FormatFloat4
	FormatByte2Norm
	FormatByte2
	FormatByte4Norm
	FormatByte4
	FormatSByte2Norm
	FormatSByte2
	FormatSByte4Norm
	FormatSByte4
	FormatUShort2Norm
	FormatUShort2
	FormatUShort4Norm
	FormatUShort4
	FormatShort2Norm
	FormatShort2
	FormatShort4Norm
	FormatShort4
	FormatUInt1
	FormatUInt2
	FormatUInt3
	FormatUInt4
	FormatInt1
	FormatInt2
	FormatInt3
	FormatInt4
	FormatHalf1
	FormatHalf2
	FormatHalf4
)

var formatNames = []string{
	"Float1", "Float2", "Float3", "Float4",
	"Byte2_Norm", "Byte2", "Byte4_Norm", "Byte4",
	"SByte2_Norm", "SByte2", "SByte4_Norm", "SByte4",
	"UShort2_Norm", "UShort2", "UShort4_Norm", "UShort4",
	"Short2_Norm", "Short2", "Short4_Norm", "Short4",
	"UInt1", "UInt2", "UInt3", "UInt4",
	"Int1", "Int2", "Int3", "Int4",
	"Half1", "Half2", "Half4",
}

func (f VertexElementFormat) String() string { return enumString(formatNames, uint32(f)) }

// ParseVertexElementFormat parses a format name or ordinal.
func ParseVertexElementFormat(s string) (VertexElementFormat, error) {
	v, err := parseEnum(formatNames, "vertex element format", s)
	if err == nil && v > 0xFF {
		err = fmt.Errorf("vertex element format %d out of range", v)
	}
	return VertexElementFormat(v), err
}

func (f VertexElementFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
func (f VertexElementFormat) MarshalJSON() ([]byte, error) {
	return enumJSON(formatNames, uint32(f))
}
func (f *VertexElementFormat) UnmarshalText(b []byte) (err error) {
	*f, err = ParseVertexElementFormat(string(b))
	return err
}
func (f *VertexElementFormat) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, f.UnmarshalText)
}

// ResourceKind is the kind of a bound resource.
type ResourceKind uint8

const (
	ResourceUniformBuffer ResourceKind = iota
	ResourceStructuredBufferReadOnly
	ResourceStructuredBufferReadWrite
	ResourceTextureReadOnly
	ResourceTextureReadWrite
	ResourceSampler
)

var resourceKindNames = []string{
	"UniformBuffer",
	"StructuredBufferReadOnly",
	"StructuredBufferReadWrite",
	"TextureReadOnly",
	"TextureReadWrite",
	"Sampler",
}

func (k ResourceKind) String() string { return enumString(resourceKindNames, uint32(k)) }

// ParseResourceKind parses a resource kind name or ordinal.
func ParseResourceKind(s string) (ResourceKind, error) {
	v, err := parseEnum(resourceKindNames, "resource kind", s)
	if err == nil && v > 0xFF {
		err = fmt.Errorf("resource kind %d out of range", v)
	}
	return ResourceKind(v), err
}

func (k ResourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
func (k ResourceKind) MarshalJSON() ([]byte, error) {
	return enumJSON(resourceKindNames, uint32(k))
}
func (k *ResourceKind) UnmarshalText(b []byte) (err error) {
	*k, err = ParseResourceKind(string(b))
	return err
}
func (k *ResourceKind) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, k.UnmarshalText)
}

// ShaderConstantType is the type tag of a specialization constant.
type ShaderConstantType uint32

const (
	ConstantBool ShaderConstantType = iota
	ConstantUInt16
	ConstantInt16
	ConstantUInt32
	ConstantInt32
	ConstantUInt64
	ConstantInt64
	ConstantFloat
	ConstantDouble
)

var constantTypeNames = []string{
	"Bool", "UInt16", "Int16", "UInt32", "Int32", "UInt64", "Int64", "Float", "Double",
}

func (c ShaderConstantType) String() string { return enumString(constantTypeNames, uint32(c)) }

// ParseShaderConstantType parses a constant type name or ordinal.
func ParseShaderConstantType(s string) (ShaderConstantType, error) {
	v, err := parseEnum(constantTypeNames, "shader constant type", s)
	return ShaderConstantType(v), err
}

func (c ShaderConstantType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (c ShaderConstantType) MarshalJSON() ([]byte, error) {
	return enumJSON(constantTypeNames, uint32(c))
}
func (c *ShaderConstantType) UnmarshalText(b []byte) (err error) {
	*c, err = ParseShaderConstantType(string(b))
	return err
}
func (c *ShaderConstantType) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, c.UnmarshalText)
}

// ShaderStages is a set of pipeline stages.
type ShaderStages uint8

const (
	StagesNone                   ShaderStages = 0
	StagesVertex                 ShaderStages = 1
	StagesGeometry               ShaderStages = 2
	StagesTessellationControl    ShaderStages = 4
	StagesTessellationEvaluation ShaderStages = 8
	StagesFragment               ShaderStages = 16
	StagesCompute                ShaderStages = 32
)

var stageFlagNames = []flagName{
	{1, "Vertex"},
	{2, "Geometry"},
	{4, "TessellationControl"},
	{8, "TessellationEvaluation"},
	{16, "Fragment"},
	{32, "Compute"},
}

// Has reports whether every stage in o is in s.
func (s ShaderStages) Has(o ShaderStages) bool { return s&o == o }

func (s ShaderStages) String() string { return flagString(stageFlagNames, uint64(s)) }

// ParseShaderStages parses a comma-separated list of stage names, "None"
// or an integer.
func ParseShaderStages(s string) (ShaderStages, error) {
	v, err := parseFlags(stageFlagNames, "shader stages", s)
	if err == nil && v > 0xFF {
		err = fmt.Errorf("shader stages %d out of range", v)
	}
	return ShaderStages(v), err
}

func (s ShaderStages) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s ShaderStages) MarshalJSON() ([]byte, error) {
	return flagJSON(stageFlagNames, uint64(s))
}
func (s *ShaderStages) UnmarshalText(b []byte) (err error) {
	*s, err = ParseShaderStages(string(b))
	return err
}
func (s *ShaderStages) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, s.UnmarshalText)
}

// ResourceLayoutElementOptions are option bits of a resource slot.
type ResourceLayoutElementOptions uint32

const (
	OptionsNone           ResourceLayoutElementOptions = 0
	OptionsDynamicBinding ResourceLayoutElementOptions = 1
)

var optionNames = []flagName{
	{1, "DynamicBinding"},
}

func (o ResourceLayoutElementOptions) String() string { return flagString(optionNames, uint64(o)) }

// ParseResourceLayoutElementOptions parses option names, "None" or an
// integer.
func ParseResourceLayoutElementOptions(s string) (ResourceLayoutElementOptions, error) {
	v, err := parseFlags(optionNames, "resource layout element options", s)
	return ResourceLayoutElementOptions(v), err
}

func (o ResourceLayoutElementOptions) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
func (o ResourceLayoutElementOptions) MarshalJSON() ([]byte, error) {
	return flagJSON(optionNames, uint64(o))
}
func (o *ResourceLayoutElementOptions) UnmarshalText(b []byte) (err error) {
	*o, err = ParseResourceLayoutElementOptions(string(b))
	return err
}
func (o *ResourceLayoutElementOptions) UnmarshalJSON(b []byte) error {
	return unmarshalEnumJSON(b, o.UnmarshalText)
}

// Enum helpers. Values without a name are rendered as their integer.

type flagName struct {
	bit  uint64
	name string
}

func enumString(names []string, v uint32) string {
	if int(v) < len(names) {
		return names[v]
	}
	return strconv.FormatUint(uint64(v), 10)
}

func enumJSON(names []string, v uint32) ([]byte, error) {
	if int(v) < len(names) {
		return json.Marshal(names[v])
	}
	return []byte(strconv.FormatUint(uint64(v), 10)), nil
}

func parseEnum(names []string, what, s string) (uint32, error) {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return uint32(i), nil
		}
	}
	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(v), nil
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

func flagString(names []flagName, v uint64) string {
	if v == 0 {
		return "None"
	}
	var parts []string
	rest := v
	for _, f := range names {
		if v&f.bit != 0 {
			parts = append(parts, f.name)
			rest &^= f.bit
		}
	}
	if rest != 0 {
		return strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ", ")
}

func flagJSON(names []flagName, v uint64) ([]byte, error) {
	s := flagString(names, v)
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func parseFlags(names []flagName, what, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "None") {
		return 0, nil
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	var v uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		found := false
		for _, f := range names {
			if strings.EqualFold(f.name, part) {
				v |= f.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown %s %q", what, part)
		}
	}
	return v, nil
}

// unmarshalEnumJSON accepts either a JSON string holding a name or a JSON
// number.
func unmarshalEnumJSON(b []byte, set func([]byte) error) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return set([]byte(s))
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected enum name or number, got %s", b)
	}
	return set([]byte(strconv.FormatUint(n, 10)))
}
