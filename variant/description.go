package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/vspirv/errors"
	"github.com/wippyai/vspirv/spirv"
)

// StageDescription names the GLSL source of one stage.
type StageDescription struct {
	Stage    spirv.Stage `json:"stage" yaml:"stage" toml:"stage"`
	FileName string      `json:"fileName" yaml:"fileName" toml:"fileName"`
}

// Description is one shader variant.
type Description struct {
	Name                string                    `json:"name" yaml:"name" toml:"name"`
	Shaders             []StageDescription        `json:"shaders" yaml:"shaders" toml:"shaders"`
	Macros              []spirv.MacroDefinition   `json:"macros,omitempty" yaml:"macros,omitempty" toml:"macros,omitempty"`
	CrossCompileOptions spirv.CrossCompileOptions `json:"crossCompileOptions" yaml:"crossCompileOptions" toml:"crossCompileOptions"`
	Targets             []spirv.Target            `json:"targets" yaml:"targets" toml:"targets"`
}

// Format is the encoding of a variant set.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Unsupported(errors.PhaseIO, fmt.Sprintf("variant set format %q", filepath.Ext(path)))
	}
}

// tomlSet wraps the variant list, since a TOML document cannot be a bare
// array.
type tomlSet struct {
	Variant []Description `toml:"variant"`
}

// ParseSet decodes a variant set. JSON and YAML documents are a list of
// variants; TOML documents hold them as a [[variant]] array of tables.
func ParseSet(data []byte, format Format) ([]Description, error) {
	var (
		set []Description
		err error
	)
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &set)
	case FormatYAML:
		err = yaml.Unmarshal(data, &set)
	case FormatTOML:
		var doc tomlSet
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
		set = doc.Variant
	default:
		return nil, errors.Unsupported(errors.PhaseIO, fmt.Sprintf("variant set format %q", format))
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseIO, errors.KindInvalidData, err, fmt.Sprintf("decode %s variant set", format))
	}
	for i, d := range set {
		if d.Name == "" {
			return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path(fmt.Sprintf("[%d]", i), "name").
				Detail("variant has no name").
				Build()
		}
	}
	return set, nil
}

// LoadSet reads a variant set, choosing the format from the extension.
func LoadSet(path string) ([]Description, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(errors.PhaseIO, "variant set", path)
		}
		return nil, errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("read %s", path))
	}
	return ParseSet(data, format)
}

// Stages lists the stages of d in declaration order.
func (d Description) Stages() []spirv.Stage {
	out := make([]spirv.Stage, len(d.Shaders))
	for i, s := range d.Shaders {
		out[i] = s.Stage
	}
	return out
}
