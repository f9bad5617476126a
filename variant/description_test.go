package variant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/vspirv/errors"
	"github.com/wippyai/vspirv/spirv"
)

const jsonSet = `[
  {
    "name": "Planet",
    "shaders": [
      {"stage": "Vertex", "fileName": "planet.vert"},
      {"stage": "Fragment", "fileName": "planet.frag"}
    ],
    "macros": [{"name": "USE_FOG", "value": "1"}],
    "crossCompileOptions": {
      "fixClipSpaceZ": true,
      "invertVertexOutputY": false,
      "normalizeResourceNames": true,
      "specializations": [{"id": 3, "type": "Float", "data": 1065353216}]
    },
    "targets": ["HLSL", "MSL"]
  },
  {
    "Name": "Particles",
    "Shaders": [{"Stage": 2, "FileName": "particles.comp"}],
    "Targets": ["essl"]
  }
]`

const yamlSet = `
- name: Planet
  shaders:
    - stage: Vertex
      fileName: planet.vert
    - stage: Fragment
      fileName: planet.frag
  macros:
    - name: USE_FOG
      value: "1"
  crossCompileOptions:
    fixClipSpaceZ: true
    normalizeResourceNames: true
    specializations:
      - id: 3
        type: Float
        data: 1065353216
  targets: [HLSL, MSL]
- name: Particles
  shaders:
    - stage: Compute
      fileName: particles.comp
  targets: [ESSL]
`

const tomlSetDoc = `
[[variant]]
name = "Planet"
targets = ["HLSL", "MSL"]

  [[variant.shaders]]
  stage = "Vertex"
  fileName = "planet.vert"

  [[variant.shaders]]
  stage = "Fragment"
  fileName = "planet.frag"

  [[variant.macros]]
  name = "USE_FOG"
  value = "1"

  [variant.crossCompileOptions]
  fixClipSpaceZ = true
  normalizeResourceNames = true

    [[variant.crossCompileOptions.specializations]]
    id = 3
    type = "Float"
    data = 1065353216

[[variant]]
name = "Particles"
targets = ["ESSL"]

  [[variant.shaders]]
  stage = "Compute"
  fileName = "particles.comp"
`

func expectedSet() []Description {
	return []Description{
		{
			Name: "Planet",
			Shaders: []StageDescription{
				{Stage: spirv.StageVertex, FileName: "planet.vert"},
				{Stage: spirv.StageFragment, FileName: "planet.frag"},
			},
			Macros: []spirv.MacroDefinition{{Name: "USE_FOG", Value: "1"}},
			CrossCompileOptions: spirv.CrossCompileOptions{
				FixClipSpaceZ:          true,
				NormalizeResourceNames: true,
				Specializations:        []spirv.SpecializationConstant{spirv.FloatConstant(3, 1)},
			},
			Targets: []spirv.Target{spirv.TargetHLSL, spirv.TargetMSL},
		},
		{
			Name:    "Particles",
			Shaders: []StageDescription{{Stage: spirv.StageCompute, FileName: "particles.comp"}},
			Targets: []spirv.Target{spirv.TargetESSL},
		},
	}
}

func TestLoadSet(t *testing.T) {
	tests := []struct {
		file string
		doc  string
	}{
		{"set.json", jsonSet},
		{"set.yaml", yamlSet},
		{"set.yml", yamlSet},
		{"set.toml", tomlSetDoc},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))

			set, err := LoadSet(path)
			require.NoError(t, err)
			assert.Equal(t, expectedSet(), set)
		})
	}
}

func TestLoadSet_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSet(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, kindOf(t, err))

	_, err = LoadSet(filepath.Join(dir, "set.xml"))
	require.Error(t, err)
	assert.Equal(t, errors.KindUnsupported, kindOf(t, err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"name": "A", "targets": ["SPIRV"]}]`), 0o644))
	_, err = LoadSet(bad)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidData, kindOf(t, err))

	_, err = ParseSet([]byte(`[{"shaders": []}]`), FormatJSON)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, kindOf(t, err))
}
