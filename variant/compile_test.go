package variant

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/vspirv/errors"
	"github.com/wippyai/vspirv/internal/nativetest"
	"github.com/wippyai/vspirv/spirv"
)

func TestCompileAll(t *testing.T) {
	fx := newFixture(t)
	second := nativetest.New()
	second.Cross = nativetest.PlanetCross
	t.Cleanup(func() { second.Check(t) })
	fx.builder.Compiler = spirv.New(fx.fake, second)

	fx.write(t, "planet.vert", planetVert)
	fx.write(t, "planet.frag", planetFrag)
	fx.write(t, "particles.comp", particles)

	variants := []Description{
		planet(spirv.TargetHLSL, spirv.TargetGLSL),
		{
			Name:    "Particles",
			Shaders: []StageDescription{{Stage: spirv.StageCompute, FileName: "particles.comp"}},
			Targets: []spirv.Target{spirv.TargetMSL},
		},
		{
			Name: "Broken",
			Shaders: []StageDescription{
				{Stage: spirv.StageVertex, FileName: "broken.vert"},
				{Stage: spirv.StageFragment, FileName: "planet.frag"},
			},
			Targets: []spirv.Target{spirv.TargetHLSL},
		},
		{
			Name:    "Lonely",
			Shaders: []StageDescription{{Stage: spirv.StageFragment, FileName: "planet.frag"}},
		},
	}

	var (
		mu     sync.Mutex
		events = map[string]Event{}
	)
	paths, err := fx.builder.CompileAllNotify(context.Background(), variants, 2, func(e Event) {
		mu.Lock()
		events[e.Variant] = e
		mu.Unlock()
	})
	require.Error(t, err)

	assert.Equal(t, []string{
		fx.artifact("Broken_Fragment.spv"),
		fx.artifact("Particles_Compute.metal"),
		fx.artifact("Particles_Compute.spv"),
		fx.artifact("Planet_Fragment.glsl"),
		fx.artifact("Planet_Fragment.hlsl"),
		fx.artifact("Planet_Fragment.spv"),
		fx.artifact("Planet_Vertex.glsl"),
		fx.artifact("Planet_Vertex.hlsl"),
		fx.artifact("Planet_Vertex.spv"),
	}, paths)

	var agg *errors.AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors(), 2)
	assert.Contains(t, agg.Errors()[0].Error(), `variant "Broken"`)
	assert.Contains(t, agg.Errors()[1].Error(), `variant "Lonely"`)

	flat := errors.Flatten(err)
	require.Len(t, flat, 2)
	assert.Equal(t, errors.KindNotFound, kindOf(t, flat[0]))
	assert.Equal(t, errors.KindMissingStage, kindOf(t, flat[1]))

	require.Len(t, events, 4)
	assert.NoError(t, events["Planet"].Err)
	assert.Len(t, events["Planet"].Paths, 6)
	assert.Error(t, events["Lonely"].Err)
}

func TestCompileAll_Canceled(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths, err := fx.builder.CompileAll(ctx, []Description{planet(spirv.TargetHLSL)}, 0)
	assert.Empty(t, paths)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fx.fake.GlslRequests())
}

func TestCompileAll_Deduplicates(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "planet.vert", planetVert)
	fx.write(t, "planet.frag", planetFrag)

	paths, err := fx.builder.CompileAll(context.Background(),
		[]Description{planet(spirv.TargetHLSL), planet(spirv.TargetHLSL)}, 1)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}

func TestPathSet(t *testing.T) {
	s := NewPathSet()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("b", "a", "c")
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"a", "b", "c"}, s.Sorted())
}

func TestWriteManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths := []string{"out/A_Vertex.spv", "out/A_Vertex.hlsl"}

	manifest, err := WriteManifest(dir, paths)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestFileName), manifest)

	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Equal(t, "out/A_Vertex.spv\nout/A_Vertex.hlsl", string(data))
	assert.False(t, strings.HasSuffix(string(data), "\n"))

	manifest, err = WriteManifest(dir, nil)
	require.NoError(t, err)
	data, err = os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Empty(t, data)
}
