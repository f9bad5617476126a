package spirv

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/wippyai/vspirv/abi"
	"github.com/wippyai/vspirv/errors"
)

// VertexElementDescription describes one vertex shader input.
type VertexElementDescription struct {
	Name     string
	Semantic VertexElementSemantic
	Format   VertexElementFormat
	Offset   uint32
}

// ResourceLayoutElementDescription describes one binding slot. Slots the
// shader does not use appear as placeholders with an empty name.
type ResourceLayoutElementDescription struct {
	Name    string
	Kind    ResourceKind
	Stages  ShaderStages
	Options ResourceLayoutElementOptions
}

// ResourceLayoutDescription is one resource set, elements ordered by slot.
type ResourceLayoutDescription struct {
	Elements []ResourceLayoutElementDescription
}

// Equal reports element-wise equality.
func (d ResourceLayoutDescription) Equal(o ResourceLayoutDescription) bool {
	return slices.Equal(d.Elements, o.Elements)
}

// Reflection is the target-independent description of a shader's vertex
// inputs and resource bindings. Layouts are ordered by set index.
type Reflection struct {
	VertexElements  []VertexElementDescription
	ResourceLayouts []ResourceLayoutDescription
}

// Equal reports field-for-field equality, treating nil and empty slices
// alike.
func (r Reflection) Equal(o Reflection) bool {
	return slices.Equal(r.VertexElements, o.VertexElements) &&
		slices.EqualFunc(r.ResourceLayouts, o.ResourceLayouts, ResourceLayoutDescription.Equal)
}

// MarshalJSON writes empty arrays rather than null so documents always
// carry both fields.
func (r Reflection) MarshalJSON() ([]byte, error) {
	type layout struct {
		Elements []ResourceLayoutElementDescription
	}
	doc := struct {
		VertexElements  []VertexElementDescription
		ResourceLayouts []layout
	}{
		VertexElements:  r.VertexElements,
		ResourceLayouts: make([]layout, len(r.ResourceLayouts)),
	}
	if doc.VertexElements == nil {
		doc.VertexElements = []VertexElementDescription{}
	}
	for i, l := range r.ResourceLayouts {
		doc.ResourceLayouts[i].Elements = l.Elements
		if l.Elements == nil {
			doc.ResourceLayouts[i].Elements = []ResourceLayoutElementDescription{}
		}
	}
	return json.Marshal(doc)
}

// WriteReflection encodes r as an indented JSON document.
func WriteReflection(w io.Writer, r Reflection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadReflection decodes a document written by WriteReflection.
func ReadReflection(rd io.Reader) (Reflection, error) {
	var r Reflection
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return Reflection{}, errors.Wrap(errors.PhaseIO, errors.KindInvalidData, err, "decode reflection document")
	}
	return r, nil
}

// SaveReflection writes r to path.
func SaveReflection(path string, r Reflection) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("create %s", path))
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(errors.PhaseIO, errors.KindInternal, cerr, fmt.Sprintf("close %s", path))
		}
	}()
	return WriteReflection(f, r)
}

// LoadReflection reads a reflection document from path.
func LoadReflection(path string) (Reflection, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Reflection{}, errors.NotFound(errors.PhaseIO, "reflection document", path)
		}
		return Reflection{}, errors.Wrap(errors.PhaseIO, errors.KindInternal, err, fmt.Sprintf("open %s", path))
	}
	defer f.Close()
	return ReadReflection(f)
}

func reflectionFromABI(r abi.Reflection, withVertexElements bool) Reflection {
	var out Reflection
	if withVertexElements {
		out.VertexElements = make([]VertexElementDescription, len(r.VertexElements))
		for i, ve := range r.VertexElements {
			out.VertexElements[i] = VertexElementDescription{
				Name:     ve.Name,
				Semantic: VertexElementSemantic(ve.Semantic),
				Format:   VertexElementFormat(ve.Format),
				Offset:   ve.Offset,
			}
		}
	} else {
		out.VertexElements = []VertexElementDescription{}
	}
	out.ResourceLayouts = make([]ResourceLayoutDescription, len(r.ResourceLayouts))
	for i, rl := range r.ResourceLayouts {
		elems := make([]ResourceLayoutElementDescription, len(rl.Elements))
		for j, el := range rl.Elements {
			elems[j] = ResourceLayoutElementDescription{
				Name:    el.Name,
				Kind:    ResourceKind(el.Kind),
				Stages:  ShaderStages(el.Stages),
				Options: ResourceLayoutElementOptions(el.Options),
			}
		}
		out.ResourceLayouts[i] = ResourceLayoutDescription{Elements: elems}
	}
	return out
}
