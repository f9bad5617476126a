package abi

import (
	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/errors"
)

// Macro is a preprocessor definition. An empty Value defines the name
// without a value.
type Macro struct {
	Name  string
	Value string
}

// GlslRequest is the Go form of GlslCompileInfo.
type GlslRequest struct {
	Source   string
	FileName string
	Macros   []Macro
	Kind     uint32
	Debug    bool
}

// CrossCompileRequest is the Go form of CrossCompileInfo. A nil stage is
// encoded as an empty descriptor.
type CrossCompileRequest struct {
	Specializations        []SpecializationRecord
	Vertex                 []byte
	Fragment               []byte
	Compute                []byte
	Target                 uint32
	FixClipSpaceZ          bool
	InvertY                bool
	NormalizeResourceNames bool
}

// EncodeGlslRequest writes req and everything it references. It returns
// the address of the GlslCompileInfo record.
func (e *Encoder) EncodeGlslRequest(req GlslRequest) (uint32, error) {
	src, err := e.String(req.Source, "GlslCompileInfo", "SourceText")
	if err != nil {
		return 0, err
	}
	file, err := e.String(req.FileName, "GlslCompileInfo", "FileName")
	if err != nil {
		return 0, err
	}

	macros := make([]MacroRecord, len(req.Macros))
	for i, m := range req.Macros {
		path := indexPath([]string{"GlslCompileInfo", "Macros"}, i)
		if m.Name == "" {
			return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				Detail("macro name is empty").
				Build()
		}
		name, err := e.String(m.Name, fieldPath(path, "Name")...)
		if err != nil {
			return 0, err
		}
		value, err := e.String(m.Value, fieldPath(path, "Value")...)
		if err != nil {
			return 0, err
		}
		macros[i] = MacroRecord{Name: name, Value: value}
	}
	macroDesc, err := Array(e, macros, "GlslCompileInfo", "Macros")
	if err != nil {
		return 0, err
	}

	return e.Record(GlslCompileInfo{
		SourceText: src,
		FileName:   file,
		Kind:       req.Kind,
		Debug:      ToBool32(req.Debug),
		Macros:     macroDesc,
	}, "GlslCompileInfo")
}

// EncodeCrossCompileRequest writes req and everything it references. It
// returns the address of the CrossCompileInfo record.
func (e *Encoder) EncodeCrossCompileRequest(req CrossCompileRequest) (uint32, error) {
	specs, err := Array(e, req.Specializations, "CrossCompileInfo", "Specializations")
	if err != nil {
		return 0, err
	}
	vs, err := e.Words(req.Vertex, "CrossCompileInfo", "VertexShader")
	if err != nil {
		return 0, err
	}
	fs, err := e.Words(req.Fragment, "CrossCompileInfo", "FragmentShader")
	if err != nil {
		return 0, err
	}
	cs, err := e.Words(req.Compute, "CrossCompileInfo", "ComputeShader")
	if err != nil {
		return 0, err
	}

	return e.Record(CrossCompileInfo{
		Target:                 req.Target,
		FixClipSpaceZ:          ToBool32(req.FixClipSpaceZ),
		InvertY:                ToBool32(req.InvertY),
		NormalizeResourceNames: ToBool32(req.NormalizeResourceNames),
		Specializations:        specs,
		VertexShader:           vs,
		FragmentShader:         fs,
		ComputeShader:          cs,
	}, "CrossCompileInfo")
}

// DecodeGlslRequest reads a GlslCompileInfo record and everything it
// references into owned Go values.
func DecodeGlslRequest(mem vspirv.Memory, addr uint32) (GlslRequest, error) {
	d := NewDecoder(mem)
	info, err := readAt[GlslCompileInfo](d, addr, []string{"GlslCompileInfo"})
	if err != nil {
		return GlslRequest{}, err
	}
	src, err := d.Bytes(info.SourceText, "GlslCompileInfo", "SourceText")
	if err != nil {
		return GlslRequest{}, err
	}
	file, err := d.Bytes(info.FileName, "GlslCompileInfo", "FileName")
	if err != nil {
		return GlslRequest{}, err
	}
	records, err := readArray[MacroRecord](d, info.Macros, []string{"GlslCompileInfo", "Macros"})
	if err != nil {
		return GlslRequest{}, err
	}
	var macros []Macro
	for i, r := range records {
		path := indexPath([]string{"GlslCompileInfo", "Macros"}, i)
		name, err := d.Bytes(r.Name, fieldPath(path, "Name")...)
		if err != nil {
			return GlslRequest{}, err
		}
		value, err := d.Bytes(r.Value, fieldPath(path, "Value")...)
		if err != nil {
			return GlslRequest{}, err
		}
		macros = append(macros, Macro{Name: string(name), Value: string(value)})
	}
	return GlslRequest{
		Source:   string(src),
		FileName: string(file),
		Kind:     info.Kind,
		Debug:    info.Debug.Bool(),
		Macros:   macros,
	}, nil
}

// DecodeCrossCompileRequest reads a CrossCompileInfo record and everything
// it references into owned Go values. Absent stages decode as nil.
func DecodeCrossCompileRequest(mem vspirv.Memory, addr uint32) (CrossCompileRequest, error) {
	d := NewDecoder(mem)
	info, err := readAt[CrossCompileInfo](d, addr, []string{"CrossCompileInfo"})
	if err != nil {
		return CrossCompileRequest{}, err
	}
	specs, err := readArray[SpecializationRecord](d, info.Specializations, []string{"CrossCompileInfo", "Specializations"})
	if err != nil {
		return CrossCompileRequest{}, err
	}
	vs, err := d.Words(info.VertexShader, "CrossCompileInfo", "VertexShader")
	if err != nil {
		return CrossCompileRequest{}, err
	}
	fs, err := d.Words(info.FragmentShader, "CrossCompileInfo", "FragmentShader")
	if err != nil {
		return CrossCompileRequest{}, err
	}
	cs, err := d.Words(info.ComputeShader, "CrossCompileInfo", "ComputeShader")
	if err != nil {
		return CrossCompileRequest{}, err
	}
	return CrossCompileRequest{
		Target:                 info.Target,
		FixClipSpaceZ:          info.FixClipSpaceZ.Bool(),
		InvertY:                info.InvertY.Bool(),
		NormalizeResourceNames: info.NormalizeResourceNames.Bool(),
		Specializations:        specs,
		Vertex:                 vs,
		Fragment:               fs,
		Compute:                cs,
	}, nil
}
