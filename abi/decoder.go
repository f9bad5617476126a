package abi

import (
	"github.com/wippyai/vspirv"
	"github.com/wippyai/vspirv/errors"
)

// VertexElement is a decoded VertexElementRecord.
type VertexElement struct {
	Name     string
	Offset   uint32
	Semantic uint8
	Format   uint8
}

// ResourceElement is a decoded ResourceElementRecord.
type ResourceElement struct {
	Name    string
	Options uint32
	Kind    uint8
	Stages  uint8
}

// ResourceLayout is a decoded ResourceLayoutRecord.
type ResourceLayout struct {
	Elements []ResourceElement
}

// Reflection is a decoded ReflectionInfo.
type Reflection struct {
	VertexElements  []VertexElement
	ResourceLayouts []ResourceLayout
}

// Result is a decoded CompilationResult. On failure Buffers holds the
// compiler message as its first element.
type Result struct {
	Buffers    [][]byte
	Reflection Reflection
	Succeeded  bool
}

// Message returns the compiler diagnostic of a failed result.
func (r Result) Message() string {
	if len(r.Buffers) == 0 {
		return ""
	}
	return string(r.Buffers[0])
}

// Decoder copies data out of guest memory. Every slice and string it
// returns is owned by the caller and stays valid after the memory it was
// read from is freed.
type Decoder struct {
	mem vspirv.Memory
}

// NewDecoder creates a decoder over mem.
func NewDecoder(mem vspirv.Memory) *Decoder {
	return &Decoder{mem: mem}
}

func (d *Decoder) read(addr, n uint32, path []string) ([]byte, error) {
	b, err := d.mem.Read(addr, n)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Path(path...).
			Detail("read %d bytes at %#x", n, addr).
			Cause(err).
			Build()
	}
	return b, nil
}

func readAt[T any, PT interface {
	*T
	Unmarshaler
}](d *Decoder, addr uint32, path []string) (T, error) {
	var v T
	if addr == 0 {
		return v, errors.NilPointer(errors.PhaseDecode, path, path[len(path)-1])
	}
	p := PT(&v)
	b, err := d.read(addr, p.SizeBytes(), path)
	if err != nil {
		return v, err
	}
	p.Get(b)
	return v, nil
}

func readArray[T any, PT interface {
	*T
	Unmarshaler
}](d *Decoder, desc Descriptor, path []string) ([]T, error) {
	if desc.Empty() {
		return nil, nil
	}
	elemSize := PT(new(T)).SizeBytes()
	if err := desc.Validate(elemSize, MaxElements, path); err != nil {
		return nil, err
	}
	b, err := d.read(desc.Data, desc.Count*elemSize, path)
	if err != nil {
		return nil, err
	}
	out := make([]T, desc.Count)
	for i := range out {
		off := uint32(i) * elemSize
		PT(&out[i]).Get(b[off : off+elemSize])
	}
	return out, nil
}

// Bytes copies a byte array. An empty descriptor yields nil.
func (d *Decoder) Bytes(desc Descriptor, path ...string) ([]byte, error) {
	if desc.Empty() {
		return nil, nil
	}
	if err := desc.Validate(1, MaxBufferBytes, path); err != nil {
		return nil, err
	}
	b, err := d.read(desc.Data, desc.Count, path)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// String copies a byte array as a string.
func (d *Decoder) String(desc Descriptor, path ...string) (string, error) {
	b, err := d.Bytes(desc, path...)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Words copies an array of 32-bit words and returns its bytes.
func (d *Decoder) Words(desc Descriptor, path ...string) ([]byte, error) {
	if desc.Empty() {
		return nil, nil
	}
	if err := desc.Validate(4, MaxBufferBytes/4, path); err != nil {
		return nil, err
	}
	b, err := d.read(desc.Data, desc.Count*4, path)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Result reads the CompilationResult record at addr. A zero address is
// a nil pointer error.
func (d *Decoder) Result(addr uint32) (CompilationResult, error) {
	return readAt[CompilationResult](d, addr, []string{"CompilationResult"})
}

// BufferCount returns the number of data buffers in res.
func (d *Decoder) BufferCount(res CompilationResult) uint32 {
	return res.DataBuffers.Count
}

// Buffer copies data buffer i of res.
func (d *Decoder) Buffer(res CompilationResult, i uint32) ([]byte, error) {
	base := []string{"CompilationResult", "DataBuffers"}
	path := indexPath(base, int(i))
	if err := res.DataBuffers.Validate(DescriptorSize, MaxElements, base); err != nil {
		return nil, err
	}
	addr, err := res.DataBuffers.Element(i, DescriptorSize, path)
	if err != nil {
		return nil, err
	}
	desc, err := readAt[Descriptor](d, addr, path)
	if err != nil {
		return nil, err
	}
	return d.Bytes(desc, path...)
}

// Buffers copies every data buffer of res.
func (d *Decoder) Buffers(res CompilationResult) ([][]byte, error) {
	path := []string{"CompilationResult", "DataBuffers"}
	descs, err := readArray[Descriptor](d, res.DataBuffers, path)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(descs))
	for i, desc := range descs {
		b, err := d.Bytes(desc, indexPath(path, i)...)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Message returns the diagnostic carried by buffer 0 of a failed result.
func (d *Decoder) Message(res CompilationResult) (string, error) {
	if res.DataBuffers.Empty() {
		return "", nil
	}
	b, err := d.Buffer(res, 0)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Reflection copies the reflection data of res.
func (d *Decoder) Reflection(res CompilationResult) (Reflection, error) {
	var out Reflection

	vePath := []string{"ReflectionInfo", "VertexElements"}
	ves, err := readArray[VertexElementRecord](d, res.Reflection.VertexElements, vePath)
	if err != nil {
		return out, err
	}
	for i, r := range ves {
		name, err := d.String(r.Name, fieldPath(indexPath(vePath, i), "Name")...)
		if err != nil {
			return out, err
		}
		out.VertexElements = append(out.VertexElements, VertexElement{
			Name:     name,
			Semantic: r.Semantic,
			Format:   r.Format,
			Offset:   r.Offset,
		})
	}

	rlPath := []string{"ReflectionInfo", "ResourceLayouts"}
	rls, err := readArray[ResourceLayoutRecord](d, res.Reflection.ResourceLayouts, rlPath)
	if err != nil {
		return out, err
	}
	for i, rl := range rls {
		elPath := fieldPath(indexPath(rlPath, i), "Elements")
		els, err := readArray[ResourceElementRecord](d, rl.Elements, elPath)
		if err != nil {
			return out, err
		}
		layout := ResourceLayout{Elements: make([]ResourceElement, 0, len(els))}
		for j, el := range els {
			name, err := d.String(el.Name, fieldPath(indexPath(elPath, j), "Name")...)
			if err != nil {
				return out, err
			}
			layout.Elements = append(layout.Elements, ResourceElement{
				Name:    name,
				Kind:    el.Kind,
				Stages:  el.Stages,
				Options: el.Options,
			})
		}
		out.ResourceLayouts = append(out.ResourceLayouts, layout)
	}
	return out, nil
}

// Decode reads the whole result at addr into owned Go values.
func (d *Decoder) Decode(addr uint32) (Result, error) {
	res, err := d.Result(addr)
	if err != nil {
		return Result{}, err
	}
	buffers, err := d.Buffers(res)
	if err != nil {
		return Result{}, err
	}
	refl, err := d.Reflection(res)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Succeeded:  res.Succeeded.Bool(),
		Buffers:    buffers,
		Reflection: refl,
	}, nil
}

// EncodeResult writes res as a CompilationResult and returns its address.
// It is the inverse of Decode and is used by in-process compiler
// implementations.
func (e *Encoder) EncodeResult(res Result) (uint32, error) {
	bufPath := []string{"CompilationResult", "DataBuffers"}
	descs := make([]Descriptor, len(res.Buffers))
	for i, b := range res.Buffers {
		d, err := e.Bytes(b, indexPath(bufPath, i)...)
		if err != nil {
			return 0, err
		}
		descs[i] = d
	}
	buffers, err := Array(e, descs, bufPath...)
	if err != nil {
		return 0, err
	}

	vePath := []string{"ReflectionInfo", "VertexElements"}
	ves := make([]VertexElementRecord, len(res.Reflection.VertexElements))
	for i, ve := range res.Reflection.VertexElements {
		name, err := e.String(ve.Name, fieldPath(indexPath(vePath, i), "Name")...)
		if err != nil {
			return 0, err
		}
		ves[i] = VertexElementRecord{Name: name, Semantic: ve.Semantic, Format: ve.Format, Offset: ve.Offset}
	}
	veDesc, err := Array(e, ves, vePath...)
	if err != nil {
		return 0, err
	}

	rlPath := []string{"ReflectionInfo", "ResourceLayouts"}
	rls := make([]ResourceLayoutRecord, len(res.Reflection.ResourceLayouts))
	for i, rl := range res.Reflection.ResourceLayouts {
		elPath := fieldPath(indexPath(rlPath, i), "Elements")
		els := make([]ResourceElementRecord, len(rl.Elements))
		for j, el := range rl.Elements {
			name, err := e.String(el.Name, fieldPath(indexPath(elPath, j), "Name")...)
			if err != nil {
				return 0, err
			}
			els[j] = ResourceElementRecord{Name: name, Kind: el.Kind, Stages: el.Stages, Options: el.Options}
		}
		elDesc, err := Array(e, els, elPath...)
		if err != nil {
			return 0, err
		}
		rls[i] = ResourceLayoutRecord{Elements: elDesc}
	}
	rlDesc, err := Array(e, rls, rlPath...)
	if err != nil {
		return 0, err
	}

	return e.Record(CompilationResult{
		Succeeded:   ToBool32(res.Succeeded),
		DataBuffers: buffers,
		Reflection: ReflectionInfo{
			VertexElements:  veDesc,
			ResourceLayouts: rlDesc,
		},
	}, "CompilationResult")
}
