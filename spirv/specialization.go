package spirv

import (
	"fmt"
	"math"

	"github.com/wippyai/vspirv/abi"
)

// SpecializationConstant overrides a specialization constant embedded in a
// SPIR-V module. Data holds the value's native bit pattern zero-extended to
// 64 bits; use the typed constructors and accessors rather than setting it
// directly.
type SpecializationConstant struct {
	ID   uint32             `json:"id" yaml:"id" toml:"id"`
	Type ShaderConstantType `json:"type" yaml:"type" toml:"type"`
	Data uint64             `json:"data" yaml:"data" toml:"data"`
}

func BoolConstant(id uint32, v bool) SpecializationConstant {
	var data uint64
	if v {
		data = 1
	}
	return SpecializationConstant{ID: id, Type: ConstantBool, Data: data}
}

func Uint16Constant(id uint32, v uint16) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantUInt16, Data: uint64(v)}
}

func Int16Constant(id uint32, v int16) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantInt16, Data: uint64(uint16(v))}
}

func Uint32Constant(id uint32, v uint32) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantUInt32, Data: uint64(v)}
}

func Int32Constant(id uint32, v int32) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantInt32, Data: uint64(uint32(v))}
}

func Uint64Constant(id uint32, v uint64) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantUInt64, Data: v}
}

func Int64Constant(id uint32, v int64) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantInt64, Data: uint64(v)}
}

func FloatConstant(id uint32, v float32) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantFloat, Data: uint64(math.Float32bits(v))}
}

func DoubleConstant(id uint32, v float64) SpecializationConstant {
	return SpecializationConstant{ID: id, Type: ConstantDouble, Data: math.Float64bits(v)}
}

// Bool returns the value of a Bool constant.
func (c SpecializationConstant) Bool() bool { return c.Data != 0 }

// Int returns the value of any integer constant, sign-extended for the
// signed types.
func (c SpecializationConstant) Int() int64 {
	switch c.Type {
	case ConstantInt16:
		return int64(int16(c.Data))
	case ConstantInt32:
		return int64(int32(c.Data))
	default:
		return int64(c.Data)
	}
}

// Uint returns the value of any unsigned constant.
func (c SpecializationConstant) Uint() uint64 { return c.Data }

// Float returns the value of a Float or Double constant.
func (c SpecializationConstant) Float() float64 {
	if c.Type == ConstantFloat {
		return float64(math.Float32frombits(uint32(c.Data)))
	}
	return math.Float64frombits(c.Data)
}

func (c SpecializationConstant) String() string {
	switch c.Type {
	case ConstantBool:
		return fmt.Sprintf("%d:%s=%t", c.ID, c.Type, c.Bool())
	case ConstantFloat, ConstantDouble:
		return fmt.Sprintf("%d:%s=%g", c.ID, c.Type, c.Float())
	case ConstantInt16, ConstantInt32, ConstantInt64:
		return fmt.Sprintf("%d:%s=%d", c.ID, c.Type, c.Int())
	default:
		return fmt.Sprintf("%d:%s=%d", c.ID, c.Type, c.Data)
	}
}

// flattenSpecializations drops the type tags for the request record.
func flattenSpecializations(consts []SpecializationConstant) []abi.SpecializationRecord {
	if len(consts) == 0 {
		return nil
	}
	out := make([]abi.SpecializationRecord, len(consts))
	for i, c := range consts {
		out[i] = abi.SpecializationRecord{ID: c.ID, Bits: c.Data}
	}
	return out
}
