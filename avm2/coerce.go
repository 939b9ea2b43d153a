package avm2

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coercer converts argument values to declared parameter types.
type Coercer interface {
	Coerce(act *Activation, v Value, typeName string) (Value, error)
}

// StandardCoercer implements the coercion rules for the built-in type names
// and for class names registered with the session.
type StandardCoercer struct{}

var _ Coercer = StandardCoercer{}

// Coerce converts v to type typeName. Failing conversions return a
// *CoercionError.
func (StandardCoercer) Coerce(act *Activation, v Value, typeName string) (Value, error) {
	if v == nil {
		v = Undefined
	}
	switch typeName {
	case "", "*":
		return v, nil
	case "void":
		return Undefined, nil
	case "Object":
		if v == Undefined {
			return Null, nil
		}
		return v, nil
	case "Number":
		return Number(ToNumber(v)), nil
	case "int":
		return Int(ToInt32(v)), nil
	case "uint":
		return Uint(ToUint32(v)), nil
	case "Boolean":
		return Bool(ToBoolean(v)), nil
	case "String":
		if IsAbsent(v) {
			return Null, nil
		}
		return String(ToString(v)), nil
	case "Array":
		if IsAbsent(v) {
			return Null, nil
		}
		if _, ok := v.(*ArrayObject); ok {
			return v, nil
		}
	case "Function":
		if IsAbsent(v) {
			return Null, nil
		}
		if _, ok := v.(*FunctionObject); ok {
			return v, nil
		}
	default:
		if IsAbsent(v) {
			return Null, nil
		}
		class := act.Avm().ClassByName(typeName)
		if class == nil {
			return nil, &CoercionError{Value: v, Type: typeName, Unresolved: true}
		}
		if obj, ok := v.(Object); ok && obj.Class().IsSubclassOf(class) {
			return v, nil
		}
	}
	return nil, &CoercionError{Value: v, Type: typeName}
}

// --- Conversions -----------------------------------------------------------

// ToNumber converts a value to a double.
func ToNumber(v Value) float64 {
	switch x := v.(type) {
	case Number:
		return float64(x)
	case Int:
		return float64(x)
	case Uint:
		return float64(x)
	case Bool:
		if x {
			return 1
		}
		return 0
	case String:
		return parseNumber(string(x))
	case *ArrayObject:
		return parseNumber(x.String())
	}
	if v == Null {
		return 0
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToInt32 converts a value to a signed 32-bit integer, wrapping modulo 2^32.
func ToInt32(v Value) int32 {
	return int32(ToUint32(v))
}

// ToUint32 converts a value to an unsigned 32-bit integer, wrapping modulo 2^32.
func ToUint32(v Value) uint32 {
	switch x := v.(type) {
	case Int:
		return uint32(x)
	case Uint:
		return uint32(x)
	}
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Mod(math.Trunc(f), 4294967296)
	if f < 0 {
		f += 4294967296
	}
	return uint32(f)
}

// ToBoolean converts a value to a boolean.
func ToBoolean(v Value) bool {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Number:
		return x != 0 && !math.IsNaN(float64(x))
	case Int:
		return x != 0
	case Uint:
		return x != 0
	case String:
		return x != ""
	}
	return !IsAbsent(v)
}

// ToString converts a value to a string.
func ToString(v Value) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case String:
		return string(x)
	case Number:
		return FormatNumber(float64(x))
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Uint:
		return strconv.FormatUint(uint64(x), 10)
	case Bool:
		return strconv.FormatBool(bool(x))
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}

// FormatNumber renders a double the way the emulated runtime does:
// integral values without a fraction, NaN and infinities spelled out.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Equals implements abstract (loose) equality.
func Equals(a, b Value) bool {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	if IsAbsent(a) || IsAbsent(b) {
		return IsAbsent(a) && IsAbsent(b)
	}
	if isNumeric(a) || isNumeric(b) {
		if _, ok := a.(Object); ok {
			return false
		}
		if _, ok := b.(Object); ok {
			return false
		}
		return ToNumber(a) == ToNumber(b)
	}
	if sa, ok := a.(String); ok {
		if sb, ok := b.(String); ok {
			return sa == sb
		}
		return false
	}
	return a == b
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case Number, Int, Uint, Bool:
		return true
	}
	return false
}
