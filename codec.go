package propstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Primitive is the set of value types a View can store.
// Every value is kept as its canonical text form, which is also what gets persisted.
type Primitive interface {
	int | int64 | float64 | bool | string
}

// Kind names one of the Primitive types.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindInt64
	KindFloat64
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name (as printed by Kind.String, plus the aliases
// "long", "double", "float" and "boolean") back to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str", "":
		return KindString, nil
	case "int", "integer":
		return KindInt, nil
	case "int64", "long":
		return KindInt64, nil
	case "float64", "float", "double":
		return KindFloat64, nil
	case "bool", "boolean":
		return KindBool, nil
	}
	return KindString, fmt.Errorf("propstore: unknown kind %q", name)
}

// errDecode marks text that cannot be read as the requested kind.
// It never escapes the typed getters, which fall back to the caller's default.
var errDecode = errors.New("propstore: decode failure")

type decodeError struct {
	kind Kind
	text string
	err  error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("propstore: cannot decode %q as %s: %v", e.text, e.kind, e.err)
}

func (e *decodeError) Is(target error) bool { return target == errDecode }

func (e *decodeError) Unwrap() error { return e.err }

// Encode returns the canonical text form of v. It never fails.
func Encode[T Primitive](v T) string {
	switch x := any(v).(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	panic("propstore: unsupported primitive")
}

// Decode parses canonical text back into T.
// An int is 32 bits wide regardless of platform; wider values need int64.
func Decode[T Primitive](text string) (T, error) {
	var zero T
	var (
		out  any
		err  error
		kind Kind
	)
	switch any(zero).(type) {
	case int:
		kind = KindInt
		var n int64
		n, err = strconv.ParseInt(text, 10, 32)
		out = int(n)
	case int64:
		kind = KindInt64
		out, err = strconv.ParseInt(text, 10, 64)
	case float64:
		kind = KindFloat64
		out, err = strconv.ParseFloat(text, 64)
	case bool:
		kind = KindBool
		out, err = parseBool(text)
	case string:
		return any(text).(T), nil
	}
	if err != nil {
		return zero, &decodeError{kind: kind, text: text, err: err}
	}
	return out.(T), nil
}

// parseBool is stricter than strconv.ParseBool: only the canonical words are
// accepted, so an encoded 1 or 0 is not mistaken for a flag.
func parseBool(text string) (bool, error) {
	switch {
	case strings.EqualFold(text, "true"):
		return true, nil
	case strings.EqualFold(text, "false"):
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// KindOf reports the narrowest kind text decodes as.
func KindOf(text string) Kind {
	if _, err := parseBool(text); err == nil {
		return KindBool
	}
	if _, err := strconv.ParseInt(text, 10, 32); err == nil {
		return KindInt
	}
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return KindInt64
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return KindFloat64
	}
	return KindString
}

// Canonicalize validates text as kind and returns its canonical form,
// e.g. ("TRUE", KindBool) -> "true" and ("1.50", KindFloat64) -> "1.5".
func Canonicalize(kind Kind, text string) (string, error) {
	var (
		out string
		err error
	)
	switch kind {
	case KindInt:
		out, err = canonical[int](text)
	case KindInt64:
		out, err = canonical[int64](text)
	case KindFloat64:
		out, err = canonical[float64](text)
	case KindBool:
		out, err = canonical[bool](text)
	default:
		return text, nil
	}
	if err != nil {
		return "", fmt.Errorf("propstore: %q is not a valid %s", text, kind)
	}
	return out, nil
}

func canonical[T Primitive](text string) (string, error) {
	v, err := Decode[T](text)
	if err != nil {
		return "", err
	}
	return Encode(v), nil
}
