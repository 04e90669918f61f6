package operations

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// IsSerializable reports whether v survives a round trip through JSON. Values holding functions,
// channels, complex numbers or unexported struct fields do not, unless the type marshals itself.
func IsSerializable(lggr logger.Logger, v any) bool {
	return isValueSerializable(lggr, reflect.ValueOf(v))
}

func isValueSerializable(lggr logger.Logger, v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	t := v.Type()
	if marshalsItself(t) {
		return true
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		lggr.Warnw("Type cannot be serialized", "type", t.String())
		return false
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return true
		}

		return isValueSerializable(lggr, v.Elem())
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return true
		}
		for i := range v.Len() {
			if !isValueSerializable(lggr, v.Index(i)) {
				return false
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if !isValueSerializable(lggr, iter.Value()) {
				return false
			}
		}
	case reflect.Struct:
		for i := range t.NumField() {
			field := t.Field(i)
			if field.Tag.Get("json") == "-" {
				continue
			}
			if !field.IsExported() {
				lggr.Warnw("Struct has an unexported field", "type", t.String(), "field", field.Name)
				return false
			}
			if !isValueSerializable(lggr, v.Field(i)) {
				return false
			}
		}
	default:
	}

	return true
}

func marshalsItself(t reflect.Type) bool {
	pt := reflect.PointerTo(t)

	return t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}

// inputHash identifies a run of def with input. The input is normalized through a generic JSON
// value first, so a typed input and its decoded form from a report file hash the same.
func inputHash(def Definition, input any) (string, error) {
	normalized, err := reshape[any](input)
	if err != nil {
		return "", fmt.Errorf("failed to normalize input: %w", err)
	}

	data, err := json.Marshal(map[string]any{
		"id":      def.ID,
		"version": def.versionString(),
		"input":   normalized,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal definition: %w", err)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
