package logger

import (
	"encoding/json"
	"fmt"
	"reflect"

	pkgerrors "github.com/pkg/errors"
)

// argsKey is the metadata key holding trailing call arguments that could not
// be merged as a single metadata map.
const argsKey = "args"

// Normalize reduces a variadic call argument list to a (message, metadata)
// pair. The reduction is deterministic and never panics: any serialization
// failure degrades to a coarser string form of the offending value.
//
// Rules, in order:
//  1. No arguments: empty message, empty metadata.
//  2. A leading error becomes the message (its Error() text) and is expanded
//     under an "error" metadata entry with name, message, stack (when the
//     error carries one) and any exported fields.
//  3. A leading string is the message verbatim.
//  4. Any other leading value is JSON-encoded into the message, falling back
//     to fmt formatting.
//  5. A single trailing plain map merges into the metadata, trailing keys
//     winning. Any other trailing arguments are individually normalized
//     (errors expanded as in rule 2) and kept, in order, under "args".
func Normalize(args []any) (string, Fields) {
	meta := Fields{}
	if len(args) == 0 {
		return "", meta
	}

	var message string
	switch first := args[0].(type) {
	case error:
		message = first.Error()
		meta["error"] = errorFields(first)
	case string:
		message = first
	default:
		message = stringify(first)
	}

	rest := args[1:]
	if len(rest) == 0 {
		return message, meta
	}

	if len(rest) == 1 {
		if m, ok := asFields(rest[0]); ok {
			for k, v := range m {
				meta[k] = v
			}
			return message, meta
		}
	}

	extras := make([]any, 0, len(rest))
	for _, arg := range rest {
		if err, ok := arg.(error); ok {
			extras = append(extras, errorFields(err))
			continue
		}
		extras = append(extras, arg)
	}
	meta[argsKey] = extras
	return message, meta
}

// asFields reports whether v is a plain string-keyed map and converts it.
// Errors are never treated as metadata maps even when they satisfy the map
// shape.
func asFields(v any) (Fields, bool) {
	if _, isErr := v.(error); isErr {
		return nil, false
	}
	switch m := v.(type) {
	case Fields:
		return m, true
	case map[string]any:
		return m, true
	case map[string]string:
		converted := make(Fields, len(m))
		for k, val := range m {
			converted[k] = val
		}
		return converted, true
	default:
		return nil, false
	}
}

// errorFields expands an error value into metadata carrying at minimum its
// type name and message. A stack trace is included when the error (or any
// error it wraps) records one, and exported fields of structured errors are
// folded in without overriding the core entries.
func errorFields(err error) Fields {
	f := Fields{
		"name":    errorName(err),
		"message": err.Error(),
	}
	if stack := errorStack(err); stack != "" {
		f["stack"] = stack
	}
	if extra := exportedFields(err); len(extra) > 0 {
		for k, v := range extra {
			if _, taken := f[k]; !taken {
				f[k] = v
			}
		}
	}
	return f
}

// errorName resolves the concrete type name of an error value.
func errorName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "error"
	}
	return t.Name()
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// errorStack walks the wrap chain looking for a recorded stack trace and
// renders it as text. Errors that never captured one yield an empty string;
// the normalizer does not invent a stack for them.
func errorStack(err error) string {
	for e := err; e != nil; e = unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			return fmt.Sprintf("%+v", st.StackTrace())
		}
	}
	return ""
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// exportedFields extracts the JSON-visible fields of a structured error.
// Plain errors (and anything that fails to round-trip) yield nil.
func exportedFields(err error) map[string]any {
	data, ok := safeMarshal(err)
	if !ok {
		return nil
	}
	var extra map[string]any
	if jsonErr := json.Unmarshal(data, &extra); jsonErr != nil {
		return nil
	}
	return extra
}

// stringify produces the message form of a non-string, non-error leading
// argument. JSON is preferred for structure; anything unencodable falls back
// to fmt.
func stringify(v any) string {
	if data, ok := safeMarshal(v); ok {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}

// safeMarshal JSON-encodes v, absorbing both marshal errors and panics from
// misbehaving MarshalJSON implementations.
func safeMarshal(v any) (data []byte, ok bool) {
	defer func() {
		if recover() != nil {
			data, ok = nil, false
		}
	}()
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return data, true
}
