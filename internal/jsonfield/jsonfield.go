// Package jsonfield extracts fields from JSON response bodies with gjson and
// reports every way the extraction can go wrong as a distinguishable error.
package jsonfield

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedBody is returned when the body is empty or not valid JSON.
var ErrMalformedBody = errors.New("malformed body")

// MissingFieldError reports a path that does not resolve in an otherwise valid document.
type MissingFieldError struct {
	Path string
	// Empty is true when the field exists but holds null or an empty string.
	Empty bool
}

func (e *MissingFieldError) Error() string {
	if e.Empty {
		return fmt.Sprintf("field %q is empty", e.Path)
	}
	return fmt.Sprintf("field %q is missing", e.Path)
}

// Document is a parsed, validated JSON body.
type Document struct {
	root gjson.Result
}

// Parse validates body and returns a Document for field lookups.
func Parse(body []byte) (Document, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Document{}, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}
	if !gjson.ValidBytes(body) {
		return Document{}, fmt.Errorf("%w: not valid JSON", ErrMalformedBody)
	}
	return Document{root: gjson.ParseBytes(body)}, nil
}

// Root returns the whole document.
func (d Document) Root() gjson.Result {
	return d.root
}

// Get returns the value at path. Absent paths yield a *MissingFieldError.
func (d Document) Get(path string) (gjson.Result, error) {
	res := d.root.Get(path)
	if !res.Exists() {
		return res, &MissingFieldError{Path: path}
	}
	return res, nil
}

// String returns the value at path as a string. A null or empty value is a
// *MissingFieldError with Empty set; numbers keep their raw JSON spelling.
func (d Document) String(path string) (string, error) {
	res, err := d.Get(path)
	if err != nil {
		return "", err
	}
	s := asString(res)
	if res.Type == gjson.Null || s == "" {
		return "", &MissingFieldError{Path: path, Empty: true}
	}
	return s, nil
}

// Array returns the elements at path. A value that is not an array is a *MissingFieldError.
func (d Document) Array(path string) ([]gjson.Result, error) {
	res, err := d.Get(path)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, &MissingFieldError{Path: path}
	}
	return res.Array(), nil
}

// Find returns the first element of the array at path whose key field,
// rendered as a string, equals want. ok is false when no element matches.
func (d Document) Find(path, key, want string) (gjson.Result, bool, error) {
	items, err := d.Array(path)
	if err != nil {
		return gjson.Result{}, false, err
	}
	for _, it := range items {
		v := it.Get(key)
		if v.Exists() && asString(v) == want {
			return it, true, nil
		}
	}
	return gjson.Result{}, false, nil
}

// Int reads an integral JSON number at path under res.
// present is false when the path is absent; ok is false when the value is not
// a JSON number with an integral value (a string "15" is not ok).
func Int(res gjson.Result, path string) (value int64, present bool, ok bool) {
	v := res.Get(path)
	if !v.Exists() {
		return 0, false, false
	}
	if v.Type != gjson.Number {
		return 0, true, false
	}
	f := v.Float()
	if f != float64(int64(f)) {
		return 0, true, false
	}
	return int64(f), true, true
}

func asString(v gjson.Result) string {
	if v.Type == gjson.Number {
		return v.Raw
	}
	return v.String()
}
