package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jnst/fb-app-events/internal/model"
)

// ErrMalformed is returned when a payload does not have the expected shape.
var ErrMalformed = errors.New("malformed payload")

var jsonNull = []byte("null")

// objectWriter writes a JSON object field by field, in call order. Nil values are
// skipped, but their keys stay reserved so extra properties cannot take them. The
// first error sticks and is returned by bytes.
type objectWriter struct {
	buf    bytes.Buffer
	named  map[string]struct{}
	fields int
	err    error
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{named: make(map[string]struct{})}
	w.buf.WriteByte('{')

	return w
}

func (w *objectWriter) reserve(key string) {
	w.named[key] = struct{}{}
}

func (w *objectWriter) raw(key string, value []byte) {
	if w.err != nil {
		return
	}

	k, err := json.Marshal(key)
	if err != nil {
		w.err = err
		return
	}

	if w.fields > 0 {
		w.buf.WriteByte(',')
	}
	w.fields++
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
}

func (w *objectWriter) value(key string, v any) {
	w.reserve(key)
	if w.err != nil {
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("encode %s: %w", key, err)
		return
	}
	w.raw(key, b)
}

func (w *objectWriter) str(key string, v *string) {
	w.reserve(key)
	if v != nil {
		w.value(key, *v)
	}
}

func (w *objectWriter) integer(key string, v *int) {
	w.reserve(key)
	if v != nil {
		w.value(key, *v)
	}
}

func (w *objectWriter) int64(key string, v *int64) {
	w.reserve(key)
	if v != nil {
		w.value(key, *v)
	}
}

// decimal writes the decimal as a JSON number with the digits it was given, trailing
// zeros included.
func (w *objectWriter) decimal(key string, v *decimal.Decimal) {
	w.reserve(key)
	if v == nil {
		return
	}

	text := v.String()
	if exp := v.Exponent(); exp < 0 {
		text = v.StringFixed(-exp)
	}
	w.raw(key, []byte(text))
}

func (w *objectWriter) strings(key string, v []string) {
	w.reserve(key)
	if v != nil {
		w.value(key, v)
	}
}

func (w *objectWriter) object(key string, encoded []byte, err error) {
	w.reserve(key)
	if w.err != nil {
		return
	}
	if err != nil {
		w.err = fmt.Errorf("encode %s: %w", key, err)
		return
	}
	if encoded != nil {
		w.raw(key, encoded)
	}
}

// extra writes the extra properties sorted by key. It must run after every named field
// so that any named key, present or not, is a collision.
func (w *objectWriter) extra(props map[string]any) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if w.err != nil {
			return
		}
		if _, ok := w.named[k]; ok {
			w.err = fmt.Errorf("%w: %q", model.ErrExtraKeyCollision, k)
			return
		}
		if props[k] == nil {
			continue
		}
		w.value(k, props[k])
	}
}

func (w *objectWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')

	return w.buf.Bytes(), nil
}

// objectReader consumes named fields out of a JSON object. Whatever is left over
// becomes extra properties. JSON null reads as absent.
type objectReader struct {
	fields map[string]json.RawMessage
	err    error
}

func newObjectReader(data []byte) (*objectReader, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformed)
	}

	return &objectReader{fields: fields}, nil
}

func (r *objectReader) take(key string) (json.RawMessage, bool) {
	raw, ok := r.fields[key]
	if !ok {
		return nil, false
	}
	delete(r.fields, key)

	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, false
	}

	return raw, true
}

func (r *objectReader) decode(key string, dst any) bool {
	raw, ok := r.take(key)
	if !ok || r.err != nil {
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		r.err = fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
		return false
	}

	return true
}

func (r *objectReader) str(key string, dst **string) {
	var v string
	if r.decode(key, &v) {
		*dst = &v
	}
}

func (r *objectReader) integer(key string, dst **int) {
	var v int
	if r.decode(key, &v) {
		*dst = &v
	}
}

func (r *objectReader) int64(key string, dst **int64) {
	var v int64
	if r.decode(key, &v) {
		*dst = &v
	}
}

// decimal parses the number token directly so no digits are lost. Quoted numbers
// are accepted too.
func (r *objectReader) decimal(key string, dst **decimal.Decimal) {
	raw, ok := r.take(key)
	if !ok || r.err != nil {
		return
	}

	text := string(bytes.TrimSpace(raw))
	if len(text) > 0 && text[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			r.err = fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
			return
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
		return
	}
	*dst = &d
}

func (r *objectReader) strings(key string, dst *[]string) {
	var v []string
	if r.decode(key, &v) {
		*dst = v
	}
}

func (r *objectReader) object(key string, parse func([]byte) error) {
	raw, ok := r.take(key)
	if !ok || r.err != nil {
		return
	}

	if err := parse(raw); err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
}

// extra returns the fields no named field consumed, with numbers kept as json.Number.
func (r *objectReader) extra() (map[string]any, error) {
	if r.err != nil {
		return nil, r.err
	}

	var props map[string]any
	for k, raw := range r.fields {
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, k, err)
		}

		if props == nil {
			props = make(map[string]any, len(r.fields))
		}
		props[k] = v
	}

	return props, nil
}
