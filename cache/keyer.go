package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeySeparator joins the parts of a composite key. It may not appear inside
// a Resource.
const KeySeparator = ":"

// Resource identifies what is being cached: the data source and the
// operation performed against it, e.g. {"instagram", "search"}.
type Resource struct {
	Source    string
	Operation string
}

// String returns "<source>:<operation>".
func (r Resource) String() string {
	return r.Source + KeySeparator + r.Operation
}

// Validate rejects empty parts and parts containing KeySeparator.
func (r Resource) Validate() error {
	if r.Source == "" || r.Operation == "" {
		return fmt.Errorf("%w: source and operation are required", ErrInvalidResource)
	}
	if strings.Contains(r.Source, KeySeparator) || strings.Contains(r.Operation, KeySeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidResource, r.String(), KeySeparator)
	}
	return nil
}

// Keyer generates deterministic cache keys from request parameters.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from a resource discriminator and parameters.
	Key(res Resource, params any) (string, error)
}

// DefaultKeyer builds keys of the form <source>:<operation>:<params>, where
// params is the canonical serialization of the request parameters.
type DefaultKeyer struct {
	hashThreshold int
}

// KeyerOption configures a DefaultKeyer.
type KeyerOption func(*DefaultKeyer)

// WithHashThreshold replaces the params segment with "sha256:<hex>" when its
// canonical form is longer than n bytes. n <= 0 disables hashing.
func WithHashThreshold(n int) KeyerOption {
	return func(k *DefaultKeyer) {
		k.hashThreshold = n
	}
}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer(opts ...KeyerOption) *DefaultKeyer {
	k := &DefaultKeyer{}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Key generates a deterministic cache key. It only fails when res is invalid.
func (k *DefaultKeyer) Key(res Resource, params any) (string, error) {
	if err := res.Validate(); err != nil {
		return "", err
	}

	serialized := Serialize(params)
	if k.hashThreshold > 0 && len(serialized) > k.hashThreshold {
		sum := sha256.Sum256([]byte(serialized))
		serialized = "sha256:" + hex.EncodeToString(sum[:])
	}

	return res.String() + KeySeparator + serialized, nil
}

// Serialize returns a canonical textual form of v.
//
// Map keys are sorted, slice order is kept, strings are JSON-quoted and
// numbers use their shortest decimal form, so "1" and 1 never collide.
// Values that are neither plain JSON shapes nor marshallable fall back to
// their fmt representation; Serialize never fails.
func Serialize(v any) string {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.String()
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		writeNumber(buf, val)
	case float64:
		writeFloat(buf, val)
	case float32:
		writeFloat(buf, float64(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case time.Time:
		writeString(buf, val.UTC().Format(time.RFC3339Nano))
	case map[string]any:
		writeMap(buf, val)
	case []any:
		writeSlice(buf, val)
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, s)
		}
		buf.WriteByte(']')
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		writeMap(buf, m)
	default:
		writeFallback(buf, v)
	}
}

func writeMap(buf *bytes.Buffer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		writeCanonical(buf, m[k])
	}
	buf.WriteByte('}')
}

func writeSlice(buf *bytes.Buffer, s []any) {
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonical(buf, v)
	}
	buf.WriteByte(']')
}

func writeString(buf *bytes.Buffer, s string) {
	// json.Marshal of a string cannot fail.
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func writeNumber(buf *bytes.Buffer, n json.Number) {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return
	}
	if f, err := n.Float64(); err == nil {
		writeFloat(buf, f)
		return
	}
	buf.WriteString(n.String())
}

func writeFloat(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsNaN(f):
		buf.WriteString("NaN")
	case math.IsInf(f, 1):
		buf.WriteString("Infinity")
	case math.IsInf(f, -1):
		buf.WriteString("-Infinity")
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

// writeFallback normalizes structs, typed maps and slices through
// encoding/json. Anything that cannot be marshalled is rendered with fmt.
func writeFallback(buf *bytes.Buffer, v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		buf.WriteString("null")
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		writeString(buf, fmt.Sprintf("%T:%v", v, v))
		return
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		buf.Write(raw)
		return
	}
	writeCanonical(buf, generic)
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
