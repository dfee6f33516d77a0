// Package value implements the typed field-value model. Raw input entering
// the system is coerced into a tagged variant keyed by the field's declared
// type, instead of being carried as untyped data through the pipeline. The
// package is also the only place aware of the store's timestamp wire shape
// for date-valued fields.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ticware/opscore/internal/app/domain/form"
)

// Kind tags the variant held by a Value.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
	KindBool   Kind = "bool"
	KindSelect Kind = "select"
)

// Value is one field value of an entry. The zero Value is absent.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
	Flag bool
}

// Absent reports whether v holds no value.
func (v Value) Absent() bool { return v.Kind == "" }

func Text(s string) Value    { return Value{Kind: KindText, Str: s} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Flag: b} }
func Select(s string) Value  { return Value{Kind: KindSelect, Str: s} }

// DefaultSelectOptions is the placeholder option set used when a select field
// carries no configured options.
var DefaultSelectOptions = []string{"Option 1", "Option 2", "Option 3"}

// timestamp is the document store's native representation for date values.
type timestamp struct {
	Seconds     int64 `json:"_seconds"`
	Nanoseconds int64 `json:"_nanoseconds"`
}

// MarshalJSON writes the store representation: dates become timestamp
// objects, everything else its natural JSON scalar. Absent values encode as
// null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText, KindSelect:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Flag)
	case KindDate:
		return json.Marshal(timestamp{Seconds: v.Time.Unix(), Nanoseconds: int64(v.Time.Nanosecond())})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reads the store representation back. String scalars decode as
// text; a schema-aware caller re-tags select values via Coerce.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var ts struct {
			Seconds     *int64 `json:"_seconds"`
			Nanoseconds int64  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(data, &ts); err != nil {
			return fmt.Errorf("decode timestamp value: %w", err)
		}
		if ts.Seconds == nil {
			return fmt.Errorf("object value %s is not a timestamp", trimmed)
		}
		*v = Date(time.Unix(*ts.Seconds, ts.Nanoseconds).UTC())
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = Text(x)
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	default:
		return fmt.Errorf("unsupported value literal %s", trimmed)
	}
	return nil
}

// Coerce converts raw input into the Value demanded by the field type.
// The second return reports whether a usable value was produced; invalid or
// empty input yields (absent, false) rather than a mistyped value, except for
// booleans where absence collapses to false.
func Coerce(field form.Field, raw any) (Value, bool) {
	switch field.Type {
	case form.TypeText:
		s, ok := coerceString(raw)
		if !ok {
			return Value{}, false
		}
		return Text(s), true

	case form.TypeNumber:
		switch x := raw.(type) {
		case float64:
			return Number(x), true
		case int:
			return Number(float64(x)), true
		case int64:
			return Number(float64(x)), true
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return Value{}, false
			}
			return Number(f), true
		case string:
			trimmed := strings.TrimSpace(x)
			if trimmed == "" {
				return Value{}, false
			}
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				return Value{}, false
			}
			return Number(f), true
		case Value:
			if x.Kind == KindNumber {
				return x, true
			}
			return Value{}, false
		}
		return Value{}, false

	case form.TypeDate:
		switch x := raw.(type) {
		case time.Time:
			return Date(x.UTC()), true
		case string:
			return parseDateString(x)
		case map[string]any:
			sec, okSec := asInt64(x["_seconds"])
			if !okSec {
				return Value{}, false
			}
			nsec, _ := asInt64(x["_nanoseconds"])
			return Date(time.Unix(sec, nsec).UTC()), true
		case Value:
			if x.Kind == KindDate {
				return x, true
			}
			if x.Kind == KindText {
				return parseDateString(x.Str)
			}
			return Value{}, false
		}
		return Value{}, false

	case form.TypeBoolean:
		switch x := raw.(type) {
		case nil:
			return Bool(false), true
		case bool:
			return Bool(x), true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return Bool(false), true
			}
			return Bool(b), true
		case Value:
			if x.Kind == KindBool {
				return x, true
			}
			if x.Absent() {
				return Bool(false), true
			}
			return Bool(false), true
		}
		return Bool(false), true

	case form.TypeSelect:
		s, ok := coerceString(raw)
		if !ok {
			return Value{}, false
		}
		options := field.Options
		if len(options) == 0 {
			options = DefaultSelectOptions
		}
		for _, opt := range options {
			if opt == s {
				return Select(s), true
			}
		}
		return Value{}, false
	}
	return Value{}, false
}

func coerceString(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case Value:
		if x.Kind == KindText || x.Kind == KindSelect {
			return x.Str, true
		}
		return "", false
	case nil:
		return "", false
	case float64, int, int64, bool:
		return fmt.Sprint(x), true
	}
	return "", false
}

func parseDateString(s string) (Value, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Date(t.UTC()), true
		}
	}
	return Value{}, false
}

func asInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case float64:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
