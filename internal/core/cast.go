package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cast kinds understood by the mapper.
const (
	CastArray    = "array"
	CastJSON     = "json"
	CastMsgpack  = "msgpack"
	CastInt      = "int"
	CastFloat    = "float"
	CastBool     = "bool"
	CastString   = "string"
	CastDate     = "date"
	CastDateTime = "datetime"
)

// Layouts used by the date and datetime casts.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var castAliases = map[string]string{
	"arr":     CastArray,
	"integer": CastInt,
	"boolean": CastBool,
	"str":     CastString,
}

func normalizeCast(kind string) string {
	kind = strings.ToLower(kind)
	if alias, ok := castAliases[kind]; ok {
		return alias
	}
	return kind
}

// CastOut converts a stored value into its logical form.
func CastOut(kind string, v any) any {
	switch normalizeCast(kind) {
	case CastArray:
		s, ok := v.(string)
		if !ok {
			return nil
		}
		items := make([]any, 0)
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, inferScalar(item))
			}
		}
		return items
	case CastJSON:
		var out any
		if s, ok := v.(string); !ok || json.Unmarshal([]byte(s), &out) != nil {
			return nil
		}
		return out
	case CastMsgpack:
		var data []byte
		switch b := v.(type) {
		case []byte:
			data = b
		case string:
			data = []byte(b)
		default:
			return nil
		}
		var out any
		if msgpack.Unmarshal(data, &out) != nil {
			return nil
		}
		return out
	case CastInt:
		if n, ok := toInt(v); ok {
			return n
		}
		return nil
	case CastFloat:
		if f, ok := toFloat(v); ok {
			return f
		}
		return nil
	case CastBool:
		if b, ok := toBool(v); ok {
			return b
		}
		return nil
	case CastString:
		if v == nil {
			return nil
		}
		return fmt.Sprint(v)
	case CastDate, CastDateTime:
		if t, ok := toTime(v); ok {
			return t
		}
		return nil
	default:
		if s, ok := v.(string); ok {
			return inferScalar(s)
		}
		return v
	}
}

// CastIn converts a logical value into a value the driver can store.
func CastIn(kind string, v any) any {
	switch normalizeCast(kind) {
	case CastArray:
		switch items := v.(type) {
		case []any:
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = fmt.Sprint(item)
			}
			return strings.Join(parts, ",")
		case []string:
			return strings.Join(items, ",")
		}
		return nil
	case CastJSON:
		if s, ok := v.(string); ok {
			return s
		}
		if v == nil || isScalar(v) {
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(data)
	case CastMsgpack:
		if v == nil {
			return nil
		}
		data, err := msgpack.Marshal(v)
		if err != nil {
			return nil
		}
		return data
	case CastBool:
		if b, ok := toBool(v); ok && b {
			return 1
		}
		return 0
	case CastDate:
		if t, ok := toTime(v); ok {
			return t.Format(DateLayout)
		}
		return nil
	case CastDateTime:
		if t, ok := toTime(v); ok {
			return t.Format(DateTimeLayout)
		}
		return nil
	default:
		if v == nil || isScalar(v) {
			return v
		}
		if t, ok := v.(time.Time); ok {
			return t
		}
		return fmt.Sprint(v)
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, []byte, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// inferScalar turns numeric and boolean text into numbers and booleans.
func inferScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return s
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case float32:
		if n == float32(int64(n)) {
			return int64(n), true
		}
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
		return f, err == nil
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// toBool accepts 1/0, true/false, on/off, yes/no and the empty string.
func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "on", "yes":
			return true, true
		case "0", "false", "off", "no", "":
			return false, true
		}
		return false, false
	case nil:
		return false, false
	}
	if n, ok := toInt(v); ok {
		switch n {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

var timeLayouts = []string{
	DateTimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayout,
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
