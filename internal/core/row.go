package core

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/go-openapi/inflect"
)

// ErrDecodeTarget is returned when Decode gets something other than a
// pointer to a struct, or DecodeRows something other than a pointer to a
// slice of structs.
var ErrDecodeTarget = errors.New("decode target must be a pointer to a struct")

// Has reports whether the row has column, NULL or not.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// IsNull reports whether column is missing or NULL.
func (r Row) IsNull(column string) bool {
	return r[column] == nil
}

// String returns column as a string; missing and NULL give "".
func (r Row) String(column string) string {
	return stringOf(r[column])
}

func stringOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns column as an integer and whether it could be read as one.
func (r Row) Int(column string) (int64, bool) {
	return toInt(r[column])
}

type fieldInfo struct {
	index  []int
	column string
}

type structInfo struct {
	fields []fieldInfo
}

var structCache sync.Map // reflect.Type -> *structInfo

// structInfoOf lists the exported fields of typ by column name: the db tag
// or the underscored field name. Embedded structs are flattened and db:"-"
// skips a field.
func structInfoOf(typ reflect.Type) *structInfo {
	if cached, ok := structCache.Load(typ); ok {
		return cached.(*structInfo)
	}
	info := &structInfo{}
	collectFields(typ, nil, info)
	actual, _ := structCache.LoadOrStore(typ, info)
	return actual.(*structInfo)
}

func collectFields(typ reflect.Type, index []int, info *structInfo) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		path := append(append([]int{}, index...), i)

		tag, tagged := field.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct && !tagged {
			collectFields(field.Type, path, info)
			continue
		}
		if !field.IsExported() {
			continue
		}

		column := tag
		if column == "" {
			column = inflect.Underscore(field.Name)
		}
		info.fields = append(info.fields, fieldInfo{index: path, column: column})
	}
}

// Decode copies the row into the struct dest points to. Columns without a
// matching field are ignored.
func (r Row) Decode(dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrDecodeTarget, dest)
	}
	return decodeStruct(r, v.Elem())
}

// DecodeRows copies rows into the slice dest points to. The slice element
// may be a struct or a pointer to a struct.
func DecodeRows(rows []Row, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w slice, got %T", ErrDecodeTarget, dest)
	}

	slice := v.Elem()
	elem := slice.Type().Elem()
	isPtr := elem.Kind() == reflect.Pointer
	if isPtr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("%w slice, got %T", ErrDecodeTarget, dest)
	}

	out := reflect.MakeSlice(slice.Type(), 0, len(rows))
	for i, row := range rows {
		item := reflect.New(elem)
		if err := decodeStruct(row, item.Elem()); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if isPtr {
			out = reflect.Append(out, item)
		} else {
			out = reflect.Append(out, item.Elem())
		}
	}
	slice.Set(out)
	return nil
}

func decodeStruct(row Row, v reflect.Value) error {
	for _, f := range structInfoOf(v.Type()).fields {
		value, ok := row[f.column]
		if !ok {
			continue
		}
		if err := assign(v.FieldByIndex(f.index), value); err != nil {
			return fmt.Errorf("column %s: %w", f.column, err)
		}
	}
	return nil
}

func assign(field reflect.Value, value any) error {
	if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
		return scanner.Scan(value)
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	src := reflect.ValueOf(value)
	switch field.Kind() {
	case reflect.String:
		field.SetString(stringOf(value))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := toInt(value); ok {
			if field.OverflowInt(n) {
				return fmt.Errorf("%d overflows %s", n, field.Type())
			}
			field.SetInt(n)
			return nil
		}
		if src.CanUint() {
			u := src.Uint()
			if u > math.MaxInt64 || field.OverflowInt(int64(u)) {
				return fmt.Errorf("%d overflows %s", u, field.Type())
			}
			field.SetInt(int64(u))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if src.CanUint() && !field.OverflowUint(src.Uint()) {
			field.SetUint(src.Uint())
			return nil
		}
		if n, ok := toInt(value); ok && n >= 0 {
			if field.OverflowUint(uint64(n)) {
				return fmt.Errorf("%d overflows %s", n, field.Type())
			}
			field.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := toFloat(value); ok {
			field.SetFloat(f)
			return nil
		}
	case reflect.Bool:
		if b, ok := toBool(value); ok {
			field.SetBool(b)
			return nil
		}
	}

	if src.Type().AssignableTo(field.Type()) {
		field.Set(src)
		return nil
	}
	if t, ok := toTime(value); ok && reflect.TypeOf(t).AssignableTo(field.Type()) {
		field.Set(reflect.ValueOf(t))
		return nil
	}
	if src.Type().ConvertibleTo(field.Type()) && src.Kind() != reflect.String {
		field.Set(src.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// RowOf builds a Row from the exported fields of a struct or a pointer to
// one, using the same column names as Decode. Nil pointers are stored as
// NULL.
func RowOf(v any) (Row, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w, got nil %T", ErrDecodeTarget, v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %T", ErrDecodeTarget, v)
	}

	info := structInfoOf(rv.Type())
	row := make(Row, len(info.fields))
	for _, f := range info.fields {
		field := rv.FieldByIndex(f.index)
		if field.Kind() == reflect.Pointer && field.IsNil() {
			row[f.column] = nil
			continue
		}
		row[f.column] = field.Interface()
	}
	return row, nil
}
