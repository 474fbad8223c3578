package utils

import (
	"reflect"
)

const columnTag = "db"

// StructTagValues returns the db column names of input's exported fields in
// declaration order. Fields tagged "-" or untagged are skipped.
func StructTagValues(input any) []string {
	fields := taggedFields(input)
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		result = append(result, f.column)
	}
	return result
}

// StructToMap maps each db column of input to its field value.
func StructToMap(input any) map[string]any {
	fields := taggedFields(input)
	result := make(map[string]any, len(fields))
	for _, f := range fields {
		result[f.column] = f.value.Interface()
	}
	return result
}

type taggedField struct {
	column string
	value  reflect.Value
}

func taggedFields(input any) []taggedField {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	t := v.Type()
	out := make([]taggedField, 0, v.NumField())
	for i := range v.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		column := field.Tag.Get(columnTag)
		if column == "" || column == "-" {
			continue
		}

		out = append(out, taggedField{column: column, value: v.Field(i)})
	}

	return out
}
