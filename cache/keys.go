package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// BuildKey fingerprints an operation and its parameters into "<op>:<sha256 hex>".
// Parameters are sorted by name and nil values are skipped, so omitted and
// explicitly nil optional filters produce the same key. Names and values are
// quoted before hashing, so a value holding separators cannot pose as extra
// parameters.
func BuildKey(op string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name, v := range params {
		if isNil(v) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(strconv.Quote(op))
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(name))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(formatParam(params[name])))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return op + ":" + hex.EncodeToString(sum[:])
}

func formatParam(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return fmt.Sprint(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
