// Package callable holds identity and introspection helpers shared by the model and
// evaluator wrappers.
package callable

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strings"
	"unsafe"
)

// Same reports whether a and b refer to the same underlying callable.
// Functions compare by closure, so two closures of one literal are distinct while a
// function value and its copies are the same. Pointers compare by address and other
// comparable values by ==.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return closure(a) == closure(b)
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

// closure returns the data word of an interface holding a function value. Function
// values are stored directly in the interface, so the word is the closure object.
func closure(v any) unsafe.Pointer {
	return (*[2]unsafe.Pointer)(unsafe.Pointer(&v))[1]
}

// FuncName returns the fully qualified name of a function value, or "".
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}

// ShortFuncName trims the package path from FuncName, e.g. "models.echo".
func ShortFuncName(fn any) string {
	return path.Base(FuncName(fn))
}

// TypeName returns the declared type name of v with pointers dereferenced.
// Anonymous types fall back to their kind.
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.Kind().String()
}

// Describe renders where a callable is implemented. Go cannot recover source text at
// runtime, so the rendering is the qualified function name and its file:line.
func Describe(kind string, fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() {
		return fmt.Sprintf("This %s wraps no function", kind)
	}
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("This %s executes %s", kind, TypeName(fn))
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return fmt.Sprintf("This %s executes an unknown function", kind)
	}
	file, line := f.FileLine(f.Entry())
	var b strings.Builder
	fmt.Fprintf(&b, "This %s executes the following function\n", kind)
	fmt.Fprintf(&b, "```\n%s\n%s:%d\n```\n", f.Name(), file, line)
	return b.String()
}
