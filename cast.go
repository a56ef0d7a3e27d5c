package bridge

import (
	"reflect"
	"unsafe"
)

type castKey struct {
	src, dst reflect.Type
}

// embedPath finds the field index path from struct type src to an embedded
// field of type dst (struct{ Base }) or *dst (struct{ *Base }), breadth
// first, so the shallowest embedding wins. nil means no path.
func embedPath(src, dst reflect.Type) []int {
	type step struct {
		t    reflect.Type
		path []int
	}
	queue := []step{{t: src}}
	seen := map[reflect.Type]bool{src: true}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for i := 0; i < s.t.NumField(); i++ {
			f := s.t.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct {
				continue
			}
			path := append(append([]int(nil), s.path...), i)
			if ft == dst {
				return path
			}
			if !seen[ft] {
				seen[ft] = true
				queue = append(queue, step{t: ft, path: path})
			}
		}
	}
	return nil
}

// upcast converts v to T. A direct type assertion is tried first; for a
// pointer to struct target it then walks embedded fields of v's struct, so
// *Derived converts to a pointer at its embedded Base.
func upcast[T any](r *TypeRegistry, v any) (T, bool) {
	var zero T
	if t, ok := v.(T); ok {
		return t, true
	}
	dst := reflect.TypeFor[T]()
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() ||
		rv.Elem().Kind() != reflect.Struct ||
		dst.Kind() != reflect.Pointer || dst.Elem().Kind() != reflect.Struct {
		return zero, false
	}

	key := castKey{src: rv.Type(), dst: dst}
	path, ok := r.paths[key]
	if !ok {
		path = embedPath(rv.Type().Elem(), dst.Elem())
		r.paths[key] = path
	}
	if path == nil {
		return zero, false
	}

	fv, err := rv.Elem().FieldByIndexErr(path)
	if err != nil {
		// nil embedded pointer on the way
		return zero, false
	}
	// NewAt drops the read-only bit of fields reached through unexported
	// embeddings.
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return zero, false
		}
		fv = reflect.NewAt(fv.Type().Elem(), fv.UnsafePointer())
	} else {
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr()))
	}
	t, ok := fv.Interface().(T)
	return t, ok
}
