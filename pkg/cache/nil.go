package cache

import "reflect"

// isNil catches typed nil pointers hidden inside the store interface, such as
// a nil *redis.Client when Redis is disabled.
func isNil(s store) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
