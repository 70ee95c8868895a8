// Package xis adds the assertions matryer/is leaves out.
package xis

import (
	"reflect"

	"github.com/matryer/is"
)

type I struct {
	is *is.I
}

func New(is *is.I) *I {
	return &I{is: is}
}

// Contains fails the test unless list holds an element deeply equal to v.
func (x *I) Contains(list interface{}, v interface{}) {
	x.is.Helper()
	l := reflect.ValueOf(list)
	if l.Kind() != reflect.Slice && l.Kind() != reflect.Array {
		x.is.Fail() // not a list
		return
	}
	for i := 0; i < l.Len(); i++ {
		if reflect.DeepEqual(l.Index(i).Interface(), v) {
			return
		}
	}
	x.is.Fail() // value missing from list
}
