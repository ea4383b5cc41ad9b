package util

import (
	"reflect"
	"testing"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

func AssertEqual(t *testing.T, expected any, actual any) {
	if !reflect.DeepEqual(expected, actual) {
		sigolo.Errorb(1, "Expect to be equal.\nExpected: %+v\n----------\nActual  : %+v\n", expected, actual)
		t.Fail()
	}
}

func AssertNil(t *testing.T, value any) {
	if value != nil && !reflect.ValueOf(value).IsNil() {
		sigolo.Errorb(1, "Expect to be 'nil' but was: %#v", value)
		t.Fail()
	}
}

func AssertNotNil(t *testing.T, value any) {
	if value == nil || (reflect.ValueOf(value).Kind() == reflect.Ptr && reflect.ValueOf(value).IsNil()) {
		sigolo.Errorb(1, "Expect NOT to be 'nil' but was: %#v", value)
		t.Fail()
	}
}

func AssertTrue(t *testing.T, b bool) {
	if !b {
		sigolo.Errorb(1, "Expected true but got false")
		t.Fail()
	}
}

func AssertFalse(t *testing.T, b bool) {
	if b {
		sigolo.Errorb(1, "Expected false but got true")
		t.Fail()
	}
}

func AssertErrorIs(t *testing.T, expected error, err error) {
	if err == nil {
		sigolo.Errorb(1, "Expected error %v but got nil", expected)
		t.Fail()
		return
	}
	if !errors.Is(err, expected) {
		sigolo.Errorb(1, "Expected error kind: %v\nActual error: %+v", expected, err)
		t.Fail()
	}
}
