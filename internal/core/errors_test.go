// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrInsufficientData, ErrInsufficientData) {
		t.Error("same error should match")
	}
	if errors.Is(ErrInsufficientData, ErrConfigInvalid) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrConfigInvalid, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrConfigInvalid.Code || wrapped.Kind != KindConfig {
		t.Error("code and kind not preserved")
	}
}

func TestErrorKinds(t *testing.T) {
	dataErr := fmt.Errorf("loading: %w", WrapError(ErrInsufficientData, errors.New("need 15 bars")))
	if !IsDataError(dataErr) {
		t.Error("wrapped insufficient data should classify as data error")
	}
	if IsConfigError(dataErr) {
		t.Error("data error must not classify as config error")
	}
	if !IsConfigError(WrapError(ErrEmptyGrid, nil)) {
		t.Error("empty grid is a configuration error")
	}
	if IsDataError(errors.New("plain")) {
		t.Error("plain errors have no kind")
	}
}
