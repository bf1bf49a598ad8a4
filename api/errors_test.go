package api_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/momentics/hioload-green/api"
)

func TestErrorUnwrapsToSentinel(t *testing.T) {
	cases := map[api.ErrorCode]error{
		api.ErrCodeInvalidArgument:   api.ErrInvalidArgument,
		api.ErrCodeResourceExhausted: api.ErrResourceExhausted,
		api.ErrCodeNotSupported:      api.ErrNotSupported,
		api.ErrCodeAlreadyExists:     api.ErrAlreadyExists,
		api.ErrCodeNotFound:          api.ErrNotFound,
		api.ErrCodeResourceBusy:      api.ErrResourceBusy,
		api.ErrCodeMisuseFatal:       api.ErrMisuseFatal,
	}
	for code, want := range cases {
		err := fmt.Errorf("wrapped: %w", api.NewError(code, "msg").WithContext("k", 1))
		if !errors.Is(err, want) {
			t.Errorf("code %d does not match %v", code, want)
		}
	}
	if errors.Unwrap(api.NewError(api.ErrCodeInternal, "x")) != nil {
		t.Error("internal error unwraps to a sentinel")
	}
}

func TestErrorMessage(t *testing.T) {
	e := api.NewError(api.ErrCodeNotFound, "tls: thread owns no region")
	if e.Error() != "tls: thread owns no region" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.WithContext("thread", 3)
	if !strings.Contains(e.Error(), "thread:3") {
		t.Errorf("context missing from %q", e.Error())
	}
	var target *api.Error
	if !errors.As(fmt.Errorf("op: %w", e), &target) || target.Code != api.ErrCodeNotFound {
		t.Error("errors.As failed")
	}
}
