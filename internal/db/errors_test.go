package db

import (
	"context"
	"errors"
	"testing"
)

func TestError_WrapsAndNamesOp(t *testing.T) {
	err := error(&Error{Op: OpSearch, Err: context.DeadlineExceeded})

	if err.Error() != "FT.SEARCH: context deadline exceeded" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to see the wrapped error")
	}

	var dbErr *Error
	if !errors.As(err, &dbErr) || dbErr.Op != OpSearch {
		t.Errorf("errors.As failed: %v", dbErr)
	}
}
