package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitflow/internal/apperr"
)

func TestIsRetryableError(t *testing.T) {
	var decoded struct{ N int }
	jsonErr := json.Unmarshal([]byte("{not json"), &decoded)

	cases := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"json syntax", jsonErr, false, "json_decode_error"},
		{"schema", apperr.Schemaf("bad payload"), false, "schema_error"},
		{"not found", apperr.NotFoundf("habit"), false, "not_found"},
		{"permission", apperr.Permissionf("owner mismatch"), false, "permission_denied"},
		{"transport", apperr.Transportf("store down"), true, "transport_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"wrapped deadline", fmt.Errorf("load snapshot: %w", context.DeadlineExceeded), true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("something odd"), true, "unknown_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tc.err)
			assert.Equal(t, tc.retryable, retryable)
			assert.Equal(t, tc.kind, kind)
		})
	}
}
