package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"config", Config(CodeUnknownOperator, "unknown operator %s", "$foo"), KindConfig},
		{"data shape", DataShape("bad_date", "cannot parse"), KindDataShape},
		{"io", IO(CodeFindFailed, errors.New("boom"), "find failed"), KindIO},
		{"wrapped", fmt.Errorf("loading: %w", Config(CodeInvalidBoard, "bad")), KindConfig},
		{"plain", errors.New("plain"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := IO(CodeFindFailed, errors.New("connection refused"), "find %s", "users")
	assert.Equal(t, "find_failed: find users: connection refused", err.Error())

	cfg := Config(CodeUnknownSchema, "schema %s not found", "users")
	assert.Equal(t, "unknown_schema: schema users not found", cfg.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("outer: %w", IO(CodeCountFailed, cause, "count"))

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsIO(err))
	assert.False(t, IsConfig(err))
	assert.Equal(t, CodeCountFailed, CodeOf(err))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "config", KindConfig.String())
	assert.Equal(t, "data_shape", KindDataShape.String())
	assert.Equal(t, "io", KindIO.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
