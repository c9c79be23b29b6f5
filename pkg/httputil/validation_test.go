package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorlog/motorlog-backend/pkg/errors"
)

func TestValidate(t *testing.T) {
	type attachVIN struct {
		VIN   string `validate:"required,len=17"`
		State string `validate:"omitempty,len=2"`
		Miles int64  `validate:"min=0"`
	}

	t.Run("passing struct", func(t *testing.T) {
		err := Validate(attachVIN{VIN: "1HGBH41JXMN109186", State: "CA"})
		assert.NoError(t, err)
	})

	t.Run("failures keyed by field", func(t *testing.T) {
		err := Validate(attachVIN{VIN: "1HGBH41JX", Miles: -1})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok, "expected *errors.AppError, got %T", err)

		assert.Equal(t, "must be exactly 17 characters", appErr.Details["VIN"])
		assert.Equal(t, "must be at least 0", appErr.Details["Miles"])
	})

	t.Run("missing required field", func(t *testing.T) {
		err := Validate(attachVIN{})
		require.Error(t, err)

		appErr := err.(*errors.AppError)
		assert.Equal(t, "this field is required", appErr.Details["VIN"])
	})
}
