package param

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

func TestEnumContains(t *testing.T) {
	e := NewEnum(1e-4, 1e-5, 1e-6)
	assert.Assert(t, e.Contains(1e-5))
	assert.Assert(t, e.Contains(10e-6))
	assert.Assert(t, !e.Contains(2e-5))
	assert.Assert(t, !e.Contains(0))
}

func TestEnumValuesIsCopy(t *testing.T) {
	e := NewEnum(1, 2, 3)
	v := e.Values()
	v[0] = 42
	assert.DeepEqual(t, e.Values(), []float64{1, 2, 3})
}

func TestValidate(t *testing.T) {
	e := NewEnum(1, 2, 3)
	assert.NilError(t, e.Validate("selector", 3))

	err := e.Validate("selector", 2.5)
	var verr *ValidationError
	assert.Assert(t, errors.As(err, &verr))
	assert.Equal(t, verr.Parameter, "selector")
	assert.Equal(t, verr.Value, 2.5)
	assert.DeepEqual(t, verr.Allowed, []float64{1, 2, 3})
	assert.ErrorContains(t, err, "selector: 2.5 is not one of {1, 2, 3}")
}

func TestStr(t *testing.T) {
	assert.Equal(t, Deref(Str("V")), "V")
	assert.Equal(t, Deref(nil), "")
}
