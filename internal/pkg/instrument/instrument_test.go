package instrument

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("dc")
	assert.NilError(t, err)
	assert.Equal(t, m, DC)

	m, err = ParseMode("AC")
	assert.NilError(t, err)
	assert.Equal(t, m, AC)

	_, err = ParseMode("rms")
	assert.Equal(t, err, ErrUnknownMode)
}
