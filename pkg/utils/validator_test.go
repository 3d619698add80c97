package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	for _, ok := range []string{"mary-khan", "luke", "TestHead", "a.b_c"} {
		assert.NoError(t, ValidateUsername(ok), ok)
	}
	for _, bad := range []string{"", "-mary", "mary khan", "1luke", "robert'); DROP TABLE users;--"} {
		assert.Error(t, ValidateUsername(bad), bad)
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0.01))
	assert.NoError(t, ValidateAmount(MaxAmount))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-5))
	assert.Error(t, ValidateAmount(MaxAmount+1))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line one\nline two", SanitizeString("  line one\x00\nline two\x7f "))
	assert.Equal(t, "tab\there", SanitizeString("tab\there"))
}
