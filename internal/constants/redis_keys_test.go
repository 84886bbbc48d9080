package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatKey(t *testing.T) {
	key, err := FormatKey(KeyParsedResume, "0190f0aa-1111")
	require.NoError(t, err)
	assert.Equal(t, "app:resume:parsed:0190f0aa-1111", key)

	_, err = FormatKey(KeyParsedResume, " ")
	assert.Error(t, err)
}
