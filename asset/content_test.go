package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/types"
)

func TestContentCID(t *testing.T) {
	a, err := ContentCID([]byte("hello creator"))
	require.NoError(t, err)
	b, err := ContentCID([]byte("hello creator"))
	require.NoError(t, err)
	c, err := ContentCID([]byte("other"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.LessOrEqual(t, len(a), 64)
	assert.NoError(t, ValidateContentPointer(a))
}

func TestValidateContentPointer(t *testing.T) {
	assert.NoError(t, ValidateContentPointer("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))
	assert.ErrorIs(t, ValidateContentPointer("not-a-cid"), types.ErrValidation)
	assert.ErrorIs(t, ValidateContentPointer(string(make([]byte, 65))), types.ErrValidation)
}
