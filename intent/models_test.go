package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/types"
)

func TestResolve(t *testing.T) {
	in := &Intent{Hash: "abc", Kind: KindIssue, Status: StatusPending}

	require.NoError(t, in.Resolve(StatusConfirmed, ""))
	assert.Equal(t, StatusConfirmed, in.Status)
	assert.NotNil(t, in.ConfirmedAt)

	err := in.Resolve(StatusFailed, "late")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, in.Status)
}

func TestResolveFailedKeepsReason(t *testing.T) {
	in := &Intent{Hash: "abc", Status: StatusPending}
	require.NoError(t, in.Resolve(StatusFailed, "tx_failed"))
	assert.Equal(t, "tx_failed", in.Reason)
	assert.Nil(t, in.ConfirmedAt)
}
