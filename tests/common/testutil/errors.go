//go:build unit || e2e

package testutil

import (
	"testing"

	"culture-booking/internal/pkg/errs"

	"github.com/stretchr/testify/require"
)

// RequireErrorIs asserts sentinel identity through wrap and mark
// chains. testify's ErrorIs only follows stdlib unwrapping and misses
// marked sentinels.
func RequireErrorIs(t *testing.T, err error, sentinel error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errs.Is(err, sentinel), "error %q does not match sentinel %q", err, sentinel)
}
