package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	require.Equal(t, BackoffExponential, p.Mode)
	require.Equal(t, 3, p.MaxRetries)
}

func TestDelay_Exponential(t *testing.T) {
	p := Policy{Mode: BackoffExponential, Initial: time.Second, Max: 10 * time.Second, MaxRetries: 5}
	require.Equal(t, time.Duration(0), p.Delay(0))
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(2))
	require.Equal(t, 4*time.Second, p.Delay(3))
	require.Equal(t, 8*time.Second, p.Delay(4))
	require.Equal(t, 10*time.Second, p.Delay(5), "capped at max")
}

func TestDelay_Linear(t *testing.T) {
	p := Policy{Mode: BackoffLinear, Initial: time.Second, Max: 3 * time.Second}
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(2))
	require.Equal(t, 3*time.Second, p.Delay(4), "capped at max")
}

func TestDelay_Fixed(t *testing.T) {
	p := Policy{Mode: BackoffFixed, Initial: 2 * time.Second, Max: time.Minute}
	require.Equal(t, 2*time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(7))
}

func TestNewPolicy_FallsBackOnInvalid(t *testing.T) {
	p := NewPolicy("bogus", 0, 0, -1)
	require.Equal(t, DefaultPolicy(), p)
}

func TestNewPolicy_ClampsInitialToMax(t *testing.T) {
	p := NewPolicy(BackoffFixed, 10*time.Second, 2*time.Second, 1)
	require.Equal(t, 2*time.Second, p.Initial)
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	require.NoError(t, Policy{Initial: time.Second, Max: time.Second}.Validate())
}
