package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFollowPolicyNearBottomStaysAuto(t *testing.T) {
	policy := NewScrollFollowPolicy()

	// 50 above the bottom, 12.5% of the viewport.
	mode := policy.Observe(ScrollMetrics{ScrollTop: 550, ScrollHeight: 1000, ClientHeight: 400})

	assert.Equal(t, FollowAuto, mode)
	assert.True(t, policy.OnNewContent(), "auto mode scrolls on new content")
}

func TestFollowPolicyFarFromBottomHolds(t *testing.T) {
	policy := NewScrollFollowPolicy()

	// 400 above the bottom, a full viewport.
	mode := policy.Observe(ScrollMetrics{ScrollTop: 200, ScrollHeight: 1000, ClientHeight: 400})

	assert.Equal(t, FollowHeld, mode)
	assert.False(t, policy.OnNewContent(), "held mode keeps the reading position")
}

func TestFollowPolicyThresholdIsStrict(t *testing.T) {
	policy := NewScrollFollowPolicy()

	// Exactly 25% above the bottom does not hold.
	mode := policy.Observe(ScrollMetrics{ScrollTop: 500, ScrollHeight: 1000, ClientHeight: 400})
	assert.Equal(t, FollowAuto, mode)

	// One row past the threshold does.
	mode = policy.Observe(ScrollMetrics{ScrollTop: 499, ScrollHeight: 1000, ClientHeight: 400})
	assert.Equal(t, FollowHeld, mode)
}

func TestFollowPolicyStartsAuto(t *testing.T) {
	assert.Equal(t, FollowAuto, NewScrollFollowPolicy().Mode())
}

func TestJumpToNewestForcesAuto(t *testing.T) {
	policy := NewScrollFollowPolicy()
	policy.Observe(ScrollMetrics{ScrollTop: 0, ScrollHeight: 1000, ClientHeight: 400})
	assert.Equal(t, FollowHeld, policy.Mode())

	policy.JumpToNewest()
	assert.Equal(t, FollowAuto, policy.Mode())
	assert.True(t, policy.OnNewContent())
}
