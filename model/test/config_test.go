package test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestConfig_BatchCount(t *testing.T) {
	testCases := []struct {
		loopCount int
		loopStep  int
		expect    int
	}{
		{10, 2, 5},
		{10, 3, 4},
		{10, 10, 1},
		{1, 1, 1},
		{100, 7, 15},
		{5, 10, 1},
	}
	for _, tc := range testCases {
		cfg := &Config{LoopCount: tc.loopCount, LoopStep: tc.loopStep}
		assert.Equal(t, tc.expect, cfg.BatchCount(), "%d/%d", tc.loopCount, tc.loopStep)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Drive: "E", LoopCount: 3}
	cfg.Init()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.LoopStep)
	assert.Equal(t, defaultTestName, cfg.TestName)

	invalid := &Config{LoopCount: 0, LoopStep: -1}
	err := invalid.Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Len(t, multierr.Errors(err), 3)
}

func TestConfig_PreconditionConfig(t *testing.T) {
	cfg := &Config{Drive: "E", Method: "Cycle", Capacity: "32GB", LoopCount: 10, LoopStep: 2}
	assert.Nil(t, cfg.PreconditionConfig())

	cfg.Precondition = Precondition{Enabled: true, Capacity: "64GB"}
	cfg.Init()
	pre := cfg.PreconditionConfig()
	if assert.NotNil(t, pre) {
		assert.Equal(t, MethodZeroHR, pre.Method)
		assert.Equal(t, "64GB", pre.Capacity)
		assert.Equal(t, 1, pre.LoopCount)
		assert.Equal(t, 1, pre.LoopStep)
		assert.False(t, pre.Precondition.Enabled)
	}
	assert.Equal(t, "Cycle", cfg.Method, "source config must not change")
}
