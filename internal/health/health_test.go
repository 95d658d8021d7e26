package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Healthy(t *testing.T) {
	in := Input{
		RateCurrent:        10,
		RateLimit:          100,
		BudgetUsedPercent:  5,
		EstimatedStorageMB: 1,
		QueueDepth:         0,
	}

	v := Evaluate(in, DefaultThresholds())

	assert.Equal(t, StatusHealthy, v.Status)
	assert.Empty(t, v.Issues)
	assert.Empty(t, v.Warnings)
}

func TestEvaluate_RateCritical(t *testing.T) {
	// 96/100 is past the 95% critical threshold; everything else nominal.
	in := Input{
		RateCurrent:        96,
		RateLimit:          100,
		BudgetUsedPercent:  50,
		EstimatedStorageMB: 10,
	}

	v := Evaluate(in, DefaultThresholds())

	assert.Equal(t, StatusCritical, v.Status)
	assert.Equal(t, []string{MsgRateCritical}, v.Issues)
	assert.Equal(t, []string{}, v.Warnings)
}

func TestEvaluate_Warnings(t *testing.T) {
	t.Run("rate warning at 80 percent", func(t *testing.T) {
		v := Evaluate(Input{RateCurrent: 80, RateLimit: 100}, DefaultThresholds())
		assert.Equal(t, StatusWarning, v.Status)
		assert.Equal(t, []string{MsgRateWarning}, v.Warnings)
		assert.Empty(t, v.Issues)
	})

	t.Run("budget warning", func(t *testing.T) {
		v := Evaluate(Input{RateLimit: 100, BudgetUsedPercent: 85}, DefaultThresholds())
		assert.Equal(t, StatusWarning, v.Status)
		assert.Equal(t, []string{MsgBudgetWarning}, v.Warnings)
	})

	t.Run("storage warning", func(t *testing.T) {
		v := Evaluate(Input{RateLimit: 100, EstimatedStorageMB: 30}, DefaultThresholds())
		assert.Equal(t, StatusWarning, v.Status)
		assert.Equal(t, []string{MsgStorageWarning}, v.Warnings)
	})

	t.Run("queue depth warns but never escalates", func(t *testing.T) {
		v := Evaluate(Input{RateLimit: 100, QueueDepth: 6000}, DefaultThresholds())
		assert.Equal(t, StatusWarning, v.Status)
		assert.Equal(t, []string{MsgQueueWarning}, v.Warnings)
		assert.Empty(t, v.Issues)
	})
}

func TestEvaluate_CriticalOutranksWarning(t *testing.T) {
	in := Input{
		RateCurrent:        85, // warning
		RateLimit:          100,
		BudgetUsedPercent:  99, // critical
		EstimatedStorageMB: 30, // warning
	}

	v := Evaluate(in, DefaultThresholds())

	assert.Equal(t, StatusCritical, v.Status)
	assert.Equal(t, []string{MsgBudgetCritical}, v.Issues)
	assert.Equal(t, []string{MsgRateWarning, MsgStorageWarning}, v.Warnings)
}

func TestEvaluate_DeterministicOrdering(t *testing.T) {
	// All signals trip critical. Output order must follow declaration
	// order: rate, budget, storage.
	in := Input{
		RateCurrent:        100,
		RateLimit:          100,
		BudgetUsedPercent:  100,
		EstimatedStorageMB: 100,
		QueueDepth:         10000,
	}

	first := Evaluate(in, DefaultThresholds())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(in, DefaultThresholds()))
	}

	assert.Equal(t, []string{MsgRateCritical, MsgBudgetCritical, MsgStorageCritical}, first.Issues)
	assert.Equal(t, []string{MsgQueueWarning}, first.Warnings)
}

func TestEvaluate_ZeroRateLimitSkipsRateSignal(t *testing.T) {
	v := Evaluate(Input{RateCurrent: 500, RateLimit: 0}, DefaultThresholds())
	assert.Equal(t, StatusHealthy, v.Status)
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.StorageCriticalMB = 5
	th.QueueWarningDepth = 10

	v := Evaluate(Input{RateLimit: 100, EstimatedStorageMB: 6, QueueDepth: 11}, th)
	assert.Equal(t, StatusCritical, v.Status)
	assert.Equal(t, []string{MsgStorageCritical}, v.Issues)
	assert.Equal(t, []string{MsgQueueWarning}, v.Warnings)
}
