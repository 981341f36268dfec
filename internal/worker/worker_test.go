package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockCollector replays scripted GC results, then reports nothing to do.
type MockCollector struct {
	mu      sync.Mutex
	results []bool
	fail    error
	calls   int
	ratios  []float64
}

func (m *MockCollector) CollectGarbage(discardRatio float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.ratios = append(m.ratios, discardRatio)
	if m.fail != nil {
		return false, m.fail
	}
	if len(m.results) == 0 {
		return false, nil
	}
	next := m.results[0]
	m.results = m.results[1:]
	return next, nil
}

func (m *MockCollector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestWorker_CollectRepeatsWhileRewriting(t *testing.T) {
	mc := &MockCollector{results: []bool{true, true, false, true}}
	w := NewWorker(mc, zap.NewNop(), time.Minute, 0.7)

	assert.Equal(t, 2, w.collect(context.Background()))
	assert.Equal(t, 3, mc.Calls())
	assert.Equal(t, []float64{0.7, 0.7, 0.7}, mc.ratios)
}

func TestWorker_CollectIsBounded(t *testing.T) {
	results := make([]bool, 50)
	for i := range results {
		results[i] = true
	}
	mc := &MockCollector{results: results}
	w := NewWorker(mc, zap.NewNop(), time.Minute, 0.5)

	assert.Equal(t, maxPasses, w.collect(context.Background()))
	assert.Equal(t, maxPasses, mc.Calls())
}

func TestWorker_CollectLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mc := &MockCollector{fail: fmt.Errorf("simulated GC error")}
	w := NewWorker(mc, zap.New(core), time.Minute, 0.7)

	assert.Zero(t, w.collect(context.Background()))
	assert.Equal(t, 1, mc.Calls())

	entries := logs.FilterMessage("Value log GC failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "simulated GC error", entries[0].ContextMap()["error"])
}

// TestWorker_StartRunsOnEveryTick runs the loop briefly and checks it
// collects and then stops on cancel.
func TestWorker_StartRunsOnEveryTick(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mc := &MockCollector{}
	w := NewWorker(mc, zap.New(core), 10*time.Millisecond, 0.7)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return mc.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	assert.Equal(t, 1, logs.FilterMessage("Worker shutting down").Len())
}
