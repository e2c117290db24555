package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// outcome is one primary call result fed to the breaker.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func record(b *Breaker, o outcome) (bool, StateChange) {
	if o == ok {
		return b.RecordSuccess()
	}
	return b.RecordFailure()
}

func TestBreakerSequences(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		outcomes   []outcome
		wantState  State
		wantOpened bool
		wantClosed bool
	}{
		{
			name:      "default stays closed below five failures",
			outcomes:  []outcome{fail, fail, fail, fail},
			wantState: StateClosed,
		},
		{
			name:       "fifth consecutive failure opens",
			outcomes:   []outcome{fail, fail, fail, fail, fail},
			wantState:  StateOpen,
			wantOpened: true,
		},
		{
			name:      "success between failures resets the count",
			opts:      []Option{WithFailureThreshold(3)},
			outcomes:  []outcome{fail, fail, ok, fail, fail},
			wantState: StateClosed,
		},
		{
			name:      "open circuit needs consecutive successes",
			opts:      []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			outcomes:  []outcome{fail, ok, ok, fail, ok, ok},
			wantState: StateOpen,
		},
		{
			name:       "success threshold closes",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes:   []outcome{fail, ok, ok},
			wantState:  StateClosed,
			wantClosed: true,
		},
		{
			name:      "non-positive thresholds keep defaults",
			opts:      []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			outcomes:  []outcome{fail, fail, fail, fail},
			wantState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("ratelimit-redis", tt.opts...)
			var last StateChange
			for _, o := range tt.outcomes {
				_, last = record(b, o)
			}
			assert.Equal(t, tt.wantState, b.State())
			assert.Equal(t, tt.wantOpened, last.Opened)
			assert.Equal(t, tt.wantClosed, last.Closed)
		})
	}
}

func TestBreakerTellsCallerWhichResultToUse(t *testing.T) {
	b := New("ratelimit-redis", WithFailureThreshold(2), WithSuccessThreshold(2))

	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback, "a single failure surfaces the error")

	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)

	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary, "still open after one trial call")

	usePrimary, _ = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, "closed", b.State().String())
}

func TestBreakerReset(t *testing.T) {
	b := New("ratelimit-redis", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "ratelimit-redis", b.Name())
}

func TestBreakerConcurrentFailuresOpenOnce(t *testing.T) {
	b := New("ratelimit-redis", WithFailureThreshold(10))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.True(t, b.IsOpen())
	assert.Equal(t, 1, opened)
}
