package autorun

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/carter293/reactive-notebook/notebook"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []notebook.ID
}

func (r *fakeRunner) RunCell(ctx context.Context, id notebook.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	return nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestDriver_FiresAfterQuietPeriod(t *testing.T) {
	runner := &fakeRunner{}
	d := New(context.Background(), runner, 20*time.Millisecond, zerolog.Nop())

	d.NotifyEdited("A")
	assert.Equal(t, 0, runner.callCount(), "must not fire immediately")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.callCount())
}

func TestDriver_BurstOfEditsCollapsesToOneRun(t *testing.T) {
	runner := &fakeRunner{}
	d := New(context.Background(), runner, 30*time.Millisecond, zerolog.Nop())

	for i := 0; i < 5; i++ {
		d.NotifyEdited("A")
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, runner.callCount())
}

func TestDriver_CancelPreventsFire(t *testing.T) {
	runner := &fakeRunner{}
	d := New(context.Background(), runner, 15*time.Millisecond, zerolog.Nop())

	d.NotifyEdited("A")
	d.Cancel("A")
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, runner.callCount())
}

func TestDriver_IndependentTimersPerCell(t *testing.T) {
	runner := &fakeRunner{}
	d := New(context.Background(), runner, 15*time.Millisecond, zerolog.Nop())

	d.NotifyEdited("A")
	d.NotifyEdited("B")
	time.Sleep(40 * time.Millisecond)

	assert.ElementsMatch(t, []notebook.ID{"A", "B"}, runner.calls)
}
