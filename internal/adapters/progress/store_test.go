package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

var _ ports.ProgressStore = (*Store)(nil)

func TestStore_AppendAndSnapshot(t *testing.T) {
	s := NewStore(time.Minute)

	s.Append("req-1", entities.ProgressEvent{StepIndex: 0, State: entities.StatePending})
	s.Append("req-1", entities.ProgressEvent{StepIndex: 0, State: entities.StateRunning})

	events, ok := s.Snapshot("req-1")
	require.True(t, ok)
	require.Len(t, events, 2)
	assert.Equal(t, entities.StateRunning, events[1].State)

	_, ok = s.Snapshot("unknown")
	assert.False(t, ok)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(time.Minute)
	s.Append("r", entities.ProgressEvent{StepName: "decompose"})

	events, _ := s.Snapshot("r")
	events[0].StepName = "mutated"

	again, _ := s.Snapshot("r")
	assert.Equal(t, "decompose", again[0].StepName)
}

func TestStore_IgnoresEmptyRequestID(t *testing.T) {
	s := NewStore(time.Minute)
	s.Append("", entities.ProgressEvent{})

	_, ok := s.Snapshot("")
	assert.False(t, ok)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := NewStore(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append("r", entities.ProgressEvent{StepIndex: i})
		}(i)
	}
	wg.Wait()

	events, ok := s.Snapshot("r")
	require.True(t, ok)
	assert.Len(t, events, 50)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(time.Minute)
	s.Append("r", entities.ProgressEvent{})
	s.Delete("r")

	_, ok := s.Snapshot("r")
	assert.False(t, ok)
}
