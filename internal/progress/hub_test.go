package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSink struct {
	mu         sync.Mutex
	events     []Event
	closed     int
	consumeErr error
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return s.consumeErr
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *stubSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func sampleEvent(stage Stage, cid int) Event {
	return Event{RunID: "run-1", TS: time.Now(), Stage: stage, CID: cid}
}

func TestHubDeliversInOrder(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	hub := NewHub(Config{BufferSize: 64}, sink)

	hub.Emit(Event{RunID: "run-1", TS: time.Now(), Stage: StageRunStart, Planned: 3})
	for cid := 1; cid <= 3; cid++ {
		hub.Emit(sampleEvent(StageFetched, cid))
		hub.Emit(sampleEvent(StageLedgerUpdated, cid))
	}
	hub.Emit(Event{RunID: "run-1", TS: time.Now(), Stage: StageRunDone})
	require.NoError(t, hub.Close(context.Background()))

	events := sink.Events()
	require.Len(t, events, 8)
	require.Equal(t, StageRunStart, events[0].Stage)
	require.Equal(t, 3, events[5].CID)
	require.Equal(t, StageRunDone, events[7].Stage)
	require.Equal(t, 1, sink.closed)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	hub := NewHub(Config{}, sink)
	hub.Emit(Event{Stage: StageFetched})
	hub.Emit(sampleEvent(StageFetched, 0))
	hub.Emit(sampleEvent("BOGUS", 1))
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Events())
}

func TestHubEmitAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))
	hub.Emit(sampleEvent(StageFetched, 1))
	require.Empty(t, sink.Events())
	require.Equal(t, 1, sink.closed)
}

func TestHubSinkErrorsDoNotStopDelivery(t *testing.T) {
	t.Parallel()

	failing := &stubSink{consumeErr: errors.New("boom")}
	ok := &stubSink{}
	hub := NewHub(Config{}, failing, ok)
	hub.Emit(sampleEvent(StageFetched, 1))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, ok.Events(), 1)
}

func TestNilHubIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(sampleEvent(StageFetched, 1))
	require.NoError(t, hub.Close(context.Background()))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Event{RunID: "r", TS: time.Now(), Stage: StageRunDone}.Validate())
	require.Error(t, Event{RunID: "r", TS: time.Now(), Stage: StageRunStart, Planned: -1}.Validate())
	require.Error(t, Event{RunID: "r", TS: time.Now(), Stage: StageFetched, CID: 1, Dur: -time.Second}.Validate())
	require.True(t, StageFailed.Terminal())
	require.False(t, StageFetched.Terminal())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Status2xx, ClassifyStatus(200))
	require.Equal(t, Status3xx, ClassifyStatus(301))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(0))
}
