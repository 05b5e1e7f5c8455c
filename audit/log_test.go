package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgov/core"
)

func testEvent(i int) core.AuditEvent {
	return core.AuditEvent{
		Actor:   "governance",
		Action:  fmt.Sprintf("action-%d", i),
		Target:  "agent-1",
		Details: map[string]any{"seq": i},
	}
}

func TestLog_AppendChains(t *testing.T) {
	log := NewLog(nil)

	first, err := log.Append(testEvent(1))
	require.NoError(t, err)
	assert.Empty(t, first.PreviousHash)
	assert.NotEmpty(t, first.Hash)
	assert.False(t, first.Timestamp.IsZero())

	second, err := log.Append(testEvent(2))
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.PreviousHash)
	assert.NotEqual(t, first.Hash, second.Hash)

	assert.Equal(t, 2, log.Len())
}

func TestLog_VerifyChain(t *testing.T) {
	log := NewLog(nil)
	for i := 0; i < 5; i++ {
		_, err := log.Append(testEvent(i))
		require.NoError(t, err)
	}

	ok, err := log.VerifyChain()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLog_VerifyChainDetectsTamper(t *testing.T) {
	log := NewLog(nil)
	for i := 0; i < 3; i++ {
		_, err := log.Append(testEvent(i))
		require.NoError(t, err)
	}

	// Reach into the slice and rewrite a recorded action.
	log.entries[1].Action = "rewritten"

	ok, err := log.VerifyChain()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestLog_PreservesEventTimestamp(t *testing.T) {
	log := NewLog(nil)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ev := testEvent(1)
	ev.Timestamp = ts
	entry, err := log.Append(ev)
	require.NoError(t, err)
	assert.Equal(t, ts, entry.Timestamp)
}

func TestSink_DeliversInOrder(t *testing.T) {
	log := NewLog(nil)
	sink := NewSink(log)

	for i := 0; i < 10; i++ {
		sink.Record(testEvent(i))
	}
	sink.Close()

	entries := log.Entries()
	require.Len(t, entries, 10)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("action-%d", i), e.Action)
	}
	assert.Zero(t, sink.Dropped())

	ok, err := log.VerifyChain()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSink_DropsWhenFull(t *testing.T) {
	log := NewLog(nil)
	sink := NewSink(log, func(o *SinkOptions) { o.BufferSize = 1 })

	for i := 0; i < 1000; i++ {
		sink.Record(testEvent(i))
	}
	sink.Close()

	// Everything that was accepted is in the log; the rest is accounted for.
	assert.Equal(t, int64(len(log.Entries()))+sink.Dropped(), int64(1000))
}

func TestSink_RecordAfterClose(t *testing.T) {
	log := NewLog(nil)
	sink := NewSink(log)

	sink.Record(testEvent(1))
	sink.Close()

	// A producer racing Close must neither panic nor block; the late event is
	// counted as dropped.
	assert.NotPanics(t, func() { sink.Record(testEvent(2)) })
	assert.Equal(t, int64(1), sink.Dropped())
	assert.Len(t, log.Entries(), 1)

	// Close is idempotent.
	assert.NotPanics(t, sink.Close)
}
