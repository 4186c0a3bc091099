package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchher/monitoring-server/pkg/types"
)

func testEvent(level types.ThreatLevel, women int) types.RiskEvent {
	return types.RiskEvent{
		Timestamp:    time.Now(),
		ThreatLevel:  level,
		WomenCount:   women,
		SafetyAlerts: 1,
	}
}

func readLines(t *testing.T, path string) []types.RiskEvent {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []types.RiskEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev types.RiskEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestJournalWritesEventsAsJSONL(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	require.NoError(t, j.Start())

	assert.True(t, j.Record(testEvent(types.ThreatHigh, 2)))
	assert.True(t, j.Record(testEvent(types.ThreatCritical, 3)))
	assert.True(t, j.Record(testEvent(types.ThreatLow, 1)))

	require.NoError(t, j.Stop())

	status := j.Status()
	assert.False(t, status.Active)
	assert.Equal(t, uint64(3), status.EventCount)

	events := readLines(t, filepath.Join(dir, status.Filename))
	require.Len(t, events, 3)
	assert.Equal(t, types.ThreatHigh, events[0].ThreatLevel)
	assert.Equal(t, types.ThreatCritical, events[1].ThreatLevel)
	assert.Equal(t, types.ThreatLow, events[2].ThreatLevel)
	assert.Equal(t, 3, events[1].WomenCount)
}

func TestJournalDropsWhenInactive(t *testing.T) {
	j := NewJournal(t.TempDir())
	assert.False(t, j.Record(testEvent(types.ThreatHigh, 1)))
	assert.False(t, j.Active())
}

func TestJournalStartTwice(t *testing.T) {
	j := NewJournal(t.TempDir())
	require.NoError(t, j.Start())
	assert.Error(t, j.Start())
	require.NoError(t, j.Stop())
}

func TestJournalStopWithoutStart(t *testing.T) {
	j := NewJournal(t.TempDir())
	assert.Error(t, j.Stop())
}

func TestJournalRestartsIntoNewFile(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	require.NoError(t, j.Start())
	assert.True(t, j.Record(testEvent(types.ThreatHigh, 1)))
	require.NoError(t, j.Stop())
	first := j.Status().Filename

	// Ensure a distinct timestamped name on restart.
	time.Sleep(1100 * time.Millisecond)

	require.NoError(t, j.Start())
	assert.True(t, j.Record(testEvent(types.ThreatLow, 1)))
	require.NoError(t, j.Stop())
	second := j.Status().Filename

	assert.NotEqual(t, first, second)
	assert.Len(t, readLines(t, filepath.Join(dir, first)), 1)
	assert.Len(t, readLines(t, filepath.Join(dir, second)), 1)
}

func TestJournalCloseWhileActive(t *testing.T) {
	j := NewJournal(t.TempDir())
	require.NoError(t, j.Start())
	assert.True(t, j.Record(testEvent(types.ThreatModerate, 1)))
	require.NoError(t, j.Close())
	assert.False(t, j.Active())
	assert.Equal(t, uint64(1), j.Status().EventCount)
}

func TestJournalCloseWhenIdle(t *testing.T) {
	j := NewJournal(t.TempDir())
	assert.NoError(t, j.Close())
}

func TestJournalStatusDurationInMilliseconds(t *testing.T) {
	j := NewJournal(t.TempDir())
	require.NoError(t, j.Start())
	defer j.Close()

	time.Sleep(25 * time.Millisecond)
	status := j.Status()
	assert.GreaterOrEqual(t, status.DurationMs, int64(20))
	// A nanosecond value would be six orders of magnitude larger.
	assert.Less(t, status.DurationMs, int64(60_000))
}
