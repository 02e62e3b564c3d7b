package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data []byte) []domain.StatusEvent {
	t.Helper()
	var events []domain.StatusEvent
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var e domain.StatusEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestJSONLines_WritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)

	require.NoError(t, s.Write(domain.InfoEvent("Deploying")))
	require.NoError(t, s.Write(domain.ErrorEvent("boom", "log")))
	require.NoError(t, s.Close())

	events := decodeLines(t, buf.Bytes())
	require.Len(t, events, 2)
	assert.Equal(t, domain.InfoEvent("Deploying"), events[0])
	assert.Equal(t, domain.ErrorEvent("boom", "log"), events[1])
}

func TestJSONLines_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write(domain.InfoEvent("late")), ErrClosed)
	assert.Empty(t, buf.String())
}

func TestJSONLines_CloseIdempotent(t *testing.T) {
	s := NewJSONLines(&bytes.Buffer{})

	assert.False(t, s.Closed())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
}

func TestJSONLines_FlushesHTTPResponses(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewJSONLines(rec)

	require.NoError(t, s.Write(domain.InfoEvent("Deploying")))

	assert.True(t, rec.Flushed)
	assert.Len(t, decodeLines(t, rec.Body.Bytes()), 1)
}
