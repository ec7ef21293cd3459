package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungpos/print-bridge/internal/ble"
)

// transferSession builds a bare session with a recording sleep so the
// pacing schedule is observable without real delays.
func transferSession(chunkSize int, delay time.Duration) (*Session, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	s := &Session{
		chunkSize:  chunkSize,
		chunkDelay: delay,
		sleep: func(d time.Duration) {
			*sleeps = append(*sleeps, d)
		},
	}
	return s, sleeps
}

func patternPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	return payload
}

func TestTransferChunksAndPaces(t *testing.T) {
	s, sleeps := transferSession(512, 50*time.Millisecond)
	writer := &fakeChar{props: ble.PropWrite | ble.PropWriteWithoutResponse}

	payload := patternPayload(1300)
	require.NoError(t, s.transfer(writer, payload))

	writes := writer.recordedWrites()
	require.Len(t, writes, 3)
	assert.Len(t, writes[0], 512)
	assert.Len(t, writes[1], 512)
	assert.Len(t, writes[2], 276)

	// Order and content must be preserved exactly
	var joined []byte
	for _, w := range writes {
		joined = append(joined, w...)
	}
	assert.Equal(t, payload, joined)

	// A delay between chunks, not before the first or after the last
	require.Len(t, *sleeps, 2)
	for _, d := range *sleeps {
		assert.Equal(t, 50*time.Millisecond, d)
	}
}

func TestTransferPrefersWriteWithoutResponse(t *testing.T) {
	s, _ := transferSession(512, time.Millisecond)
	writer := &fakeChar{props: ble.PropWrite | ble.PropWriteWithoutResponse}

	require.NoError(t, s.transfer(writer, patternPayload(1024)))
	assert.Equal(t, []string{"unack", "unack"}, writer.modes)
}

func TestTransferAcknowledgedFallback(t *testing.T) {
	s, _ := transferSession(512, time.Millisecond)
	writer := &fakeChar{props: ble.PropWrite}

	require.NoError(t, s.transfer(writer, patternPayload(700)))
	assert.Equal(t, []string{"ack", "ack"}, writer.modes)
}

func TestTransferSingleChunkNoDelay(t *testing.T) {
	s, sleeps := transferSession(512, 50*time.Millisecond)
	writer := &fakeChar{props: ble.PropWriteWithoutResponse}

	require.NoError(t, s.transfer(writer, patternPayload(80)))

	writes := writer.recordedWrites()
	require.Len(t, writes, 1)
	assert.Len(t, writes[0], 80)
	assert.Empty(t, *sleeps)
}

func TestTransferExactMultiple(t *testing.T) {
	s, sleeps := transferSession(512, 50*time.Millisecond)
	writer := &fakeChar{props: ble.PropWriteWithoutResponse}

	require.NoError(t, s.transfer(writer, patternPayload(1024)))

	writes := writer.recordedWrites()
	require.Len(t, writes, 2)
	assert.Len(t, writes[0], 512)
	assert.Len(t, writes[1], 512)
	assert.Len(t, *sleeps, 1)
}

func TestTransferEmptyPayload(t *testing.T) {
	s, sleeps := transferSession(512, 50*time.Millisecond)
	writer := &fakeChar{props: ble.PropWriteWithoutResponse}

	require.NoError(t, s.transfer(writer, nil))
	assert.Empty(t, writer.recordedWrites())
	assert.Empty(t, *sleeps)
}

func TestTransferAbortsOnFirstFailure(t *testing.T) {
	s, sleeps := transferSession(512, 50*time.Millisecond)
	writer := &fakeChar{props: ble.PropWriteWithoutResponse, failAt: 2}

	err := s.transfer(writer, patternPayload(1300))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 2")

	// Only the first chunk went out; the third was never attempted
	writes := writer.recordedWrites()
	require.Len(t, writes, 1)
	assert.Len(t, writes[0], 512)
	assert.Len(t, *sleeps, 1)
}
