package worker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbylog/lobbylog/internal/events"
)

type fakeRecorder struct {
	recorded []events.Event
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, event events.Event) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, event)
	return nil
}

func testSubscriber(recorder EventRecorder) *AuditSubscriber {
	return &AuditSubscriber{
		recorder: recorder,
		logger:   zerolog.New(io.Discard),
	}
}

func TestProcessEvent_RecordsEvent(t *testing.T) {
	recorder := &fakeRecorder{}
	sub := testSubscriber(recorder)

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	payload := []byte(`{"type":"device.checked_in","kind":"computer","device_id":"dev-1","at":"2026-03-14T09:30:00Z"}`)

	err := sub.processEvent(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, recorder.recorded, 1)
	got := recorder.recorded[0]
	assert.Equal(t, events.TypeCheckedIn, got.Type)
	assert.Equal(t, "computer", got.Kind)
	assert.Equal(t, "dev-1", got.DeviceID)
	assert.True(t, got.At.Equal(at))
}

func TestProcessEvent_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"missing type", `{"device_id":"dev-1"}`},
		{"missing device id", `{"type":"device.checked_in"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &fakeRecorder{}
			sub := testSubscriber(recorder)

			err := sub.processEvent(context.Background(), []byte(tt.payload))
			require.Error(t, err)
			assert.True(t, isMalformed(err))
			assert.Empty(t, recorder.recorded)
		})
	}
}

func TestProcessEvent_RecorderFailureIsRetryable(t *testing.T) {
	recorder := &fakeRecorder{err: assert.AnError}
	sub := testSubscriber(recorder)

	payload := []byte(`{"type":"device.checked_out","device_id":"dev-1","at":"2026-03-14T10:00:00Z"}`)

	err := sub.processEvent(context.Background(), payload)
	require.Error(t, err)
	assert.False(t, isMalformed(err))
}

func TestProcessEvent_NilRecorderLogsOnly(t *testing.T) {
	sub := testSubscriber(nil)

	payload := []byte(`{"type":"device.registered","device_id":"dev-2","at":"2026-03-14T10:00:00Z"}`)

	err := sub.processEvent(context.Background(), payload)
	assert.NoError(t, err)
}
