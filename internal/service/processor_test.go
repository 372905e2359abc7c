package service

import (
	"context"
	"testing"
	"time"

	"pushrelay/internal/models"
	"pushrelay/pkg/expo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testProcessorConfig() ProcessorConfig {
	return ProcessorConfig{BatchLimit: 50, ChunkSize: 100, ChunkDelay: time.Millisecond}
}

func queueEntry(id int64, userID string, priority int) models.QueueEntry {
	return models.QueueEntry{
		ID:           id,
		UserID:       userID,
		Title:        "title",
		Body:         "body",
		Priority:     priority,
		Status:       models.QueueStatusPending,
		ScheduledFor: time.Now().Add(-time.Minute),
	}
}

func TestProcessPendingEmptyQueue(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return([]models.QueueEntry{}, nil)

	summary, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 0, summary.Deactivated)

	st.AssertNotCalled(t, "MarkQueueEntries", mock.Anything, mock.Anything, mock.Anything)
	push.AssertNotCalled(t, "SendMessages", mock.Anything, mock.Anything)
}

func TestProcessPendingClaimsBeforeDelivery(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	entries := []models.QueueEntry{queueEntry(1, "user-a", 1)}
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return(entries, nil)

	claimed := false
	st.On("MarkQueueEntries", mock.Anything, []int64{1}, models.QueueStatusProcessing).
		Run(func(args mock.Arguments) { claimed = true }).Return(nil)
	st.On("ActiveDeviceTokens", mock.Anything, []string{"user-a"}).Return([]models.DeviceToken{
		{UserID: "user-a", PushToken: "ExponentPushToken[a]", IsActive: true},
	}, nil)
	push.On("SendMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			assert.True(t, claimed, "entries must be claimed before any delivery attempt")
		}).Return(okTickets(1), nil)
	st.On("MarkQueueEntriesSent", mock.Anything, []int64{1}, mock.Anything).Return(nil)

	summary, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Sent)

	st.AssertExpectations(t)
}

func TestProcessPendingExpansionSkipsTokenlessUsers(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	// 3 entries, 2 users; user-a has two tokens and one entry, user-b has
	// none. Expansion yields exactly 2 messages and every entry still ends
	// up sent.
	entries := []models.QueueEntry{
		queueEntry(1, "user-a", 2),
		queueEntry(2, "user-b", 1),
		queueEntry(3, "user-b", 1),
	}
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return(entries, nil)
	st.On("MarkQueueEntries", mock.Anything, []int64{1, 2, 3}, models.QueueStatusProcessing).Return(nil)
	st.On("ActiveDeviceTokens", mock.Anything, []string{"user-a", "user-b"}).Return([]models.DeviceToken{
		{UserID: "user-a", PushToken: "ExponentPushToken[a1]", IsActive: true},
		{UserID: "user-a", PushToken: "ExponentPushToken[a2]", IsActive: true},
	}, nil)
	push.On("SendMessages", mock.Anything, mock.MatchedBy(func(msgs []expo.PushMessage) bool {
		return len(msgs) == 2 &&
			msgs[0].To == "ExponentPushToken[a1]" &&
			msgs[1].To == "ExponentPushToken[a2]"
	})).Return(okTickets(2), nil)
	st.On("MarkQueueEntriesSent", mock.Anything, []int64{1, 2, 3}, mock.Anything).Return(nil)

	summary, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Sent)

	st.AssertExpectations(t)
	push.AssertExpectations(t)
}

func TestProcessPendingNoMessagesFinalizesEarly(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	entries := []models.QueueEntry{queueEntry(1, "user-a", 0), queueEntry(2, "user-a", 0)}
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return(entries, nil)
	st.On("MarkQueueEntries", mock.Anything, []int64{1, 2}, models.QueueStatusProcessing).Return(nil)
	st.On("ActiveDeviceTokens", mock.Anything, []string{"user-a"}).Return([]models.DeviceToken{}, nil)
	st.On("MarkQueueEntriesSent", mock.Anything, []int64{1, 2}, mock.Anything).Return(nil)

	summary, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Sent)

	st.AssertExpectations(t)
	push.AssertNotCalled(t, "SendMessages", mock.Anything, mock.Anything)
}

func TestProcessPendingFailedChunkIsSkipped(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	cfg := testProcessorConfig()
	cfg.ChunkSize = 1
	p := NewProcessor(st, push, cfg, testLogger())

	entries := []models.QueueEntry{
		queueEntry(1, "user-a", 0),
		queueEntry(2, "user-a", 0),
		queueEntry(3, "user-a", 0),
	}
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return(entries, nil)
	st.On("MarkQueueEntries", mock.Anything, []int64{1, 2, 3}, models.QueueStatusProcessing).Return(nil)
	st.On("ActiveDeviceTokens", mock.Anything, []string{"user-a"}).Return([]models.DeviceToken{
		{UserID: "user-a", PushToken: "ExponentPushToken[a]", IsActive: true},
	}, nil)

	// Chunk 2 of 3 fails outright; chunks 1 and 3 deliver. The cycle still
	// succeeds and every entry is finalized.
	push.On("SendMessages", mock.Anything, mock.Anything).Return(okTickets(1), nil).Once()
	push.On("SendMessages", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()
	push.On("SendMessages", mock.Anything, mock.Anything).Return(okTickets(1), nil).Once()
	st.On("MarkQueueEntriesSent", mock.Anything, []int64{1, 2, 3}, mock.Anything).Return(nil)

	summary, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Sent)

	st.AssertExpectations(t)
	push.AssertNumberOfCalls(t, "SendMessages", 3)
}

func TestProcessPendingDeactivatesDeadTokens(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	entries := []models.QueueEntry{queueEntry(1, "user-a", 0)}
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return(entries, nil)
	st.On("MarkQueueEntries", mock.Anything, []int64{1}, models.QueueStatusProcessing).Return(nil)
	st.On("ActiveDeviceTokens", mock.Anything, []string{"user-a"}).Return([]models.DeviceToken{
		{UserID: "user-a", PushToken: "ExponentPushToken[live]", IsActive: true},
		{UserID: "user-a", PushToken: "ExponentPushToken[dead]", IsActive: true},
	}, nil)
	push.On("SendMessages", mock.Anything, mock.Anything).Return([]expo.PushTicket{
		{Status: expo.TicketStatusOK},
		deadTicket(),
	}, nil)
	st.On("DeactivateDeviceToken", mock.Anything, "ExponentPushToken[dead]").Return(nil)
	st.On("MarkQueueEntriesSent", mock.Anything, []int64{1}, mock.Anything).Return(nil)

	summary, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Deactivated)

	st.AssertExpectations(t)
}

func TestProcessPendingClaimFailureAborts(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	entries := []models.QueueEntry{queueEntry(1, "user-a", 0)}
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return(entries, nil)
	st.On("MarkQueueEntries", mock.Anything, []int64{1}, models.QueueStatusProcessing).Return(assert.AnError)

	_, err := p.ProcessPending(context.Background())
	require.Error(t, err)
	push.AssertNotCalled(t, "SendMessages", mock.Anything, mock.Anything)
}

func TestProcessPendingPriorityMapping(t *testing.T) {
	st := &mockStore{}
	push := &mockPushClient{}
	p := NewProcessor(st, push, testProcessorConfig(), testLogger())

	entry := queueEntry(1, "user-a", 5)
	entry.Category = "consultations"
	st.On("PendingQueueEntries", mock.Anything, mock.Anything, 50).Return([]models.QueueEntry{entry}, nil)
	st.On("MarkQueueEntries", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	st.On("ActiveDeviceTokens", mock.Anything, []string{"user-a"}).Return([]models.DeviceToken{
		{UserID: "user-a", PushToken: "ExponentPushToken[a]", IsActive: true},
	}, nil)
	push.On("SendMessages", mock.Anything, mock.MatchedBy(func(msgs []expo.PushMessage) bool {
		return len(msgs) == 1 && msgs[0].Priority == "high" && msgs[0].ChannelID == "consultations"
	})).Return(okTickets(1), nil)
	st.On("MarkQueueEntriesSent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := p.ProcessPending(context.Background())
	require.NoError(t, err)
	push.AssertExpectations(t)
}
