package service

import (
	"context"
	"io"
	"time"

	"pushrelay/internal/models"
	"pushrelay/pkg/expo"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) PendingQueueEntries(ctx context.Context, now time.Time, limit int) ([]models.QueueEntry, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QueueEntry), args.Error(1)
}

func (m *mockStore) MarkQueueEntries(ctx context.Context, ids []int64, status string) error {
	args := m.Called(ctx, ids, status)
	return args.Error(0)
}

func (m *mockStore) MarkQueueEntriesSent(ctx context.Context, ids []int64, sentAt time.Time) error {
	args := m.Called(ctx, ids, sentAt)
	return args.Error(0)
}

func (m *mockStore) ActiveDeviceTokens(ctx context.Context, userIDs []string) ([]models.DeviceToken, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DeviceToken), args.Error(1)
}

func (m *mockStore) DeactivateDeviceToken(ctx context.Context, pushToken string) error {
	args := m.Called(ctx, pushToken)
	return args.Error(0)
}

func (m *mockStore) ConsultationByConversationID(ctx context.Context, conversationID string) (*models.Consultation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Consultation), args.Error(1)
}

func (m *mockStore) InsertConsultationMessage(ctx context.Context, msg *models.ConsultationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockStore) FirstStaffProfile(ctx context.Context) (*models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type mockPushClient struct {
	mock.Mock
}

func (m *mockPushClient) SendMessages(ctx context.Context, messages []expo.PushMessage) ([]expo.PushTicket, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]expo.PushTicket), args.Error(1)
}

func okTickets(n int) []expo.PushTicket {
	tickets := make([]expo.PushTicket, n)
	for i := range tickets {
		tickets[i] = expo.PushTicket{Status: expo.TicketStatusOK}
	}
	return tickets
}

func deadTicket() expo.PushTicket {
	return expo.PushTicket{
		Status: expo.TicketStatusError,
		Details: &struct {
			Error string `json:"error"`
		}{Error: expo.ErrDeviceNotRegistered},
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
