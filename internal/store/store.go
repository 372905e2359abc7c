package store

import (
	"context"
	"fmt"
	"time"

	apperrors "pushrelay/internal/errors"
	"pushrelay/internal/models"
	"pushrelay/pkg/supabase"
)

// Table names in the managed database
const (
	TableNotificationQueue    = "notification_queue"
	TableDeviceTokens         = "device_tokens"
	TableConsultations        = "consultations"
	TableConsultationMessages = "consultation_messages"
	TableProfiles             = "profiles"
)

// Store is the typed query surface the services depend on.
type Store interface {
	PendingQueueEntries(ctx context.Context, now time.Time, limit int) ([]models.QueueEntry, error)
	MarkQueueEntries(ctx context.Context, ids []int64, status string) error
	MarkQueueEntriesSent(ctx context.Context, ids []int64, sentAt time.Time) error
	ActiveDeviceTokens(ctx context.Context, userIDs []string) ([]models.DeviceToken, error)
	DeactivateDeviceToken(ctx context.Context, pushToken string) error
	ConsultationByConversationID(ctx context.Context, conversationID string) (*models.Consultation, error)
	InsertConsultationMessage(ctx context.Context, msg *models.ConsultationMessage) error
	FirstStaffProfile(ctx context.Context) (*models.Profile, error)
}

type store struct {
	client supabase.Client
}

// New wraps a datastore client with the typed queries.
func New(client supabase.Client) Store {
	return &store{client: client}
}

// PendingQueueEntries claims candidates: pending rows due by now, highest
// priority first, earliest scheduled first within equal priority.
func (s *store) PendingQueueEntries(ctx context.Context, now time.Time, limit int) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	q := supabase.Query{
		Filters: []supabase.Filter{
			supabase.Eq("status", models.QueueStatusPending),
			supabase.Lte("scheduled_for", now.UTC().Format(time.RFC3339)),
		},
		Order: []supabase.OrderBy{
			{Column: "priority", Direction: supabase.Descending},
			{Column: "scheduled_for", Direction: supabase.Ascending},
		},
		Limit: limit,
	}

	if err := s.client.Select(ctx, TableNotificationQueue, q, &entries); err != nil {
		return nil, apperrors.NewDatastoreError("select pending queue entries", err)
	}
	return entries, nil
}

// MarkQueueEntries bulk-updates the status of the given rows.
func (s *store) MarkQueueEntries(ctx context.Context, ids []int64, status string) error {
	if len(ids) == 0 {
		return nil
	}

	filters := []supabase.Filter{supabase.In("id", formatIDs(ids))}
	patch := map[string]interface{}{"status": status}

	if err := s.client.Update(ctx, TableNotificationQueue, filters, patch); err != nil {
		return apperrors.NewDatastoreError(fmt.Sprintf("mark queue entries %s", status), err)
	}
	return nil
}

// MarkQueueEntriesSent finalizes the given rows with a sent timestamp.
func (s *store) MarkQueueEntriesSent(ctx context.Context, ids []int64, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	filters := []supabase.Filter{supabase.In("id", formatIDs(ids))}
	patch := map[string]interface{}{
		"status":  models.QueueStatusSent,
		"sent_at": sentAt.UTC().Format(time.RFC3339),
	}

	if err := s.client.Update(ctx, TableNotificationQueue, filters, patch); err != nil {
		return apperrors.NewDatastoreError("mark queue entries sent", err)
	}
	return nil
}

// ActiveDeviceTokens fetches every active token for the given users in one
// query.
func (s *store) ActiveDeviceTokens(ctx context.Context, userIDs []string) ([]models.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var tokens []models.DeviceToken
	q := supabase.Query{
		Filters: []supabase.Filter{
			supabase.In("user_id", userIDs),
			supabase.Eq("is_active", "true"),
		},
	}

	if err := s.client.Select(ctx, TableDeviceTokens, q, &tokens); err != nil {
		return nil, apperrors.NewDatastoreError("select active device tokens", err)
	}
	return tokens, nil
}

// DeactivateDeviceToken flips one token inactive. Tokens are never
// reactivated by this system.
func (s *store) DeactivateDeviceToken(ctx context.Context, pushToken string) error {
	filters := []supabase.Filter{supabase.Eq("push_token", pushToken)}
	patch := map[string]interface{}{"is_active": false}

	if err := s.client.Update(ctx, TableDeviceTokens, filters, patch); err != nil {
		return apperrors.NewDatastoreError("deactivate device token", err)
	}
	return nil
}

// ConsultationByConversationID resolves the consultation linked to an inbound
// chat conversation. The stored linkage column is compared as a string.
func (s *store) ConsultationByConversationID(ctx context.Context, conversationID string) (*models.Consultation, error) {
	var consultations []models.Consultation
	q := supabase.Query{
		Filters: []supabase.Filter{supabase.Eq("chatwoot_conversation_id", conversationID)},
		Limit:   1,
	}

	if err := s.client.Select(ctx, TableConsultations, q, &consultations); err != nil {
		return nil, apperrors.NewDatastoreError("select consultation", err)
	}
	if len(consultations) == 0 {
		return nil, apperrors.NewNotFoundError("consultation", conversationID)
	}
	return &consultations[0], nil
}

// InsertConsultationMessage persists one accepted inbound chat message.
func (s *store) InsertConsultationMessage(ctx context.Context, msg *models.ConsultationMessage) error {
	if err := s.client.Insert(ctx, TableConsultationMessages, msg); err != nil {
		return apperrors.NewDatastoreError("insert consultation message", err)
	}
	return nil
}

// FirstStaffProfile returns the first profile with an admin or author role,
// ordered by id so the pick is deterministic. Absence is not an error; the
// caller falls back to system attribution.
func (s *store) FirstStaffProfile(ctx context.Context) (*models.Profile, error) {
	var profiles []models.Profile
	q := supabase.Query{
		Filters: []supabase.Filter{supabase.In("role", []string{models.RoleAdmin, models.RoleAuthor})},
		Order:   []supabase.OrderBy{{Column: "id", Direction: supabase.Ascending}},
		Limit:   1,
	}

	if err := s.client.Select(ctx, TableProfiles, q, &profiles); err != nil {
		return nil, apperrors.NewDatastoreError("select staff profile", err)
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%d", id)
	}
	return out
}
