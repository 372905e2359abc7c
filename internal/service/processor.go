package service

import (
	"context"
	"time"

	"pushrelay/internal/constants"
	"pushrelay/internal/models"
	"pushrelay/internal/privacy"
	"pushrelay/internal/store"
	"pushrelay/pkg/expo"

	"github.com/sirupsen/logrus"
)

// Summary is what one claim-and-deliver cycle reports back.
type Summary struct {
	Processed   int `json:"processed"`
	Sent        int `json:"sent"`
	Deactivated int `json:"deactivated"`
}

// ProcessorConfig fixes the batching knobs. They are constants of the
// deployment, not adaptive.
type ProcessorConfig struct {
	BatchLimit int
	ChunkSize  int
	ChunkDelay time.Duration
}

// DefaultProcessorConfig returns the stock batch/chunk/throttle settings.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchLimit: constants.DefaultQueueBatchLimit,
		ChunkSize:  constants.DefaultPushChunkSize,
		ChunkDelay: constants.DefaultChunkDelayMs * time.Millisecond,
	}
}

// Processor drains the notification queue: claim pending entries, fan them
// out as push messages per device, reconcile delivery tickets, finalize.
type Processor struct {
	store  store.Store
	push   expo.Client
	config ProcessorConfig
	logger *logrus.Logger
}

// NewProcessor wires the queue processor to its collaborators.
func NewProcessor(st store.Store, push expo.Client, config ProcessorConfig, logger *logrus.Logger) *Processor {
	if config.BatchLimit <= 0 {
		config.BatchLimit = constants.DefaultQueueBatchLimit
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = constants.DefaultPushChunkSize
	}

	return &Processor{
		store:  st,
		push:   push,
		config: config,
		logger: logger,
	}
}

// ProcessPending runs one full claim-and-deliver cycle.
//
// Claimed entries always end up sent, whatever happened to their individual
// messages; the entry row does not distinguish delivered from attempted.
// The claim itself is a best-effort select-then-update with no transaction
// around it, so two overlapping cycles can double-deliver.
func (p *Processor) ProcessPending(ctx context.Context) (*Summary, error) {
	now := time.Now()

	entries, err := p.store.PendingQueueEntries(ctx, now, p.config.BatchLimit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		p.logger.Debug("No pending queue entries")
		return &Summary{}, nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	// Claim before any delivery attempt so a concurrent cycle skips these rows.
	if err := p.store.MarkQueueEntries(ctx, ids, models.QueueStatusProcessing); err != nil {
		return nil, err
	}

	summary := &Summary{Processed: len(entries)}

	messages, err := p.expand(ctx, entries)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		p.logger.WithField("entries", len(entries)).Info("No deliverable messages for claimed entries")
		if err := p.store.MarkQueueEntriesSent(ctx, ids, time.Now()); err != nil {
			return nil, err
		}
		return summary, nil
	}

	summary.Sent, summary.Deactivated = p.deliver(ctx, messages)

	if err := p.store.MarkQueueEntriesSent(ctx, ids, time.Now()); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"processed":   summary.Processed,
		"sent":        summary.Sent,
		"deactivated": summary.Deactivated,
	}).Info("Queue cycle completed")

	return summary, nil
}

// expand groups the claimed entries by user, resolves every user's active
// tokens in one query, and builds one push message per (entry, token) pair.
// Users without a single active token are skipped; their entries still get
// finalized by the caller.
func (p *Processor) expand(ctx context.Context, entries []models.QueueEntry) ([]expo.PushMessage, error) {
	byUser := make(map[string][]models.QueueEntry)
	userIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, seen := byUser[e.UserID]; !seen {
			userIDs = append(userIDs, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	tokens, err := p.store.ActiveDeviceTokens(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	tokensByUser := make(map[string][]models.DeviceToken)
	for _, t := range tokens {
		tokensByUser[t.UserID] = append(tokensByUser[t.UserID], t)
	}

	var messages []expo.PushMessage
	for _, userID := range userIDs {
		userTokens := tokensByUser[userID]
		if len(userTokens) == 0 {
			p.logger.WithFields(logrus.Fields{
				"user_id": privacy.MaskUserID(userID),
				"entries": len(byUser[userID]),
			}).Info("Skipping user with no active device tokens")
			continue
		}

		for _, entry := range byUser[userID] {
			for _, token := range userTokens {
				msg := expo.PushMessage{
					To:    token.PushToken,
					Sound: "default",
					Title: entry.Title,
					Body:  entry.Body,
					Data:  entry.Data,
				}
				if entry.Priority > 0 {
					msg.Priority = "high"
				}
				if entry.Category != "" {
					msg.ChannelID = entry.Category
				}
				messages = append(messages, msg)
			}
		}
	}

	return messages, nil
}

// deliver sends the messages in fixed-size chunks with the configured delay
// between gateway calls. A chunk whose call fails outright is skipped, its
// messages counted as not sent; delivered chunks are reconciled ticket by
// ticket against their positionally aligned messages.
func (p *Processor) deliver(ctx context.Context, messages []expo.PushMessage) (sent, deactivated int) {
	chunks := expo.Chunk(messages, p.config.ChunkSize)

	for i, chunk := range chunks {
		if i > 0 && p.config.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				p.logger.Warn("Delivery interrupted between chunks")
				return sent, deactivated
			case <-time.After(p.config.ChunkDelay):
			}
		}

		tickets, err := p.push.SendMessages(ctx, chunk)
		if err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"chunk":    i + 1,
				"chunks":   len(chunks),
				"messages": len(chunk),
			}).Warn("Chunk delivery failed, skipping")
			continue
		}

		for j, ticket := range tickets {
			if ticket.Status == expo.TicketStatusOK {
				sent++
				continue
			}
			if ticket.IsDeviceNotRegistered() {
				token := chunk[j].To
				if derr := p.store.DeactivateDeviceToken(ctx, token); derr != nil {
					p.logger.WithError(derr).WithField("token", privacy.MaskToken(token)).Warn("Failed to deactivate device token")
					continue
				}
				deactivated++
			}
		}
	}

	return sent, deactivated
}
