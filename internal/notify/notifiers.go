package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/guttosm/campus-access/internal/domain/model"
)

// LogNotifier writes events to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs every event at info level.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.logger.Info().
		Str("event", string(event.Type)).
		Str("application_id", event.ApplicationID.Hex()).
		Str("applicant_id", event.ApplicantID.Hex()).
		Str("actor_id", event.ActorID.Hex()).
		Str("requested_role", string(event.RequestedRole)).
		Str("from", string(event.From)).
		Str("to", string(event.To)).
		Msg("role application event")
	return nil
}

// AuditWriter persists audit log entries.
type AuditWriter interface {
	CreateLog(ctx context.Context, entry *model.LogEntry) error
}

// AuditNotifier records events in the audit log.
type AuditNotifier struct {
	writer AuditWriter
}

// NewAuditNotifier creates a notifier backed by the audit log.
func NewAuditNotifier(writer AuditWriter) *AuditNotifier {
	return &AuditNotifier{writer: writer}
}

// Notify writes one audit entry, plus a role grant entry for approvals.
func (n *AuditNotifier) Notify(ctx context.Context, event Event) error {
	entry := model.NewAuditEntry(auditAction(event.Type), event.ActorID.Hex(), "role application "+string(event.Type)).
		WithFields(map[string]any{
			"application_id": event.ApplicationID.Hex(),
			"applicant_id":   event.ApplicantID.Hex(),
			"requested_role": string(event.RequestedRole),
			"from":           string(event.From),
			"to":             string(event.To),
		})
	entry.Timestamp = event.At
	if err := n.writer.CreateLog(ctx, entry); err != nil {
		return fmt.Errorf("audit %s: %w", event.Type, err)
	}

	if event.Type != EventApproved {
		return nil
	}
	grant := model.NewAuditEntry(model.ActionRoleGranted, event.ApplicantID.Hex(), "role granted").
		WithField("role", string(event.RequestedRole)).
		WithField("granted_by", event.ActorID.Hex())
	grant.Timestamp = event.At
	if err := n.writer.CreateLog(ctx, grant); err != nil {
		return fmt.Errorf("audit role grant: %w", err)
	}
	return nil
}

func auditAction(t EventType) string {
	switch t {
	case EventSubmitted:
		return model.ActionApplicationSubmit
	case EventWithdrawn:
		return model.ActionApplicationWithdraw
	default:
		return model.ActionApplicationReview
	}
}

// RedisNotifier publishes events as JSON on a Redis channel.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier creates a notifier publishing to channel.
func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Notify publishes the event.
func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", n.channel, err)
	}
	return nil
}
