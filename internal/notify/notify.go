// Package notify publishes role application lifecycle events.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

// EventType names a role application transition.
type EventType string

// Event types.
const (
	EventSubmitted EventType = "submitted"
	EventApproved  EventType = "approved"
	EventRejected  EventType = "rejected"
	EventWithdrawn EventType = "withdrawn"
)

// EventTypeFor returns the event emitted when an application enters status.
func EventTypeFor(status model.ApplicationStatus) EventType {
	switch status {
	case model.StatusApproved:
		return EventApproved
	case model.StatusRejected:
		return EventRejected
	case model.StatusWithdrawn:
		return EventWithdrawn
	default:
		return EventSubmitted
	}
}

// Event describes one transition of a role application.
type Event struct {
	Type          EventType               `json:"type"`
	ApplicationID primitive.ObjectID      `json:"application_id"`
	ApplicantID   primitive.ObjectID      `json:"applicant_id"`
	ActorID       primitive.ObjectID      `json:"actor_id"`
	RequestedRole rbac.Role               `json:"requested_role"`
	From          model.ApplicationStatus `json:"from,omitempty"`
	To            model.ApplicationStatus `json:"to"`
	AdminNotes    string                  `json:"admin_notes,omitempty"`
	At            time.Time               `json:"at"`
}

// NewEvent builds the event for an application that just moved from from to its
// current status.
func NewEvent(app *model.RoleApplication, actorID primitive.ObjectID, from model.ApplicationStatus, at time.Time) Event {
	return Event{
		Type:          EventTypeFor(app.Status),
		ApplicationID: app.ID,
		ApplicantID:   app.ApplicantID,
		ActorID:       actorID,
		RequestedRole: app.RequestedRole,
		From:          from,
		To:            app.Status,
		AdminNotes:    app.AdminNotes,
		At:            at,
	}
}

// Notifier receives application events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Dispatcher fans an event out to every subscribed notifier. Notifier failures are
// logged and never returned.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
}

// NewDispatcher creates a dispatcher. Each notifier gets at most timeout per event;
// zero disables the limit.
func NewDispatcher(timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, timeout: timeout}
}

// Subscribe adds a notifier. It must not be called concurrently with Publish.
func (d *Dispatcher) Subscribe(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Publish delivers event to all notifiers concurrently and waits for them.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	if d == nil || len(d.notifiers) == 0 {
		return
	}
	// Delivery must not be cut short by the caller's request ending.
	ctx = context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var g errgroup.Group
	for _, n := range d.notifiers {
		g.Go(func() error {
			if err := n.Notify(ctx, event); err != nil {
				log.Warn().
					Err(err).
					Str("event", string(event.Type)).
					Str("application_id", event.ApplicationID.Hex()).
					Msg("notifier failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
