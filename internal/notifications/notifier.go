package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bissquit/pagelite/internal/domain"
	"github.com/bissquit/pagelite/internal/pkg/ctxlog"
)

// Enqueuer accepts notification jobs for asynchronous delivery.
type Enqueuer interface {
	Enqueue(job Job) error
}

// TokenSigner issues unsubscribe tokens.
type TokenSigner interface {
	Sign(slug, email string) (string, error)
}

// Notifier fans incident changes out to page subscribers.
type Notifier struct {
	queue   Enqueuer
	signer  TokenSigner
	baseURL string
}

// NewNotifier creates a new Notifier. baseURL is the public address of the
// status pages and is used to build links in messages.
func NewNotifier(queue Enqueuer, signer TokenSigner, baseURL string) *Notifier {
	return &Notifier{
		queue:   queue,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// OnIncidentReported notifies subscribers about a new incident.
func (n *Notifier) OnIncidentReported(ctx context.Context, page *domain.StatusPage, incident *domain.Incident) error {
	if len(incident.Updates) == 0 {
		return fmt.Errorf("incident %s has no updates", incident.ID)
	}
	return n.fanOut(ctx, page, NewReportedPayload(page, incident, n.pageURL(page.Slug)))
}

// OnIncidentUpdated notifies subscribers about a new incident update.
func (n *Notifier) OnIncidentUpdated(ctx context.Context, page *domain.StatusPage, incident *domain.Incident, update *domain.IncidentUpdate) error {
	return n.fanOut(ctx, page, NewUpdatePayload(page, incident, update, n.pageURL(page.Slug)))
}

func (n *Notifier) fanOut(ctx context.Context, page *domain.StatusPage, payload NotificationPayload) error {
	log := ctxlog.FromContext(ctx)

	if len(page.Subscribers) == 0 {
		log.Debug("no subscribers for page", "slug", page.Slug)
		return nil
	}

	queued := 0
	for _, email := range page.Subscribers {
		job := Job{To: email, Payload: payload}

		unsubscribeURL, err := n.unsubscribeURL(page.Slug, email)
		if err != nil {
			log.Error("failed to sign unsubscribe token", "slug", page.Slug, "error", err)
		} else {
			job.Payload.UnsubscribeURL = unsubscribeURL
		}

		if err := n.queue.Enqueue(job); err != nil {
			notificationsDropped.Inc()
			if errors.Is(err, ErrWorkerStopped) {
				return err
			}
			log.Warn("notification dropped", "slug", page.Slug, "message_type", payload.MessageType, "error", err)
			continue
		}
		queued++
	}

	log.Info("incident notifications queued",
		"slug", page.Slug,
		"message_type", payload.MessageType,
		"queued", queued,
		"subscribers", len(page.Subscribers),
	)
	return nil
}

func (n *Notifier) pageURL(slug string) string {
	return n.baseURL + "/pages/" + url.PathEscape(slug)
}

func (n *Notifier) unsubscribeURL(slug, email string) (string, error) {
	if n.signer == nil {
		return "", nil
	}
	token, err := n.signer.Sign(slug, email)
	if err != nil {
		return "", err
	}
	return n.pageURL(slug) + "/unsubscribe?token=" + url.QueryEscape(token), nil
}
