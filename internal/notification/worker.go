package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"billing-admin-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the storage the pool reads targets from.
type Subscriptions interface {
	SubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// Job is one alert to announce to its owner.
type Job struct {
	OwnerID     uuid.UUID
	AlertID     uuid.UUID
	MachineName string
	Title       string
	Message     string
	Severity    model.Severity
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	AlertID  string `json:"alert_id"`
	Severity string `json:"severity"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	subs    Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs Subscriptions, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger.Named("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case job := <-wp.jobs:
			wp.sendNotificationsForOwner(ctx, job)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues a job. It never blocks the caller; when the queue is full
// the job is dropped and false is returned.
func (wp *WorkerPool) Dispatch(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		wp.logger.Warn("notification queue full, dropping alert", zap.String("alert_id", job.AlertID.String()))
		return false
	}
}

// NotifyAlert queues a push for a newly created alert.
func (wp *WorkerPool) NotifyAlert(ownerID uuid.UUID, a *model.SystemAlert, machineName string) {
	wp.Dispatch(Job{
		OwnerID:     ownerID,
		AlertID:     a.ID,
		MachineName: machineName,
		Title:       a.Title,
		Message:     a.Message,
		Severity:    a.Severity,
	})
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForOwner(ctx context.Context, job Job) {
	subscriptions, err := wp.subs.SubscriptionsForUser(ctx, job.OwnerID)
	if err != nil {
		wp.logger.Error("failed to load subscriptions", zap.String("user_id", job.OwnerID.String()), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(buildPayload(job))
	if err != nil {
		wp.logger.Error("failed to encode payload", zap.Error(err))
		return
	}

	wp.logger.Debug("sending notifications",
		zap.Int("count", len(subscriptions)),
		zap.String("alert_id", job.AlertID.String()))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func buildPayload(job Job) Payload {
	title := job.Title
	if job.MachineName != "" {
		title = fmt.Sprintf("%s: %s", job.MachineName, job.Title)
	}
	return Payload{
		Title:    title,
		Body:     job.Message,
		AlertID:  job.AlertID.String(),
		Severity: string(job.Severity),
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
