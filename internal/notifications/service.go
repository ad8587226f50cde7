package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"claimcheck/internal/config"
	"claimcheck/internal/logging"
)

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyClaimCommitted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, failure RunFailure) error
	NotifySuggestion(ctx context.Context, notice SuggestionNotice) error
	TestNotification(ctx context.Context) error
	Close() error
}

// publisher delivers one event to one backend.
type publisher interface {
	name() string
	publish(ctx context.Context, event Event) error
	close() error
}

// Enabled reports whether cfg names at least one notification target.
func Enabled(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" ||
		len(cfg.Events.KafkaBrokers) > 0 ||
		strings.TrimSpace(cfg.Events.SQSQueueURL) != ""
}

// NewService builds a service that fans out to every configured publisher.
// When nothing is configured, a noop implementation is returned.
func NewService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Service, error) {
	var pubs []publisher
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		pubs = append(pubs, newNtfyPublisher(topic, cfg.Notifications.RequestTimeout))
	}
	if len(cfg.Events.KafkaBrokers) > 0 {
		pubs = append(pubs, newKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic))
	}
	if queueURL := strings.TrimSpace(cfg.Events.SQSQueueURL); queueURL != "" {
		sqsPub, err := newSQSPublisher(ctx, queueURL, cfg.Events.SQSRegion)
		if err != nil {
			for _, p := range pubs {
				_ = p.close()
			}
			return nil, err
		}
		pubs = append(pubs, sqsPub)
	}
	if len(pubs) == 0 {
		return noopService{}, nil
	}
	return newFanout(logger, pubs...), nil
}

type fanout struct {
	publishers []publisher
	logger     *slog.Logger
}

func newFanout(logger *slog.Logger, pubs ...publisher) *fanout {
	return &fanout{publishers: pubs, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (f *fanout) NotifyClaimCommitted(ctx context.Context, summary RunSummary) error {
	return f.send(ctx, committedEvent(summary))
}

func (f *fanout) NotifyRunFailed(ctx context.Context, failure RunFailure) error {
	return f.send(ctx, failedEvent(failure))
}

func (f *fanout) NotifySuggestion(ctx context.Context, notice SuggestionNotice) error {
	return f.send(ctx, suggestionEvent(notice))
}

func (f *fanout) TestNotification(ctx context.Context) error {
	return f.send(ctx, testEvent())
}

// send delivers to every publisher even when one fails.
func (f *fanout) send(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name(), err))
			continue
		}
		f.logger.Debug("notification delivered",
			logging.String("publisher", p.name()),
			logging.String("notification_type", string(event.Type)),
		)
	}
	return errors.Join(errs...)
}

func (f *fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name(), err))
		}
	}
	return errors.Join(errs...)
}

// NewNoop returns a Service that discards every event.
func NewNoop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyClaimCommitted(context.Context, RunSummary) error   { return nil }
func (noopService) NotifyRunFailed(context.Context, RunFailure) error        { return nil }
func (noopService) NotifySuggestion(context.Context, SuggestionNotice) error { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
func (noopService) Close() error                                             { return nil }
