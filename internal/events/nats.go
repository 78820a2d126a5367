// Package events publishes run status announcements on a NATS subject so
// dashboards on other machines can follow a technician's runs.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultSubject is used when the configuration leaves the subject empty.
const DefaultSubject = "repairfill.status"

// ErrDisabled is returned by Watch when no NATS URL is configured.
var ErrDisabled = errors.New("status events are not configured")

// Publisher is the slice of *nats.Conn the reporter uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSReporter is a workflow.Reporter over NATS core publish.
type NATSReporter struct {
	logger  *zap.Logger
	pub     Publisher
	subject string
	conn    *nats.Conn
}

var _ workflow.Reporter = (*NATSReporter)(nil)

// NewReporter wraps an existing publisher.
func NewReporter(logger *zap.Logger, pub Publisher, subject string) *NATSReporter {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSReporter{logger: logger.Named("events"), pub: pub, subject: subject}
}

// Connect dials cfg.NATSURL. It returns (nil, nil) when publication is disabled.
func Connect(logger *zap.Logger, cfg config.EventsConfig) (*NATSReporter, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("repairfill"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected.", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	r := NewReporter(logger, nc, cfg.Subject)
	r.conn = nc
	return r, nil
}

// Publish encodes s as JSON on the status subject. The run id is appended as
// a subject token so subscribers can follow a single run.
func (r *NATSReporter) Publish(_ context.Context, s workflow.Status) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	subject := r.subject
	if s.RunID != "" {
		subject += "." + s.RunID
	}
	if err := r.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish status on %s: %w", subject, err)
	}
	r.logger.Debug("Published status.", zap.String("subject", subject))
	return nil
}

// Close drains the connection when the reporter owns it.
func (r *NATSReporter) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}

// Subscribe delivers every status published under subject until ctx ends.
// An empty runID follows all runs.
func Subscribe(ctx context.Context, nc *nats.Conn, subject, runID string, handler func(workflow.Status)) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if runID != "" {
		subject += "." + runID
	} else {
		subject += ".>"
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var s workflow.Status
		if err := json.Unmarshal(msg.Data, &s); err == nil {
			handler(s)
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return sub, nil
}

// Watch connects to cfg.NATSURL and hands every status to handler until ctx
// ends.
func Watch(ctx context.Context, logger *zap.Logger, cfg config.EventsConfig, runID string, handler func(workflow.Status)) error {
	if cfg.NATSURL == "" {
		return ErrDisabled
	}
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("repairfill-watch"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	defer nc.Close()

	if _, err := Subscribe(ctx, nc, cfg.Subject, runID, handler); err != nil {
		return fmt.Errorf("failed to subscribe to status events: %w", err)
	}
	logger.Info("Watching run status.", zap.String("url", cfg.NATSURL), zap.String("run_id", runID))
	<-ctx.Done()
	return nil
}
