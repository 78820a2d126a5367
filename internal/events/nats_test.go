package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	return m.Called(subject, data).Error(0)
}

func TestNATSReporterPublish(t *testing.T) {
	ctx := context.Background()
	status := workflow.Status{RunID: "run-1", Stage: "run-parts-table", Message: "Parts table completed", OK: true, Time: time.Unix(0, 0).UTC()}

	t.Run("publishes json on the run subject", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("Publish", "shop.status.run-1", mock.MatchedBy(func(data []byte) bool {
			var got workflow.Status
			return json.Unmarshal(data, &got) == nil && got.Message == status.Message && got.OK
		})).Return(nil).Once()

		r := NewReporter(zaptest.NewLogger(t), pub, "shop.status")
		require.NoError(t, r.Publish(ctx, status))
		pub.AssertExpectations(t)
	})

	t.Run("default subject", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("Publish", DefaultSubject, mock.Anything).Return(nil).Once()

		r := NewReporter(zaptest.NewLogger(t), pub, "")
		require.NoError(t, r.Publish(ctx, workflow.Status{Message: "Automation started"}))
		pub.AssertExpectations(t)
	})

	t.Run("publish errors are wrapped", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats: connection closed"))

		r := NewReporter(zaptest.NewLogger(t), pub, "s")
		err := r.Publish(ctx, status)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection closed")
	})
}

func TestConnectDisabled(t *testing.T) {
	r, err := Connect(zaptest.NewLogger(t), config.EventsConfig{})
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(zaptest.NewLogger(t), config.EventsConfig{NATSURL: "nats://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("disabled", func(t *testing.T) {
		err := Watch(context.Background(), logger, config.EventsConfig{}, "", func(workflow.Status) {})
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("unreachable", func(t *testing.T) {
		err := Watch(context.Background(), logger, config.EventsConfig{NATSURL: "nats://127.0.0.1:1"}, "run-1", func(workflow.Status) {})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrDisabled)
	})
}
