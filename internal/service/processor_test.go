package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/config"
	"github.com/septivank/greenmove-rewards/internal/metrics"
	"github.com/septivank/greenmove-rewards/internal/mq"
	"github.com/septivank/greenmove-rewards/internal/program"
	"github.com/septivank/greenmove-rewards/internal/store"
	"github.com/septivank/greenmove-rewards/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	key   string
	event mq.TransitionEvent
}

type fakePublisher struct {
	events []published
	err    error
}

func (f *fakePublisher) PublishTransitionEvent(_ context.Context, event mq.TransitionEvent, routingKey string) error {
	f.events = append(f.events, published{key: routingKey, event: event})
	return f.err
}

func (f *fakePublisher) last(t *testing.T) published {
	t.Helper()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, program.Env, program.Instruction) (*program.Receipt, error) {
	return nil, errors.New("leveldb: closed")
}

func fill(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

var (
	owner      = fill(1)
	waterFeed  = fill(2)
	receivedAt = time.Date(2025, 12, 29, 10, 32, 0, 0, time.UTC)
)

func testConfig() *config.Config {
	return &config.Config{
		RabbitMQ: config.RabbitMQConfig{
			WorkerRoutingKey:   "instruction.applied",
			RejectedRoutingKey: "instruction.rejected",
		},
	}
}

func newTestProcessor(t *testing.T, exec Executor) (*ProcessorService, *fakePublisher) {
	t.Helper()
	if exec == nil {
		st, err := store.NewMemory()
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		exec = program.New(fill(0xA0), st, nil, nil, zap.NewNop())
	}
	pub := &fakePublisher{}
	svc := NewProcessorService(exec, pub, validator.NewValidator(10080),
		metrics.New(prometheus.NewRegistry()), testConfig(), zap.NewNop())
	return svc, pub
}

func encode(t *testing.T, msg IngestMessage) []byte {
	t.Helper()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = receivedAt
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func registerMessage(requestID string) IngestMessage {
	return IngestMessage{
		RequestID:   requestID,
		Instruction: "register",
		Signer:      owner.String(),
		Register: &RegisterPayload{
			PropertyID:   "prop-1",
			WaterMeterID: "water-1",
			WaterFeed:    waterFeed.String(),
		},
	}
}

func usageMessage(requestID, data string) IngestMessage {
	return IngestMessage{
		RequestID:   requestID,
		Instruction: "report_water_usage",
		Signer:      waterFeed.String(),
		Usage: &UsagePayload{
			Owner:      owner.String(),
			PropertyID: "prop-1",
			Date:       "29/12/2025 10:30:00",
			Data:       data,
			Name:       "water-1",
		},
	}
}

func TestProcessMessage_AppliedFlow(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestProcessor(t, nil)

	require.NoError(t, svc.ProcessMessage(ctx, encode(t, registerMessage("req-1"))))
	ev := pub.last(t)
	assert.Equal(t, "instruction.applied", ev.key)
	assert.Equal(t, mq.StatusApplied, ev.event.Status)
	assert.Equal(t, "register", ev.event.Instruction)
	assert.Len(t, ev.event.Accounts, 4)
	assert.Equal(t, owner.String(), ev.event.Signer)

	require.NoError(t, svc.ProcessMessage(ctx, encode(t, usageMessage("req-2", "[80]"))))
	ev = pub.last(t)
	assert.Equal(t, mq.StatusApplied, ev.event.Status)
	assert.Equal(t, "water", ev.event.Category)
	assert.Equal(t, uint64(80), ev.event.Quantity)
	assert.Equal(t, uint64(100), ev.event.Points)
	assert.Equal(t, uint64(100), ev.event.Balance)
	assert.Equal(t, "2025-12-29T10:30:00Z", ev.event.LedgerTimestamp)

	require.NoError(t, svc.ProcessMessage(ctx, encode(t, IngestMessage{
		RequestID:   "req-3",
		Instruction: "redeem_rewards",
		Signer:      owner.String(),
		Redeem:      &RedeemPayload{Amount: 40},
	})))
	ev = pub.last(t)
	assert.Equal(t, uint64(60), ev.event.Balance)
	require.NotNil(t, ev.event.RedemptionSequence)
	assert.Equal(t, uint64(0), *ev.event.RedemptionSequence)
}

func TestProcessMessage_RejectionsAreAcked(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestProcessor(t, nil)
	require.NoError(t, svc.ProcessMessage(ctx, encode(t, registerMessage("req-1"))))

	cases := []struct {
		name string
		msg  IngestMessage
		code string
	}{
		{"duplicate request", registerMessage("req-1"), "DuplicateInstruction"},
		{"re-register", registerMessage("req-2"), "AccountAlreadyInitialized"},
		{"unknown instruction", IngestMessage{RequestID: "req-3", Instruction: "mint", Signer: owner.String()}, "InvalidInstruction"},
		{"bad signer", IngestMessage{RequestID: "req-4", Instruction: "redeem_rewards", Signer: "0OIl", Redeem: &RedeemPayload{Amount: 1}}, "InvalidInstruction"},
		{"missing payload", IngestMessage{RequestID: "req-5", Instruction: "redeem_rewards", Signer: owner.String()}, "InvalidInstruction"},
		{"negative quantity", usageMessage("req-6", "-5"), "InvalidInstruction"},
		{"insufficient points", IngestMessage{RequestID: "req-7", Instruction: "redeem_rewards", Signer: owner.String(), Redeem: &RedeemPayload{Amount: 1}}, "InsufficientPoints"},
		{"wrong feed", func() IngestMessage {
			m := usageMessage("req-8", "80")
			m.Signer = owner.String()
			return m
		}(), "Unauthorized"},
		{"missing water feed", func() IngestMessage {
			m := registerMessage("req-9")
			m.Register.WaterFeed = ""
			return m
		}(), "InvalidInstruction"},
		{"zero water feed", func() IngestMessage {
			m := registerMessage("req-10")
			m.Register.PropertyID = "prop-2"
			m.Register.WaterFeed = address.Zero.String()
			return m
		}(), "InvalidDepinFeedAddress"},
		{"tracked energy without feed", func() IngestMessage {
			m := registerMessage("req-11")
			m.Register.PropertyID = "prop-3"
			m.Register.EnergyMeterID = "energy-1"
			m.Register.TrackEnergy = true
			return m
		}(), "InvalidInstruction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, svc.ProcessMessage(ctx, encode(t, tc.msg)))
			ev := pub.last(t)
			assert.Equal(t, "instruction.rejected", ev.key)
			assert.Equal(t, mq.StatusRejected, ev.event.Status)
			assert.Equal(t, tc.code, ev.event.Code)
			assert.NotEmpty(t, ev.event.Reason)
		})
	}
}

func TestProcessMessage_InfrastructureErrorsNack(t *testing.T) {
	svc, pub := newTestProcessor(t, failingExecutor{})

	err := svc.ProcessMessage(context.Background(), encode(t, registerMessage("req-1")))
	assert.ErrorContains(t, err, "leveldb: closed")
	assert.Empty(t, pub.events)

	err = svc.ProcessMessage(context.Background(), []byte("{not json"))
	assert.ErrorContains(t, err, "failed to unmarshal message")
}

func TestProcessMessage_ReadingTimeOutsideTolerance(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestProcessor(t, nil)
	require.NoError(t, svc.ProcessMessage(ctx, encode(t, registerMessage("req-1"))))

	msg := usageMessage("req-2", "80")
	msg.Usage.Date = "01/01/2025 00:00:00"
	require.NoError(t, svc.ProcessMessage(ctx, encode(t, msg)))

	ev := pub.last(t)
	assert.Equal(t, "InvalidInstruction", ev.event.Code)
	assert.Contains(t, ev.event.Reason, "tolerance")
}

func TestProcessMessage_RejectionPublishFailureNacks(t *testing.T) {
	svc, pub := newTestProcessor(t, nil)
	pub.err = errors.New("channel closed")

	err := svc.ProcessMessage(context.Background(), encode(t, IngestMessage{RequestID: "r", Instruction: "mint", Signer: owner.String()}))
	assert.ErrorContains(t, err, "channel closed")
}
