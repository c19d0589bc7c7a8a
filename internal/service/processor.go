package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/septivank/greenmove-rewards/internal/config"
	"github.com/septivank/greenmove-rewards/internal/logging"
	"github.com/septivank/greenmove-rewards/internal/metrics"
	"github.com/septivank/greenmove-rewards/internal/mq"
	"github.com/septivank/greenmove-rewards/internal/program"
	"github.com/septivank/greenmove-rewards/internal/validator"
	"go.uber.org/zap"
)

// Executor applies instructions to the ledger
type Executor interface {
	Execute(ctx context.Context, env program.Env, ix program.Instruction) (*program.Receipt, error)
}

// EventPublisher publishes transition outcomes
type EventPublisher interface {
	PublishTransitionEvent(ctx context.Context, event mq.TransitionEvent, routingKey string) error
}

// ProcessorService handles message processing logic
type ProcessorService struct {
	executor  Executor
	publisher EventPublisher
	validator *validator.Validator
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	executor Executor,
	publisher EventPublisher,
	validator *validator.Validator,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *ProcessorService {
	return &ProcessorService{
		executor:  executor,
		publisher: publisher,
		validator: validator,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// rejection is a deterministic refusal of a message: it is acked and
// reported, never retried.
type rejection struct {
	code   string
	reason string
}

// ProcessMessage processes an incoming instruction message. Only
// infrastructure failures are returned; rejected instructions are
// published on the rejected routing key and acked.
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	// Parse incoming message
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.now().UTC()
	}

	// Add request_id to logger context
	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)
	reqLogger.Info("processing instruction",
		zap.String("instruction", msg.Instruction),
		zap.String("instruction_id", msg.InstructionID),
	)

	env, ix, rej := s.decode(msg)
	if rej != nil {
		s.metrics.ObserveInstruction(msg.Instruction, metrics.OutcomeRejected, 0)
		s.metrics.ObserveRejection(rej.code)
		reqLogger.Info("instruction rejected by validation",
			zap.String("code", rej.code),
			zap.String("reason", rej.reason),
		)
		return s.publishRejected(ctx, msg, env, rej, reqLogger)
	}

	started := s.now()
	receipt, err := s.executor.Execute(ctx, env, ix)
	took := s.now().Sub(started)
	if err != nil {
		if !program.IsRejection(err) {
			s.metrics.ObserveInstruction(msg.Instruction, metrics.OutcomeFailed, took)
			reqLogger.Error("failed to execute instruction", zap.Error(err))
			return fmt.Errorf("failed to execute %s: %w", msg.Instruction, err)
		}
		rej := &rejection{code: program.Code(err), reason: err.Error()}
		s.metrics.ObserveInstruction(msg.Instruction, metrics.OutcomeRejected, took)
		s.metrics.ObserveRejection(rej.code)
		return s.publishRejected(ctx, msg, env, rej, reqLogger)
	}

	s.metrics.ObserveInstruction(msg.Instruction, metrics.OutcomeApplied, took)
	switch receipt.Kind {
	case program.KindReportWaterUsage, program.KindReportEnergyConsumption:
		s.metrics.ObserveUsage(receipt.Category.String(), receipt.Quantity, receipt.Points)
	case program.KindRedeemRewards:
		if receipt.Redemption != nil {
			s.metrics.ObserveRedemption(receipt.Redemption.Amount)
		}
	}

	event := s.baseEvent(msg, env, mq.StatusApplied)
	applyReceipt(&event, receipt)
	if err := s.publisher.PublishTransitionEvent(ctx, event, s.cfg.RabbitMQ.WorkerRoutingKey); err != nil {
		// Committed; a redelivery would only be rejected as a duplicate.
		reqLogger.Error("failed to publish event", zap.Error(err))
	}

	reqLogger.Info("instruction applied",
		zap.String("instruction", receipt.Kind.String()),
		zap.Uint64("points", receipt.Points),
		zap.Uint64("balance", receipt.Balance),
	)
	return nil
}

// decode validates the envelope and builds the instruction. The ledger
// timestamp is the reading time for usage reports and the receive time
// otherwise.
func (s *ProcessorService) decode(msg IngestMessage) (program.Env, program.Instruction, *rejection) {
	env := program.Env{
		ID:        msg.InstructionID,
		Timestamp: msg.ReceivedAt.Unix(),
	}
	if env.ID == "" {
		env.ID = msg.RequestID
	}

	kind, err := program.ParseKind(msg.Instruction)
	if err != nil {
		return env, program.Instruction{}, &rejection{code: program.Code(err), reason: err.Error()}
	}

	signer, res := validator.ParseAddress("signer", msg.Signer)
	if !res.IsValid {
		return env, program.Instruction{}, invalidInstruction(res.Reason)
	}
	env.Signer = signer

	switch kind {
	case program.KindRegister:
		if msg.Register == nil {
			return env, program.Instruction{}, invalidInstruction("missing register payload")
		}
		p := msg.Register
		waterFeed, res := validator.ParseAddress("water_feed", p.WaterFeed)
		if !res.IsValid {
			return env, program.Instruction{}, invalidInstruction(res.Reason)
		}
		parseEnergyFeed := validator.ParseOptionalAddress
		if p.TrackEnergy {
			parseEnergyFeed = validator.ParseAddress
		}
		energyFeed, res := parseEnergyFeed("energy_feed", p.EnergyFeed)
		if !res.IsValid {
			return env, program.Instruction{}, invalidInstruction(res.Reason)
		}
		return env, program.NewRegister(program.Register{
			PropertyID:  p.PropertyID,
			WaterID:     p.WaterMeterID,
			EnergyID:    p.EnergyMeterID,
			WaterFeed:   waterFeed,
			EnergyFeed:  energyFeed,
			TrackEnergy: p.TrackEnergy,
		}), nil

	case program.KindReportWaterUsage, program.KindReportEnergyConsumption:
		if msg.Usage == nil {
			return env, program.Instruction{}, invalidInstruction("missing usage payload")
		}
		p := msg.Usage
		owner, res := validator.ParseAddress("owner", p.Owner)
		if !res.IsValid {
			return env, program.Instruction{}, invalidInstruction(res.Reason)
		}
		meter, res := validator.ParseOptionalAddress("meter", p.Meter)
		if !res.IsValid {
			return env, program.Instruction{}, invalidInstruction(res.Reason)
		}
		quantity, readingTime, res := s.validator.ValidateReading(validator.Reading{
			Date: p.Date,
			Data: p.Data,
			Name: p.Name,
		}, msg.ReceivedAt)
		if !res.IsValid {
			return env, program.Instruction{}, invalidInstruction(res.Reason)
		}
		if !readingTime.IsZero() {
			env.Timestamp = readingTime.Unix()
		}
		category, _ := kind.Category()
		return env, program.NewReportUsage(category, program.ReportUsage{
			Owner:      owner,
			PropertyID: p.PropertyID,
			MeterID:    p.Name,
			Quantity:   quantity,
			Meter:      meter,
		}), nil

	case program.KindRedeemRewards:
		if msg.Redeem == nil {
			return env, program.Instruction{}, invalidInstruction("missing redeem payload")
		}
		rewardAccount, res := validator.ParseOptionalAddress("reward_account", msg.Redeem.RewardAccount)
		if !res.IsValid {
			return env, program.Instruction{}, invalidInstruction(res.Reason)
		}
		return env, program.NewRedeem(program.Redeem{
			Amount:        msg.Redeem.Amount,
			RewardAccount: rewardAccount,
		}), nil
	}
	return env, program.Instruction{}, invalidInstruction("unsupported instruction " + kind.String())
}

func invalidInstruction(reason string) *rejection {
	return &rejection{code: program.Code(program.ErrInvalidInstruction), reason: reason}
}

func (s *ProcessorService) baseEvent(msg IngestMessage, env program.Env, status string) mq.TransitionEvent {
	event := mq.TransitionEvent{
		RequestID:       msg.RequestID,
		InstructionID:   env.ID,
		Instruction:     msg.Instruction,
		Status:          status,
		LedgerTimestamp: time.Unix(env.Timestamp, 0).UTC().Format(time.RFC3339),
	}
	if !env.Signer.IsZero() {
		event.Signer = env.Signer.String()
	}
	return event
}

func applyReceipt(event *mq.TransitionEvent, r *program.Receipt) {
	event.Instruction = r.Kind.String()
	for _, a := range r.Accounts {
		event.Accounts = append(event.Accounts, a.String())
	}
	if r.Category != 0 {
		event.Category = r.Category.String()
	}
	event.Quantity = r.Quantity
	event.TotalConsumed = r.Total
	event.Points = r.Points
	event.ReductionBps = r.ReductionBps
	event.Baseline = r.Baseline
	event.Balance = r.Balance
	if r.Redemption != nil {
		seq := r.Redemption.Sequence
		event.RedemptionSequence = &seq
	}
}

func (s *ProcessorService) publishRejected(ctx context.Context, msg IngestMessage, env program.Env, rej *rejection, logger *zap.Logger) error {
	event := s.baseEvent(msg, env, mq.StatusRejected)
	event.Code = rej.code
	event.Reason = rej.reason
	if err := s.publisher.PublishTransitionEvent(ctx, event, s.cfg.RabbitMQ.RejectedRoutingKey); err != nil {
		logger.Error("failed to publish rejection", zap.Error(err), zap.String("code", rej.code))
		return fmt.Errorf("failed to publish rejection: %w", err)
	}
	return nil
}
