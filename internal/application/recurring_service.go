package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Sender submits transfers. *PaymentService satisfies it.
type Sender interface {
	Send(ctx context.Context, transfers []domain.Transfer, opts SendOptions) (SendResult, error)
}

type CreateRecurringCommand struct {
	Name      string
	Recipient string
	Amount    *big.Int
	Token     *common.Address
	Schedule  string
}

type RunReport struct {
	Due       int
	Succeeded int
	Failed    int
}

type RecurringService struct {
	repo     ports.RecurringRepository
	payments Sender
	contacts *ContactService
	clock    ports.Clock
	logger   logrus.FieldLogger
}

func NewRecurringService(repo ports.RecurringRepository, payments Sender, contacts *ContactService, clock ports.Clock, logger logrus.FieldLogger) *RecurringService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &RecurringService{
		repo:     repo,
		payments: payments,
		contacts: contacts,
		clock:    clock,
		logger:   logger.WithField("component", "recurring"),
	}
}

func (s *RecurringService) Create(ctx context.Context, cmd CreateRecurringCommand) (domain.RecurringPayment, error) {
	transfer := domain.Transfer{Recipient: cmd.Recipient, Amount: cmd.Amount, Token: cmd.Token}
	if err := transfer.Validate(); err != nil {
		return domain.RecurringPayment{}, err
	}
	if _, err := s.contacts.Resolve(ctx, cmd.Recipient); err != nil {
		return domain.RecurringPayment{}, err
	}

	schedule, err := parseSchedule(cmd.Schedule)
	if err != nil {
		return domain.RecurringPayment{}, err
	}

	now := s.clock.Now().UTC()
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = fmt.Sprintf("%s to %s", cmd.Amount, cmd.Recipient)
	}

	payment := domain.RecurringPayment{
		ID:        domain.RecurringID(uuid.NewString()),
		Name:      name,
		Recipient: strings.TrimSpace(cmd.Recipient),
		Amount:    new(big.Int).Set(cmd.Amount),
		Token:     cmd.Token,
		Schedule:  strings.TrimSpace(cmd.Schedule),
		Active:    true,
		CreatedAt: now,
		NextRunAt: schedule.Next(now).UTC(),
	}

	if err := s.repo.Save(ctx, payment); err != nil {
		return domain.RecurringPayment{}, fmt.Errorf("save recurring payment: %w", err)
	}

	return payment, nil
}

// List returns payments ordered by next run, inactive ones last.
func (s *RecurringService) List(ctx context.Context) ([]domain.RecurringPayment, error) {
	payments, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring payments: %w", err)
	}

	sort.SliceStable(payments, func(i, j int) bool {
		if payments[i].Active != payments[j].Active {
			return payments[i].Active
		}
		return payments[i].NextRunAt.Before(payments[j].NextRunAt)
	})

	return payments, nil
}

func (s *RecurringService) Cancel(ctx context.Context, id domain.RecurringID) error {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get recurring payment: %w", err)
	}

	payment.Active = false
	payment.NextRunAt = time.Time{}

	if err := s.repo.Save(ctx, payment); err != nil {
		return fmt.Errorf("save recurring payment: %w", err)
	}

	return nil
}

// RunDue submits every payment whose next run has passed. A failed payment is
// recorded on the payment and does not stop the others.
func (s *RecurringService) RunDue(ctx context.Context) (RunReport, error) {
	payments, err := s.repo.List(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("list recurring payments: %w", err)
	}

	now := s.clock.Now().UTC()
	var report RunReport
	var saveErrs error
	for _, payment := range payments {
		if !payment.Due(now) {
			continue
		}
		report.Due++

		log := s.logger.WithFields(logrus.Fields{"recurring_id": payment.ID, "name": payment.Name})
		result, sendErr := s.payments.Send(ctx, []domain.Transfer{payment.Transfer()}, SendOptions{Note: "recurring: " + payment.Name})

		payment.LastRunAt = now
		if sendErr != nil {
			report.Failed++
			payment.LastError = sendErr.Error()
			log.WithError(sendErr).Warn("recurring payment failed")
		} else {
			report.Succeeded++
			payment.LastError = ""
			payment.LastUserOpHash = result.UserOpHash.Hex()
			log.WithField("user_op_hash", payment.LastUserOpHash).Info("recurring payment submitted")
		}

		// A failed run waits for the next slot rather than retrying in a tight loop.
		if schedule, err := parseSchedule(payment.Schedule); err == nil {
			payment.NextRunAt = schedule.Next(now).UTC()
		} else {
			payment.Active = false
			payment.NextRunAt = time.Time{}
			payment.LastError = err.Error()
		}

		if err := s.repo.Save(ctx, payment); err != nil {
			saveErrs = errors.Join(saveErrs, fmt.Errorf("save recurring payment %s: %w", payment.ID, err))
		}
	}

	return report, saveErrs
}

// Run checks for due payments every interval until ctx ends. beforeTick, when
// set, runs first on each tick.
func (s *RecurringService) Run(ctx context.Context, interval time.Duration, beforeTick func(context.Context)) error {
	if interval < time.Second {
		interval = time.Second
	}

	scheduler := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger{logger: s.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})),
	)

	tick := func() {
		if beforeTick != nil {
			beforeTick(ctx)
		}
		report, err := s.RunDue(ctx)
		if err != nil {
			s.logger.WithError(err).Error("recurring run")
		}
		if report.Due > 0 {
			s.logger.WithFields(logrus.Fields{
				"due":       report.Due,
				"succeeded": report.Succeeded,
				"failed":    report.Failed,
			}).Info("recurring run complete")
		}
	}

	if _, err := scheduler.AddFunc("@every "+interval.String(), tick); err != nil {
		return fmt.Errorf("schedule recurring run: %w", err)
	}

	tick()
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()

	return nil
}

func parseSchedule(raw string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidSchedule, raw, err)
	}
	return schedule, nil
}

// cronLogger routes cron's internal logging to logrus.
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
