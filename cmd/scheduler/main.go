package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segara/lending-engine/internal/config"
	"github.com/segara/lending-engine/internal/repository"
	"github.com/segara/lending-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zap.L().Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repaymentRepo := repository.NewRepaymentRepository(db)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zap.L().Fatal("Invalid scheduler timezone", zap.Error(err))
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithLocation(location))

	setupCronJobs(c, cfg, repaymentRepo)

	c.Start()
	zap.L().Info("Scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("Shutting down scheduler...")
	<-c.Stop().Done()
	zap.L().Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, repaymentRepo repository.RepaymentRepository) {
	// Daily overdue report (runs at midnight)
	_, err := c.AddFunc("0 0 * * *", func() {
		reportOverdueRepayments(repaymentRepo)
	})
	if err != nil {
		zap.L().Error("Failed to schedule overdue report job", zap.Error(err))
	}

	// Daily payment reminder sweep (runs at 9 AM)
	_, err = c.AddFunc("0 9 * * *", func() {
		sendPaymentReminders(repaymentRepo, cfg.Scheduler.ReminderDays)
	})
	if err != nil {
		zap.L().Error("Failed to schedule payment reminder job", zap.Error(err))
	}

	zap.L().Info("Cron jobs scheduled")
}

// reportOverdueRepayments logs every pending installment past its due
// date. Installment state is never touched; settlement happens only
// through payments.
func reportOverdueRepayments(repo repository.RepaymentRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	overdue, err := repo.ListOverdue(ctx, time.Now())
	if err != nil {
		zap.L().Error("Overdue report failed", zap.Error(err))
		return
	}

	for _, r := range overdue {
		zap.L().Warn("repayment overdue",
			zap.String("repayment_id", r.ID.String()),
			zap.String("loan_id", r.LoanID.String()),
			zap.String("amount", r.Amount.StringFixed(2)),
			zap.Time("due_date", r.DueDate),
		)
	}

	zap.L().Info("Overdue report finished", zap.Int("count", len(overdue)))
}

// sendPaymentReminders logs installments coming due within the reminder
// window. TODO: deliver reminders through a notification channel once one
// exists; for now operators consume the log stream.
func sendPaymentReminders(repo repository.RepaymentRepository, reminderDays int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	upcoming, err := repo.ListDueWithin(ctx, now, now.AddDate(0, 0, reminderDays))
	if err != nil {
		zap.L().Error("Reminder sweep failed", zap.Error(err))
		return
	}

	for _, r := range upcoming {
		zap.L().Info("payment due soon",
			zap.String("repayment_id", r.ID.String()),
			zap.String("loan_id", r.LoanID.String()),
			zap.String("amount", r.Amount.StringFixed(2)),
			zap.Time("due_date", r.DueDate),
		)
	}

	zap.L().Info("Reminder sweep finished", zap.Int("count", len(upcoming)))
}
