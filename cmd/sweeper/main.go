package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/database"
	"github.com/qs3c/billing_go_server/internal/pkg/gateway"
	"github.com/qs3c/billing_go_server/internal/pkg/queue"
	"github.com/qs3c/billing_go_server/internal/repository"
	"github.com/qs3c/billing_go_server/internal/service"
)

var (
	dryRun     = flag.Bool("dry-run", true, "Dry run mode, don't actually update subscriptions or enqueue reminders")
	sweepGrace = flag.Bool("grace", true, "Expire subscriptions whose grace period has run out")
	remindDays = flag.Int("remind", 3, "Enqueue reminders for second installments due within N days (0 disables)")
)

// 由外部调度（cron、CI 定时任务）触发的一次性清扫。
// 宽限期到期的订阅在这里过期，服务自身不跑定时器。
func main() {
	flag.Parse()

	log.Println("Starting billing sweep...")
	log.Printf("Mode: dry-run=%v grace=%v remind=%d", *dryRun, *sweepGrace, *remindDays)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	subRepo := repository.NewSubscriptionRepository(db)
	instRepo := repository.NewInstallmentRepository(db)
	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)

	ctx := context.Background()
	now := time.Now()
	expiredCount := 0
	remindCount := 0

	// 1. 宽限期清扫
	if *sweepGrace {
		if *dryRun {
			subs, err := subRepo.ListExpiredGrace(now)
			if err != nil {
				log.Fatalf("Failed to list expired grace periods: %v", err)
			}
			for _, sub := range subs {
				log.Printf("[dry-run] would expire subscription %d (user %d, grace ended %v)",
					sub.ID, sub.UserID, sub.GracePeriodEnd)
			}
			expiredCount = len(subs)
		} else {
			planRepo := repository.NewPlanRepository(db)
			userRepo := repository.NewUserRepository(db)
			subscriptionService := service.NewSubscriptionService(
				db, subRepo, planRepo, userRepo, gateway.NewClient(&cfg.Gateway), notifyQueue, nil, cfg)
			expiredCount, err = subscriptionService.SweepExpiredGracePeriods(ctx)
			if err != nil {
				log.Fatalf("Sweep failed: %v", err)
			}
		}
	}

	// 2. 二期到期提醒
	if *remindDays > 0 {
		until := now.AddDate(0, 0, *remindDays)
		items, err := instRepo.ListSecondDueWithin(now, until)
		if err != nil {
			log.Fatalf("Failed to list due installments: %v", err)
		}
		for _, inst := range items {
			if *dryRun {
				log.Printf("[dry-run] would remind user %d: installment %d second payment due %v",
					inst.UserID, inst.ID, inst.SecondDueDate)
				remindCount++
				continue
			}
			job := &queue.NotificationJob{
				Type:          queue.NotifySecondDueSoon,
				UserID:        inst.UserID,
				InstallmentID: inst.ID,
				PlanID:        inst.PlanID,
				Amount:        inst.SecondInstallmentAmount,
				DueDate:       inst.SecondDueDate,
			}
			if err := notifyQueue.Push(ctx, job); err != nil {
				log.Printf("Failed to enqueue reminder for installment %d: %v", inst.ID, err)
				continue
			}
			remindCount++
		}
	}

	log.Println("Sweep complete:")
	log.Printf("  Subscriptions expired: %d", expiredCount)
	log.Printf("  Reminders enqueued:    %d", remindCount)
	if *dryRun {
		log.Println("  (dry-run, nothing was changed)")
	}
}
