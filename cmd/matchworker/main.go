package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/compliance"
	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/fleetops-dev/duty-roster/backend/internal/matcher"
	"github.com/fleetops-dev/duty-roster/backend/internal/prediction"
	"github.com/fleetops-dev/duty-roster/backend/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", slog.String("error", err.Error()))
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancelPing()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", slog.String("error", err.Error()))
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	/**********************************************
	 * 创建匹配器和预测客户端
	 **********************************************/
	validator, err := compliance.NewValidator(cfg)
	if err != nil {
		logger.Error("无法创建合规校验器", slog.String("error", err.Error()))
		return
	}
	m := matcher.New(validator, cfg)
	pc := prediction.NewClient(cfg, rdb)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 声明队列，匹配任务从 match_queue 进，报告邮件从 email_queue 出
	for _, queue := range []string{"match_queue", "email_queue"} {
		if _, err := ch.QueueDeclare(
			queue,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			logger.Error("无法声明队列", slog.String("queue", queue), slog.String("error", err.Error()))
			return
		}
	}

	// 一次只处理一个匹配任务，匹配要读全量历史，不适合并发跑
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置 Qos", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		"match_queue",
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				logger.Info("收到匹配任务", slog.String("message", string(msg.Body)))

				task := domain.MatchTaskMessage{}
				if err := json.Unmarshal(msg.Body, &task); err != nil {
					logger.Error("匹配任务反序列化失败", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				if err := handleTask(ctx, cfg, repo, m, pc, ch, &task); err != nil {
					logger.Error("匹配任务处理失败", slog.Int64("runID", task.RunID), slog.String("error", err.Error()))
					// 失败原因已经写进运行记录，消息不再重投
					if failErr := repo.FailMatchRun(task.RunID, err.Error()); failErr != nil {
						logger.Error("无法标记匹配运行为失败", slog.Int64("runID", task.RunID), slog.String("error", failErr.Error()))
					}
					_ = msg.Ack(false)
					continue
				}

				logger.Info("匹配任务处理完成", slog.Int64("runID", task.RunID))
				_ = msg.Ack(false)
			}
		}
	}()

	logger.Info("等待匹配任务...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 match worker...")
	cancel()
	wg.Wait()
	slog.Info("match worker 已成功关闭")
}

// handleTask 执行一次完整的匹配运行：装载输入、跑匹配、
// 落库每条分配、保存结果汇总，最后给发起人投递报告邮件
func handleTask(ctx context.Context, cfg *config.Config, repo *repository.Repository, m *matcher.Matcher, pc *prediction.Client, ch *amqp.Channel, task *domain.MatchTaskMessage) error {
	if err := repo.MarkMatchRunRunning(task.RunID); err != nil {
		return fmt.Errorf("无法标记匹配运行为进行中: %w", err)
	}

	now := time.Now()
	in, err := matcher.BuildInput(ctx, repo, pc, now, task.Options)
	if err != nil {
		return fmt.Errorf("无法装载匹配输入: %w", err)
	}

	result, err := m.Match(ctx, in)
	if err != nil {
		return fmt.Errorf("匹配执行失败: %w", err)
	}

	// 分配结果落库时需要任务快照，从输入里按 ID 找回来
	subjects := make(map[string]*domain.DutySubject, len(in.Subjects))
	for i := range in.Subjects {
		subjects[in.Subjects[i].ID] = &in.Subjects[i]
	}

	for _, assigned := range result.Assigned {
		subject, ok := subjects[assigned.SubjectID]
		if !ok {
			return fmt.Errorf("匹配结果中出现未知任务: %s", assigned.SubjectID)
		}

		if err := repo.ReplaceActiveAssignment(newAssignment(subject, assigned, now)); err != nil {
			return fmt.Errorf("无法保存分配记录: %w", err)
		}
	}

	if err := repo.FinishMatchRun(task.RunID, result); err != nil {
		return fmt.Errorf("无法保存匹配结果: %w", err)
	}

	// 报告邮件投递失败只记日志，匹配本身已经成功
	if err := publishReport(ctx, cfg, repo, ch, task.RunID, result); err != nil {
		slog.Error("无法投递匹配报告邮件", slog.Int64("runID", task.RunID), slog.String("error", err.Error()))
	}

	return nil
}

// newAssignment 把匹配结果和任务快照拼成落库用的分配记录。
// AssignedAt 用本次运行的时钟，不能留零值
func newAssignment(subject *domain.DutySubject, assigned domain.AssignedSubject, now time.Time) *domain.Assignment {
	status := domain.ValidationStatusValid
	if len(assigned.Warnings) > 0 {
		status = domain.ValidationStatusWarning
	}

	return &domain.Assignment{
		DriverID:         assigned.DriverID,
		SubjectID:        subject.ID,
		SubjectStart:     subject.StartTime,
		SubjectEnd:       subject.EndTime,
		DurationHours:    subject.DurationHours,
		DutyClass:        subject.DutyClass,
		IsActive:         true,
		ValidationStatus: string(status),
		AssignedAt:       now,
	}
}

func publishReport(ctx context.Context, cfg *config.Config, repo *repository.Repository, ch *amqp.Channel, runID int64, result *domain.MatchResult) error {
	run, err := repo.GetMatchRunByID(runID)
	if err != nil {
		return err
	}
	creator, err := repo.GetUserByID(run.CreatedBy)
	if err != nil {
		return err
	}

	mailMessage := domain.MailMessage{
		Type: "match_report",
		To:   creator.Email,
		Data: domain.MatchReportMailData{
			FullName:        creator.FullName,
			RunID:           runID,
			AssignedCount:   result.Stats.AssignedCount,
			UnassignedCount: result.Stats.UnassignedCount,
			WarningCount:    result.Stats.WarningCount,
		},
	}
	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	)
}
