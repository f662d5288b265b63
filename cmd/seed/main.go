package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/repository"
	"github.com/fleetops-dev/duty-roster/backend/internal/seed"
	"github.com/fleetops-dev/duty-roster/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var days int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机司机, 3: 插入随机任务, 4: 导入历史分配 CSV)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&days, "days", 14, "随机任务覆盖从今天起的天数")
	flag.StringVar(&file, "file", "", "历史分配 CSV 文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机用户", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateUser(user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入用户成功", slog.Int("count", n-cnt))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的司机数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				driver := utils.GenerateRandomDriver()
				if err := repo.CreateDriver(driver); err != nil {
					slog.Error("无法插入司机", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入司机成功", slog.Int("count", n-cnt))
		}
	case 3:
		if n <= 0 || days <= 0 {
			slog.Error("请输入合法的任务数量和天数")
		} else {
			cnt := 0
			today := time.Now()
			// 把 n 个任务摊到未来 days 天里
			for i := 0; i < n; i++ {
				day := today.AddDate(0, 0, i%days)
				subject := utils.GenerateRandomSubject(day)
				if err := repo.UpsertSubject(subject); err != nil {
					slog.Error("无法插入任务", slog.String("error", err.Error()))
					continue
				}

				cnt++
			}

			slog.Info("插入任务成功", slog.Int("count", cnt))
		}
	case 4:
		if file == "" {
			slog.Error("请用 -file 指定历史分配 CSV 文件")
			return
		}

		seed.ImportHistoricalAssignments(repo, file)
	default:
		slog.Error("指定的操作非法")
	}
}
