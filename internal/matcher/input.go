package matcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/fleetops-dev/duty-roster/backend/internal/prediction"
	"github.com/fleetops-dev/duty-roster/backend/internal/repository"
)

// BuildInput 从数据库和预测服务装配一次匹配需要的全部输入。
// 待排的范围是从 now 起一年内还没有有效分配的任务。
// 预测服务失败时不中断：归属分置空让打分退化成星期亲和分，
// 置信度统一按 1 处理，保证没人因为缺少预测数据被错误排除
func BuildInput(ctx context.Context, repo *repository.Repository, pc *prediction.Client, now time.Time, opts domain.MatchOptions) (*Input, error) {
	drivers, err := repo.GetAllDrivers()
	if err != nil {
		return nil, err
	}

	prior, err := repo.GetAllAssignments()
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]bool)
	for _, a := range prior {
		if a.IsActive {
			assigned[a.SubjectID] = true
		}
	}

	all, err := repo.GetSubjectsInRange(now, now.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	subjects := make([]domain.DutySubject, 0, len(all))
	for _, s := range all {
		if !assigned[s.ID] {
			subjects = append(subjects, s)
		}
	}

	rules, err := repo.GetAllProtectedRules()
	if err != nil {
		return nil, err
	}

	unavailable, err := repo.GetAllUnavailableDates()
	if err != nil {
		return nil, err
	}

	in := &Input{
		Drivers:          drivers,
		Subjects:         subjects,
		PriorAssignments: prior,
		ProtectedRules:   rules,
		UnavailableDates: unavailable,
		Now:              now,
		Options:          opts,
	}

	driverIDs := make([]int64, 0, len(drivers))
	for _, d := range drivers {
		driverIDs = append(driverIDs, d.ID)
	}
	slotKeySet := make(map[string]bool)
	slotKeys := make([]string, 0)
	for i := range subjects {
		key := subjects[i].SlotKey()
		if !slotKeySet[key] {
			slotKeySet[key] = true
			slotKeys = append(slotKeys, key)
		}
	}

	batch, err := pc.FetchBatch(ctx, driverIDs, slotKeys)
	if err != nil {
		slog.Warn("预测服务不可用，本次匹配退化为星期亲和分", "error", err)
		in.OwnershipScores = nil
		in.PatternConfidence = make(map[int64]float64, len(drivers))
		for _, d := range drivers {
			in.PatternConfidence[d.ID] = 1
		}
		return in, nil
	}

	in.OwnershipScores = batch.Ownership
	in.PatternConfidence = batch.Confidence
	return in, nil
}
