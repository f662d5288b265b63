package seed

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/fleetops-dev/duty-roster/backend/internal/repository"
)

// 历史分配 CSV 的固定列顺序。
// 这是开发环境的替身数据源，真实的历史由旧系统一次性迁移
var csvHeaders = []string{"司机姓名", "任务ID", "开始时间", "结束时间", "班别", "模式组", "周期"}

const csvTimeLayout = "2006-01-02 15:04"

// ImportHistoricalAssignments 从 CSV 导入历史分配记录。
// 不认识的司机姓名会自动建档，任务按 id 覆盖写入，
// 分配走和匹配器一样的归档加插入通道
func ImportHistoricalAssignments(r *repository.Repository, path string) {
	file, err := os.Open(path)
	if err != nil {
		slog.Error("打开文件失败", "error", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		slog.Error("读取表头失败", "error", err)
		return
	}
	if len(headers) != len(csvHeaders) {
		slog.Error("表头列数不符", "expected", len(csvHeaders), "got", len(headers))
		return
	}
	for i, header := range headers {
		if header != csvHeaders[i] {
			slog.Error("表头不符", "column", i, "expected", csvHeaders[i], "got", header)
			return
		}
	}

	// 已有司机按姓名索引，避免对每一行都查库
	drivers, err := r.GetAllDrivers()
	if err != nil {
		slog.Error("获取司机列表失败", "error", err)
		return
	}
	driverByName := make(map[string]*domain.Driver, len(drivers))
	for _, d := range drivers {
		driverByName[d.Name] = d
	}

	imported := 0
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("读取文件失败", "error", err)
			return
		}

		startTime, err := time.Parse(csvTimeLayout, row[2])
		if err != nil {
			slog.Error("开始时间格式错误", "value", row[2], "error", err)
			continue
		}
		endTime, err := time.Parse(csvTimeLayout, row[3])
		if err != nil {
			slog.Error("结束时间格式错误", "value", row[3], "error", err)
			continue
		}
		if !endTime.After(startTime) {
			slog.Error("结束时间必须晚于开始时间", "subject", row[1])
			continue
		}

		class := domain.DutyClass(row[4])
		if class != domain.DutyClassA && class != domain.DutyClassB {
			slog.Error("未知的班别", "value", row[4])
			continue
		}

		driver, ok := driverByName[row[0]]
		if !ok {
			driver = &domain.Driver{
				Name:          row[0],
				ContractClass: domain.ContractClassBoth,
				DaysOff:       make([]time.Weekday, 0),
				IsActive:      true,
				LoadEligible:  true,
			}
			if err := r.CreateDriver(driver); err != nil {
				slog.Error("插入司机失败", "name", row[0], "error", err)
				continue
			}
			driverByName[driver.Name] = driver
		}

		subject := &domain.DutySubject{
			ID:            row[1],
			StartTime:     startTime,
			EndTime:       endTime,
			DurationHours: domain.NormalizeHours(endTime.Sub(startTime).Hours()),
			DutyClass:     class,
			PatternGroup:  domain.PatternGroup(row[5]),
			CycleID:       row[6],
		}
		if err := r.UpsertSubject(subject); err != nil {
			slog.Error("写入任务失败", "subject", subject.ID, "error", err)
			continue
		}

		assignment := &domain.Assignment{
			DriverID:         driver.ID,
			SubjectID:        subject.ID,
			SubjectStart:     subject.StartTime,
			SubjectEnd:       subject.EndTime,
			DurationHours:    subject.DurationHours,
			DutyClass:        subject.DutyClass,
			ValidationStatus: string(domain.ValidationStatusValid),
			AssignedAt:       subject.StartTime,
		}
		if err := r.ReplaceActiveAssignment(assignment); err != nil {
			slog.Error("写入分配记录失败", "subject", subject.ID, "error", err)
			continue
		}

		imported++
	}

	slog.Info("历史分配导入完成", "count", imported)
}
