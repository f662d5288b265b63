package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubjectFromOccurrence(t *testing.T) {
	occ := DutyOccurrence{
		OperatorID:   "op-1",
		TemplateID:   7,
		StartTime:    time.Date(2026, 3, 9, 6, 0, 0, 0, time.Local),
		EndTime:      time.Date(2026, 3, 9, 14, 0, 0, 0, time.Local),
		DutyClass:    DutyClassA,
		PatternGroup: PatternGroupSunWed,
		CycleID:      "cycle-202603",
	}

	t.Run("同一模板不同日期的发车 id 互不相同", func(t *testing.T) {
		first := SubjectFromOccurrence(&occ)

		later := occ
		later.StartTime = occ.StartTime.AddDate(0, 0, 7)
		later.EndTime = occ.EndTime.AddDate(0, 0, 7)
		second := SubjectFromOccurrence(&later)

		require.Equal(t, "occ:op-1:7:20260309", first.ID)
		require.NotEqual(t, first.ID, second.ID)
	})

	t.Run("相同输入生成相同 id", func(t *testing.T) {
		require.Equal(t, SubjectFromOccurrence(&occ).ID, SubjectFromOccurrence(&occ).ID)
	})

	t.Run("发车记录不带冲突键", func(t *testing.T) {
		subject := SubjectFromOccurrence(&occ)
		require.Empty(t, subject.ConflictKey)
		require.Equal(t, 8.0, subject.DurationHours)
	})
}

func TestSubjectFromLegacyBlock(t *testing.T) {
	block := LegacyBlock{
		ExternalID:   "ext-42",
		StartTime:    time.Date(2026, 3, 9, 6, 0, 0, 0, time.Local),
		EndTime:      time.Date(2026, 3, 9, 10, 30, 0, 0, time.Local),
		DutyClass:    DutyClassB,
		PatternGroup: PatternGroupWedSat,
		CycleID:      "cycle-202603",
	}

	subject := SubjectFromLegacyBlock(&block)
	require.Equal(t, "block:ext-42", subject.ID)
	// 旧 block 的分配通道是共享槽位，冲突键必须保留
	require.Equal(t, "ext-42", subject.ConflictKey)
	require.Equal(t, 4.5, subject.DurationHours)
}
