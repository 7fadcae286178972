package tablecheck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	yearQuarter = regexp.MustCompile(`(?i)^(\d{4})[\s\-/]*q([1-4])$`)
	quarterYear = regexp.MustCompile(`(?i)^q([1-4])[\s\-/]*(?:fy)?\s*(\d{4})$`)
	yearHalf    = regexp.MustCompile(`(?i)^(\d{4})[\s\-/]*h([12])$`)
	halfYear    = regexp.MustCompile(`(?i)^h([12])[\s\-/]*(?:fy)?\s*(\d{4})$`)
	yearOnly    = regexp.MustCompile(`(?i)^(?:fy\s*)?(\d{4})$`)
)

// PeriodEnd 返回 Tentative Date 覆盖区间的最后一天 (UTC)
// 支持 "2026 Q3"、"Q3 2026"、"H1 2026"、"2026" 以及 dateparse 能识别的具体日期
func PeriodEnd(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if m := yearQuarter.FindStringSubmatch(s); m != nil {
		return lastDayOf(m[1], m[2], 3)
	}
	if m := quarterYear.FindStringSubmatch(s); m != nil {
		return lastDayOf(m[2], m[1], 3)
	}
	if m := yearHalf.FindStringSubmatch(s); m != nil {
		return lastDayOf(m[1], m[2], 6)
	}
	if m := halfYear.FindStringSubmatch(s); m != nil {
		return lastDayOf(m[2], m[1], 6)
	}
	if m := yearOnly.FindStringSubmatch(s); m != nil {
		return lastDayOf(m[1], "1", 12)
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(t), nil
}

// lastDayOf 第 n 个长度为 months 的区间的最后一天
func lastDayOf(year, n string, months int) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	idx, err := strconv.Atoi(n)
	if err != nil {
		return time.Time{}, err
	}
	// 下一区间首月的第 0 天即本区间最后一天
	return time.Date(y, time.Month(idx*months+1), 0, 0, 0, 0, 0, time.UTC), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
