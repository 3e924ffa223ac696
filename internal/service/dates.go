package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange 在区间起点晚于终点时返回
	ErrInvalidRange = errors.New("invalid range: start after end")
	// ErrRangeTooLarge 在区间天数超过上限时返回
	ErrRangeTooLarge = errors.New("range too large")
)

const DateLayout = "2006-01-02"

// normalizeToDate 把时间截断为 UTC 零点，所有日期列都以此形式存储
func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD 格式的日期
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// Today 返回指定时区下的当天日期
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return normalizeToDate(now.In(loc))
}

// validateRange 校验闭区间并返回天数，maxDays<=0 表示不限制
func validateRange(start, end time.Time, maxDays int) (time.Time, time.Time, int, error) {
	start = normalizeToDate(start)
	end = normalizeToDate(end)
	if start.After(end) {
		return start, end, 0, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(DateLayout), end.Format(DateLayout))
	}

	days := daysBetween(start, end) + 1
	if maxDays > 0 && days > maxDays {
		return start, end, days, fmt.Errorf("%w: %d days exceeds %d", ErrRangeTooLarge, days, maxDays)
	}
	return start, end, days, nil
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// eachDay 按升序遍历闭区间内的每一天，回调返回错误时立即停止
func eachDay(start, end time.Time, fn func(day time.Time) error) error {
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := fn(day); err != nil {
			return err
		}
	}
	return nil
}
