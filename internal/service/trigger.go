package service

import (
	"log"
	"time"
)

// Domain 标识触发重算的活动领域
type Domain string

const (
	DomainHabits     Domain = "habits"
	DomainMeditation Domain = "meditation"
	DomainWorkouts   Domain = "workouts"
	DomainNutrition  Domain = "nutrition"
)

// ActivityTrigger 由各领域服务在写入提交后显式调用，通知汇总层重算 (user, date)
type ActivityTrigger interface {
	OnActivityWritten(userID uint, date time.Time, domain Domain) error
}

type noopTrigger struct{}

func (noopTrigger) OnActivityWritten(uint, time.Time, Domain) error { return nil }

func triggerOrNoop(trigger ActivityTrigger) ActivityTrigger {
	if trigger == nil {
		return noopTrigger{}
	}
	return trigger
}

// notifyActivity 在写入提交后通知汇总层；重算失败只记录日志，不回滚已提交的写入
func notifyActivity(trigger ActivityTrigger, userID uint, date time.Time, domain Domain) {
	if err := trigger.OnActivityWritten(userID, date, domain); err != nil {
		log.Printf("[trigger] notify user=%d date=%s domain=%s failed: %v", userID, normalizeToDate(date).Format(DateLayout), domain, err)
	}
}
