package service

import (
	"context"
	"fmt"
	"time"

	"problem_solver/internal/domain/model"
	"problem_solver/internal/domain/repository"
)

var planLimits = map[string]int{
	model.PlanFree:       10,
	model.PlanPro:        100,
	model.PlanEnterprise: 1000,
}

// LimitForPlan returns the monthly query limit; unknown plans get the free allowance.
func LimitForPlan(plan string) int {
	if limit, ok := planLimits[plan]; ok {
		return limit
	}
	return planLimits[model.PlanFree]
}

type QuotaStatus struct {
	Plan           string    `json:"plan"`
	Limit          int       `json:"limit"`
	Used           int       `json:"used"`
	Remaining      int       `json:"remaining"`
	TotalQueries   int       `json:"total_queries"`
	LastResetDate  time.Time `json:"last_reset_date"`
	NextResetDate  time.Time `json:"next_reset_date"`
	CanSubmitQuery bool      `json:"can_submit_query"`
}

// QuotaTracker enforces the per-user monthly window. The window is reset
// lazily on admission when the calendar month or year has changed.
type QuotaTracker struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

func NewQuotaTracker(userRepo repository.UserRepository) *QuotaTracker {
	return &QuotaTracker{userRepo: userRepo, now: time.Now}
}

// WithClock replaces the time source.
func (q *QuotaTracker) WithClock(now func() time.Time) *QuotaTracker {
	q.now = now
	return q
}

// CanAdmit applies the lazy reset to user in memory, then reports whether
// another query fits. The reset is persisted by the next RecordUsage.
func (q *QuotaTracker) CanAdmit(user *model.User) bool {
	q.resetIfNewMonth(&user.Subscription)
	return user.Subscription.MonthlyQueries < user.Subscription.QueryLimit
}

// RecordUsage charges one query and persists the subscription.
func (q *QuotaTracker) RecordUsage(ctx context.Context, user *model.User) error {
	q.resetIfNewMonth(&user.Subscription)
	user.Subscription.MonthlyQueries++
	user.Subscription.TotalQueries++
	if err := q.userRepo.UpdateSubscription(ctx, user.ID, user.Subscription); err != nil {
		return fmt.Errorf("failed to record usage for user %s: %w", user.ID, err)
	}
	return nil
}

func (q *QuotaTracker) Status(user *model.User) QuotaStatus {
	admit := q.CanAdmit(user)
	sub := user.Subscription
	remaining := sub.QueryLimit - sub.MonthlyQueries
	if remaining < 0 {
		remaining = 0
	}
	y, m, _ := q.now().Date()
	return QuotaStatus{
		Plan:           sub.Plan,
		Limit:          sub.QueryLimit,
		Used:           sub.MonthlyQueries,
		Remaining:      remaining,
		TotalQueries:   sub.TotalQueries,
		LastResetDate:  sub.LastResetDate,
		NextResetDate:  time.Date(y, m+1, 1, 0, 0, 0, 0, q.now().Location()),
		CanSubmitQuery: admit,
	}
}

func (q *QuotaTracker) resetIfNewMonth(sub *model.Subscription) {
	now := q.now()
	if sub.LastResetDate.Month() != now.Month() || sub.LastResetDate.Year() != now.Year() {
		sub.MonthlyQueries = 0
		sub.LastResetDate = now
	}
}
