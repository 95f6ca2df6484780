package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Subscription carries the plan and the per-user monthly usage window.
type Subscription struct {
	Plan           string    `json:"plan"`
	QueryLimit     int       `json:"query_limit"`
	MonthlyQueries int       `json:"monthly_queries"`
	TotalQueries   int       `json:"total_queries"`
	LastResetDate  time.Time `json:"last_reset_date"`
}

type User struct {
	ID             string       `json:"id"`
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	HashedPassword string       `json:"-"` // Not exposed
	Role           string       `json:"role"`
	Subscription   Subscription `json:"subscription"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
