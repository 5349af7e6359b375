package domain

import "time"

// TimeLayout is the fixed-width UTC encoding used for stored timestamps so
// that text comparison in SQL matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Stakeholder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Commitment struct {
	ID              string           `json:"id"`
	Deliverable     string           `json:"deliverable"`
	StakeholderID   string           `json:"stakeholder_id"`
	StakeholderName string           `json:"stakeholder_name,omitempty"`
	DueDate         time.Time        `json:"due_date"`
	DueTime         *string          `json:"due_time,omitempty"`
	Status          CommitmentStatus `json:"status"`
	MarkedAtRiskAt  *time.Time       `json:"marked_at_risk_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CompletedOnTime *bool            `json:"completed_on_time,omitempty"`
	AtRiskRecovered bool             `json:"at_risk_recovered"`
	AbandonedAt     *time.Time       `json:"abandoned_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// DueAt is the instant a commitment falls due: the due date plus the optional
// HH:MM due time, or the last second of the due date when no time is set.
func (c Commitment) DueAt() time.Time {
	d := c.DueDate.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if c.DueTime != nil {
		if t, err := time.Parse("15:04", *c.DueTime); err == nil {
			return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		}
	}
	return day.Add(24*time.Hour - time.Second)
}

// WasAtRisk reports whether the commitment has ever been marked at risk.
func (c Commitment) WasAtRisk() bool {
	return c.MarkedAtRiskAt != nil
}

type Task struct {
	ID                  string         `json:"id"`
	CommitmentID        string         `json:"commitment_id"`
	Title               string         `json:"title"`
	Scope               string         `json:"scope,omitempty"`
	Status              TaskStatus     `json:"status"`
	Position            int            `json:"position"`
	EstimatedHours      *float64       `json:"estimated_hours,omitempty"`
	ActualHoursCategory *HoursCategory `json:"actual_hours_category,omitempty"`
	IsNotificationTask  bool           `json:"is_notification_task"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
}

// TaskHistoryEntry is an immutable record of one task lifecycle event.
type TaskHistoryEntry struct {
	ID                  int64          `json:"id"`
	TaskID              string         `json:"task_id"`
	CommitmentID        string         `json:"commitment_id"`
	EventType           HistoryEvent   `json:"event_type"`
	PreviousStatus      *TaskStatus    `json:"previous_status,omitempty"`
	NewStatus           TaskStatus     `json:"new_status"`
	EstimatedHours      *float64       `json:"estimated_hours,omitempty"`
	ActualHoursCategory *HoursCategory `json:"actual_hours_category,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

type CleanupPlan struct {
	ID                 string     `json:"id"`
	CommitmentID       string     `json:"commitment_id"`
	Status             PlanStatus `json:"status"`
	NotificationTaskID *string    `json:"notification_task_id,omitempty"`
	AtRiskReason       string     `json:"at_risk_reason,omitempty"`
	SkippedReason      *string    `json:"skipped_reason,omitempty"`
	SkippedAt          *time.Time `json:"skipped_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Event struct {
	ID         int64     `json:"id"`
	TS         time.Time `json:"ts"`
	Type       string    `json:"type"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id,omitempty"`
	Payload    string    `json:"payload_json"`
}

// IntegrityMetrics is the computed reliability picture handed to the
// dashboard and the assistant tooling.
type IntegrityMetrics struct {
	OnTimeRate             float64             `json:"on_time_rate"`
	NotificationTimeliness float64             `json:"notification_timeliness"`
	CleanupCompletionRate  float64             `json:"cleanup_completion_rate"`
	EstimationAccuracy     float64             `json:"estimation_accuracy"`
	CurrentStreakWeeks     int                 `json:"current_streak_weeks"`
	Score                  float64             `json:"score"`
	LetterGrade            string              `json:"letter_grade"`
	Trends                 map[Component]Trend `json:"trends,omitempty"`
}
