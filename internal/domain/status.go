package domain

// CommitmentStatus is the lifecycle state of a commitment.
type CommitmentStatus string

const (
	CommitmentPending    CommitmentStatus = "pending"
	CommitmentInProgress CommitmentStatus = "in_progress"
	CommitmentAtRisk     CommitmentStatus = "at_risk"
	CommitmentCompleted  CommitmentStatus = "completed"
	CommitmentAbandoned  CommitmentStatus = "abandoned"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskSkipped    TaskStatus = "skipped"
)

// Open reports whether the task still needs work.
func (s TaskStatus) Open() bool {
	return s == TaskPending || s == TaskInProgress
}

type PlanStatus string

const (
	PlanPlanned    PlanStatus = "planned"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanSkipped    PlanStatus = "skipped"
	PlanCancelled  PlanStatus = "cancelled"
)

// Open reports whether the plan is still being worked.
func (s PlanStatus) Open() bool {
	return s == PlanPlanned || s == PlanInProgress
}

type HistoryEvent string

const (
	EventCreated   HistoryEvent = "created"
	EventStarted   HistoryEvent = "started"
	EventCompleted HistoryEvent = "completed"
	EventSkipped   HistoryEvent = "skipped"
)

// HoursCategory buckets how long a task actually took relative to its estimate.
type HoursCategory string

const (
	HoursMuchShorter HoursCategory = "much_shorter"
	HoursShorter     HoursCategory = "shorter"
	HoursOnTarget    HoursCategory = "on_target"
	HoursLonger      HoursCategory = "longer"
	HoursMuchLonger  HoursCategory = "much_longer"
)

var hoursMultipliers = map[HoursCategory]float64{
	HoursMuchShorter: 0.25,
	HoursShorter:     0.675,
	HoursOnTarget:    1.0,
	HoursLonger:      1.325,
	HoursMuchLonger:  2.0,
}

// Multiplier returns the actual/estimate ratio represented by the category.
func (h HoursCategory) Multiplier() (float64, bool) {
	m, ok := hoursMultipliers[h]
	return m, ok
}

func (h HoursCategory) Valid() bool {
	_, ok := hoursMultipliers[h]
	return ok
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Component names one of the four scored rates.
type Component string

const (
	ComponentOnTime       Component = "on_time_rate"
	ComponentNotification Component = "notification_timeliness"
	ComponentCleanup      Component = "cleanup_completion_rate"
	ComponentEstimation   Component = "estimation_accuracy"
)

// Components lists the scored rates in weight order.
var Components = []Component{ComponentOnTime, ComponentNotification, ComponentCleanup, ComponentEstimation}
