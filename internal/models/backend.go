package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleMember GroupRole = "member"
)

// Row is implemented by every user-owned table of the data backend.
type Row interface {
	TableName() string
}

type Course struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID     string    `gorm:"not null;index"              json:"user_id"`
	CourseCode string    `gorm:"not null"                    json:"course_code"`
	CourseName string    `gorm:"not null"                    json:"course_name"`
	Instructor string    `gorm:"default:''"                  json:"instructor"`
	Credits    int       `gorm:"not null;default:0"          json:"credits"`
	Color      string    `gorm:"default:''"                  json:"color"`
	CreatedAt  time.Time `                                   json:"created_at"`
	UpdatedAt  time.Time `                                   json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

type Assignment struct {
	ID             uuid.UUID        `gorm:"type:varchar(36);primarykey"  json:"id"`
	UserID         string           `gorm:"not null;index"               json:"user_id"`
	CourseID       *uuid.UUID       `gorm:"type:varchar(36)"             json:"course_id"`
	Course         *Course          `gorm:"foreignKey:CourseID"          json:"course,omitempty"`
	Title          string           `gorm:"not null"                     json:"title"`
	Description    string           `gorm:"default:''"                   json:"description"`
	DueDate        time.Time        `gorm:"not null"                     json:"due_date"`
	Status         AssignmentStatus `gorm:"type:varchar(16);not null"    json:"status"`
	Priority       Priority         `gorm:"type:varchar(16);not null"    json:"priority"`
	EstimatedHours float64          `gorm:"not null;default:0"           json:"estimated_hours"`
	CreatedAt      time.Time        `                                    json:"created_at"`
	UpdatedAt      time.Time        `                                    json:"updated_at"`
}

func (Assignment) TableName() string { return "assignments" }

type PersonalTask struct {
	ID          uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID      string     `gorm:"not null;index"              json:"user_id"`
	Title       string     `gorm:"not null"                    json:"title"`
	Description string     `gorm:"default:''"                  json:"description"`
	DueDate     *time.Time `                                   json:"due_date"`
	Priority    Priority   `gorm:"type:varchar(16);not null"   json:"priority"`
	Completed   bool       `gorm:"not null;default:false"      json:"completed"`
	CreatedAt   time.Time  `                                   json:"created_at"`
	UpdatedAt   time.Time  `                                   json:"updated_at"`
}

func (PersonalTask) TableName() string { return "personal_tasks" }

type StudyPlan struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    string    `gorm:"not null;index"              json:"user_id"`
	Title     string    `gorm:"not null"                    json:"title"`
	StartDate time.Time `gorm:"not null"                    json:"start_date"`
	EndDate   time.Time `gorm:"not null"                    json:"end_date"`
	IsActive  bool      `gorm:"not null;default:true"       json:"is_active"`
	CreatedAt time.Time `                                   json:"created_at"`
}

func (StudyPlan) TableName() string { return "study_plans" }

type StudySession struct {
	ID              uuid.UUID     `gorm:"type:varchar(36);primarykey" json:"id"`
	StudyPlanID     uuid.UUID     `gorm:"type:varchar(36);not null"   json:"study_plan_id"`
	AssignmentID    *uuid.UUID    `gorm:"type:varchar(36)"            json:"assignment_id"`
	Assignment      *Assignment   `gorm:"foreignKey:AssignmentID"     json:"assignment,omitempty"`
	PersonalTaskID  *uuid.UUID    `gorm:"type:varchar(36)"            json:"personal_task_id"`
	PersonalTask    *PersonalTask `gorm:"foreignKey:PersonalTaskID"   json:"personal_task,omitempty"`
	ScheduledDate   time.Time     `gorm:"not null"                    json:"scheduled_date"`
	DurationMinutes int           `gorm:"not null;default:0"          json:"duration_minutes"`
	Completed       bool          `gorm:"not null;default:false"      json:"completed"`
	CreatedAt       time.Time     `                                   json:"created_at"`
}

func (StudySession) TableName() string { return "study_sessions" }

type Notification struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    string    `gorm:"not null;index"              json:"user_id"`
	Title     string    `gorm:"not null"                    json:"title"`
	Message   string    `gorm:"not null"                    json:"message"`
	Type      string    `gorm:"type:varchar(32);not null"   json:"type"`
	IsRead    bool      `gorm:"not null;default:false"      json:"is_read"`
	CreatedAt time.Time `                                   json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// ProgressLog has one row per user and calendar day; LogDate is YYYY-MM-DD.
type ProgressLog struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primarykey"                   json:"id"`
	UserID         string    `gorm:"not null;uniqueIndex:idx_progress_user_date"   json:"user_id"`
	LogDate        string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_progress_user_date" json:"log_date"`
	HoursStudied   float64   `gorm:"not null;default:0"                            json:"hours_studied"`
	TasksCompleted int       `gorm:"not null;default:0"                            json:"tasks_completed"`
	Mood           string    `gorm:"default:''"                                    json:"mood"`
	Notes          string    `gorm:"default:''"                                    json:"notes"`
	UpdatedAt      time.Time `                                                     json:"updated_at"`
}

func (ProgressLog) TableName() string { return "progress_logs" }

type StressIndicator struct {
	ID            uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID        string    `gorm:"not null;index"              json:"user_id"`
	WeekStart     string    `gorm:"type:varchar(10);not null"   json:"week_start"`
	StressLevel   int       `gorm:"not null"                    json:"stress_level"`
	WorkloadScore float64   `gorm:"not null;default:0"          json:"workload_score"`
	Notes         string    `gorm:"default:''"                  json:"notes"`
}

func (StressIndicator) TableName() string { return "stress_indicators" }

type StudyGroup struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primarykey"   json:"id"`
	Name        string    `gorm:"not null"                      json:"name"`
	Description string    `gorm:"default:''"                    json:"description"`
	InviteCode  string    `gorm:"type:varchar(8);not null;uniqueIndex" json:"invite_code"`
	CreatedBy   string    `gorm:"not null"                      json:"created_by"`
	CreatedAt   time.Time `                                     json:"created_at"`
}

func (StudyGroup) TableName() string { return "study_groups" }

// StudyGroupWithRole is a group as seen by one of its members.
type StudyGroupWithRole struct {
	StudyGroup
	MemberRole GroupRole `json:"member_role"`
}

type GroupMember struct {
	ID       uuid.UUID `gorm:"type:varchar(36);primarykey"                  json:"id"`
	GroupID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID   string    `gorm:"not null;uniqueIndex:idx_group_member"        json:"user_id"`
	Role     GroupRole `gorm:"type:varchar(16);not null"                    json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime"                               json:"joined_at"`
}

func (GroupMember) TableName() string { return "group_members" }

type GroupTask struct {
	ID          uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	GroupID     uuid.UUID  `gorm:"type:varchar(36);not null"   json:"group_id"`
	Title       string     `gorm:"not null"                    json:"title"`
	Description string     `gorm:"default:''"                  json:"description"`
	AssignedTo  *string    `                                   json:"assigned_to"`
	DueDate     *time.Time `                                   json:"due_date"`
	Status      string     `gorm:"type:varchar(16);not null"   json:"status"`
	CreatedAt   time.Time  `                                   json:"created_at"`
}

func (GroupTask) TableName() string { return "group_tasks" }

type DashboardStats struct {
	TodayTasks   int64 `json:"today_tasks"`
	Overdue      int64 `json:"overdue"`
	Upcoming     int64 `json:"upcoming"`
	TotalCourses int64 `json:"total_courses"`
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Course) BeforeCreate(_ *gorm.DB) error          { assignID(&c.ID); return nil }
func (a *Assignment) BeforeCreate(_ *gorm.DB) error      { assignID(&a.ID); return nil }
func (p *PersonalTask) BeforeCreate(_ *gorm.DB) error    { assignID(&p.ID); return nil }
func (s *StudyPlan) BeforeCreate(_ *gorm.DB) error       { assignID(&s.ID); return nil }
func (s *StudySession) BeforeCreate(_ *gorm.DB) error    { assignID(&s.ID); return nil }
func (n *Notification) BeforeCreate(_ *gorm.DB) error    { assignID(&n.ID); return nil }
func (p *ProgressLog) BeforeCreate(_ *gorm.DB) error     { assignID(&p.ID); return nil }
func (s *StressIndicator) BeforeCreate(_ *gorm.DB) error { assignID(&s.ID); return nil }
func (s *StudyGroup) BeforeCreate(_ *gorm.DB) error      { assignID(&s.ID); return nil }
func (g *GroupMember) BeforeCreate(_ *gorm.DB) error     { assignID(&g.ID); return nil }
func (g *GroupTask) BeforeCreate(_ *gorm.DB) error       { assignID(&g.ID); return nil }

// DateWindowParams filters list endpoints; both bounds must be set to apply.
type DateWindowParams struct {
	Start *time.Time `json:"start" validate:"omitempty"`
	End   *time.Time `json:"end"   validate:"omitempty,required_with=Start"`
}

func (p DateWindowParams) Enabled() bool {
	return p.Start != nil && p.End != nil
}

type CourseBody struct {
	CourseCode string `json:"course_code" validate:"required,max=32"`
	CourseName string `json:"course_name" validate:"required,max=128"`
	Instructor string `json:"instructor"  validate:"max=128"`
	Credits    int    `json:"credits"     validate:"gte=0,lte=60"`
	Color      string `json:"color"       validate:"omitempty,hexcolor"`
}

type AssignmentBody struct {
	CourseID       *uuid.UUID       `json:"course_id"       validate:"omitempty"`
	Title          string           `json:"title"           validate:"required,max=200"`
	Description    string           `json:"description"     validate:"max=4000"`
	DueDate        time.Time        `json:"due_date"        validate:"required"`
	Status         AssignmentStatus `json:"status"          validate:"required,oneof=pending in_progress completed"`
	Priority       Priority         `json:"priority"        validate:"required,oneof=low medium high"`
	EstimatedHours float64          `json:"estimated_hours" validate:"gte=0"`
}

type PersonalTaskBody struct {
	Title       string     `json:"title"       validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	DueDate     *time.Time `json:"due_date"    validate:"omitempty"`
	Priority    Priority   `json:"priority"    validate:"required,oneof=low medium high"`
	Completed   bool       `json:"completed"`
}

type StudyPlanBody struct {
	Title     string    `json:"title"      validate:"required,max=200"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date"   validate:"required,gtfield=StartDate"`
}

type StudySessionBody struct {
	AssignmentID    *uuid.UUID `json:"assignment_id"    validate:"omitempty"`
	PersonalTaskID  *uuid.UUID `json:"personal_task_id" validate:"omitempty"`
	ScheduledDate   time.Time  `json:"scheduled_date"   validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"gte=0,lte=1440"`
}

type ProgressLogBody struct {
	LogDate        string  `json:"log_date"        validate:"required,datetime=2006-01-02"`
	HoursStudied   float64 `json:"hours_studied"   validate:"gte=0,lte=24"`
	TasksCompleted int     `json:"tasks_completed" validate:"gte=0"`
	Mood           string  `json:"mood"            validate:"max=32"`
	Notes          string  `json:"notes"           validate:"max=4000"`
}

type StudyGroupBody struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type JoinGroupBody struct {
	InviteCode string `json:"invite_code" validate:"required,len=8,alphanum"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
