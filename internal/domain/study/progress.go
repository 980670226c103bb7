package study

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/platform/clock"
)

// Progress is the per-participant protocol state. Only the progression
// engine mutates it; Version guards concurrent writers.
type Progress struct {
	UserID        uuid.UUID     `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	CurrentPhase  Phase         `gorm:"not null;index;column:current_phase" json:"current_phase"`
	TrainingDay   int           `gorm:"not null;column:training_day_counter" json:"training_day"`
	BaselineDate  clock.Date    `gorm:"column:baseline_date" json:"baseline_date"`
	Completed     CompletionSet `gorm:"column:completed_activities" json:"completed_activities"`
	AccountActive bool          `gorm:"not null;index;column:account_active" json:"account_active"`
	CompletedFlag bool          `gorm:"not null;column:completed_flag" json:"completed"`
	Version       int64         `gorm:"not null;column:version" json:"-"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (Progress) TableName() string { return "user_progress" }

// NewProgress is the registration-time state.
func NewProgress(userID uuid.UUID) *Progress {
	return &Progress{
		UserID:        userID,
		CurrentPhase:  PhasePretest,
		TrainingDay:   1,
		Completed:     CompletionSet{},
		AccountActive: true,
	}
}

func (p *Progress) HasBaseline() bool { return p != nil && !p.BaselineDate.IsZero() }

func (p *Progress) IsDone() bool { return p != nil && (p.CurrentPhase == PhaseDone || p.CompletedFlag) }

func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	out := *p
	out.Completed = p.Completed.Clone()
	return &out
}
