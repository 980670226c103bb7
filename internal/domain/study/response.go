package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/platform/clock"
)

// Response is one submitted activity payload, written in the same
// transaction as the progress update it triggered.
type Response struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_response_user_phase,priority:1" json:"user_id"`
	Phase       Phase          `gorm:"not null;index:idx_response_user_phase,priority:2" json:"phase"`
	Activity    ActivityType   `gorm:"not null;column:activity_type" json:"activity_type"`
	TrainingDay int            `gorm:"not null;default:0;column:training_day" json:"training_day,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	SubmittedOn clock.Date     `gorm:"column:submitted_on" json:"submitted_on"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Response) TableName() string { return "responses" }

func (r *Response) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type ReminderKind string

const (
	ReminderTraining  ReminderKind = "training"
	ReminderPosttest1 ReminderKind = "posttest1"
)

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// ReminderDelivery logs each reminder attempt made by the daily sweep.
type ReminderDelivery struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_reminder_user_date,priority:1" json:"user_id"`
	SweepDate   clock.Date     `gorm:"not null;index:idx_reminder_user_date,priority:2;column:sweep_date" json:"sweep_date"`
	Kind        ReminderKind   `gorm:"not null" json:"kind"`
	TrainingDay int            `gorm:"not null;default:0" json:"training_day,omitempty"`
	Status      DeliveryStatus `gorm:"not null" json:"status"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (ReminderDelivery) TableName() string { return "reminder_deliveries" }

func (r *ReminderDelivery) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
