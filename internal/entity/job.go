package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Job struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EmployerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"employer_id"`
	Title        string    `gorm:"size:120;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Category     string    `gorm:"size:100;not null;index" json:"category"`
	SkillNeeded  string    `gorm:"size:100;not null;index" json:"skill_needed"`
	City         string    `gorm:"size:100;not null;index" json:"city"`
	WageOffered  int       `gorm:"not null;default:0" json:"wage_offered"`
	DurationDays int       `gorm:"not null;default:1" json:"duration_days"`
	IsOpen       bool      `gorm:"not null;default:true;index" json:"is_open"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Employer     *User         `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	Applications []Application `gorm:"foreignKey:JobID" json:"applications,omitempty"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
