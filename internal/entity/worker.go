package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Worker is the public card a labourer publishes so employers can find them.
// One card per user account.
type Worker struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	Skill           string    `gorm:"size:100;not null;index" json:"skill"`
	City            string    `gorm:"size:100;not null;index" json:"city"`
	Phone           string    `gorm:"size:20" json:"phone"`
	DailyWage       int       `gorm:"not null;default:0" json:"daily_wage"`
	YearsExperience int       `gorm:"not null;default:0" json:"years_experience"`
	Available       bool      `gorm:"not null;default:true;index" json:"available"`
	PhotoURL        *string   `gorm:"type:text" json:"photo_url,omitempty"`
	About           *string   `gorm:"type:text" json:"about,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (w *Worker) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
