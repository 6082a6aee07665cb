package model

import "time"

// Badge 学生获得的徽章
// swagger:model Badge
type Badge struct {
	BaseModel
	UserID    uint      `gorm:"index;type:bigint unsigned" json:"userId"`
	Code      string    `gorm:"size:50;not null" json:"code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Icon      string    `gorm:"size:255" json:"icon"`
	AwardedAt time.Time `gorm:"not null" json:"awardedAt"`
}

func (Badge) TableName() string {
	return "badges"
}
