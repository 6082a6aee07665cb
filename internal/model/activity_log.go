package model

// 游戏化事件类型
const (
	ActivityModuleComplete = "module_complete"
	ActivityQuizPass       = "quiz_pass"
	ActivityDailyLogin     = "daily_login"
	ActivityResourceTime   = "resource_time"
	ActivityPathComplete   = "path_complete"
)

// ActivityLog 学习活动流水，积分与连续天数的唯一事实来源
// swagger:model ActivityLog
type ActivityLog struct {
	BaseModel
	UserID          uint   `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Activity        string `gorm:"size:50;not null" json:"activity"`
	Detail          string `gorm:"size:255" json:"detail"`
	Points          int    `gorm:"default:0" json:"points"`
	DurationSeconds int    `gorm:"default:0" json:"durationSeconds"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
