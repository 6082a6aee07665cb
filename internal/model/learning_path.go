package model

type ModuleStatus string

const (
	ModuleLocked    ModuleStatus = "locked"
	ModuleUnlocked  ModuleStatus = "unlocked"
	ModuleCompleted ModuleStatus = "completed"
)

type TopicStatus string

const (
	TopicPending   TopicStatus = "pending"
	TopicCompleted TopicStatus = "completed"
)

// LearningPath 学生的个性化学习路径，每个学生最多一条
// swagger:model LearningPath
type LearningPath struct {
	BaseModel
	UserID  uint         `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"userId"`
	Field   string       `gorm:"size:100;not null" json:"field"`
	Level   string       `gorm:"size:50;not null" json:"level"`
	Modules []PathModule `gorm:"foreignKey:PathID" json:"modules"`
}

func (LearningPath) TableName() string {
	return "learning_paths"
}

// PathModule 路径中的模块，按 Position 顺序解锁
// 状态只能经由级联推导变更：locked -> unlocked -> completed
type PathModule struct {
	BaseModel
	PathID      uint         `gorm:"index;type:bigint unsigned;not null" json:"pathId"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      ModuleStatus `gorm:"size:20;default:'locked'" json:"status"`
	Position    int          `gorm:"not null" json:"position"`
	Topics      []PathTopic  `gorm:"foreignKey:ModuleID" json:"topics"`
}

func (PathModule) TableName() string {
	return "path_modules"
}

// PathTopic 模块下的主题；Content 与 Resources 延迟生成
type PathTopic struct {
	BaseModel
	ModuleID           uint           `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Title              string         `gorm:"size:255;not null" json:"title"`
	Content            string         `gorm:"type:longtext" json:"content"`
	Status             TopicStatus    `gorm:"size:20;default:'pending'" json:"status"`
	Position           int            `gorm:"not null" json:"position"`
	TimeSpentSeconds   int            `gorm:"default:0" json:"timeSpentSeconds"`
	ResourcesGenerated bool           `gorm:"default:false" json:"resourcesGenerated"`
	Resources          []PathResource `gorm:"foreignKey:TopicID" json:"resources"`
}

func (PathTopic) TableName() string {
	return "path_topics"
}

// PathResource 进度的叶子单元；Completed 单调，不会经正常流程回退
type PathResource struct {
	BaseModel
	TopicID          uint         `gorm:"index;type:bigint unsigned;not null" json:"topicId"`
	Type             ResourceType `gorm:"size:20;not null" json:"type"`
	Title            string       `gorm:"size:255;not null" json:"title"`
	URL              string       `gorm:"size:512" json:"url"`
	DurationHint     int          `gorm:"default:0" json:"durationHint"` // 预估学习时长（分钟）
	Position         int          `gorm:"not null" json:"position"`
	Completed        bool         `gorm:"default:false" json:"completed"`
	TimeSpentSeconds int          `gorm:"default:0" json:"timeSpentSeconds"`
	// 客户端单调同步游标（毫秒），不前进的上报不计时长
	SyncCursor int64 `gorm:"default:0" json:"-"`
}

func (PathResource) TableName() string {
	return "path_resources"
}
