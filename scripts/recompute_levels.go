// 手动触发等级重算脚本
//
// 等级由累计积分和 level_threshold 推导。调整 gamification.level_threshold
// 配置后，存量用户的等级需要一次性重算，此脚本即用于该场景。
//
// 用法: go run scripts/recompute_levels.go

package main

import (
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/pkg/database"
	"learnsphere_backend/pkg/logger"
	"log"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	threshold := cfg.Gamification.LevelThreshold
	if threshold <= 0 {
		threshold = 500
	}

	var users []model.User
	if err := db.Find(&users).Error; err != nil {
		log.Fatalf("读取用户失败: %v", err)
	}

	log.Printf("重算 %d 个用户的等级 (threshold=%d)...", len(users), threshold)
	updated := 0
	for i := range users {
		level := 1 + users[i].Points/threshold
		if level == users[i].Level {
			continue
		}
		if err := db.Model(&users[i]).Update("level", level).Error; err != nil {
			log.Fatalf("更新用户 %d 失败: %v", users[i].ID, err)
		}
		updated++
	}
	log.Printf("完成！更新 %d 个用户", updated)
}
