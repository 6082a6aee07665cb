package service

import "fmt"

// 降级内容：AI 协作方失败时的确定性兜底。
// 仅诊断（initial）测验走降级题库；这是文档化的降级路径，不是静默丢数据。

func fallbackQuestions(field string, count int) []GeneratedQuestion {
	templates := []GeneratedQuestion{
		{
			Question:      fmt.Sprintf("学习 %s 时，以下哪种做法最有助于打好基础？", field),
			Options:       []string{"系统地从基础概念开始", "直接做高难度项目", "只看视频不动手", "跳过不懂的部分"},
			CorrectAnswer: "系统地从基础概念开始",
			Explanation:   "循序渐进地建立概念体系是最稳妥的入门方式。",
			Hint:          "想一想地基和高楼的关系。",
			BloomLevel:    "understand",
			Topic:         "学习方法",
		},
		{
			Question:      "制定学习计划时，下列哪项最重要？",
			Options:       []string{"可持续的每日目标", "一次学完所有内容", "只在有灵感时学习", "完全照搬他人计划"},
			CorrectAnswer: "可持续的每日目标",
			Explanation:   "持续性比单次强度更能决定长期效果。",
			Hint:          "坚持比爆发更重要。",
			BloomLevel:    "apply",
			Topic:         "学习方法",
		},
		{
			Question:      fmt.Sprintf("评估自己在 %s 上的掌握程度，最可靠的方式是？", field),
			Options:       []string{"通过练习题检验", "感觉懂了就行", "看完教程即可", "询问他人印象"},
			CorrectAnswer: "通过练习题检验",
			Explanation:   "输出式检验比输入式阅读更能暴露理解盲区。",
			Hint:          "检验理解需要输出。",
			BloomLevel:    "evaluate",
			Topic:         "自我评估",
		},
		{
			Question:      "遇到无法理解的概念时，较好的第一步是？",
			Options:       []string{"拆解成更小的子问题", "立即放弃该主题", "原样死记硬背", "换一个领域学习"},
			CorrectAnswer: "拆解成更小的子问题",
			Explanation:   "分解问题能定位真正的理解缺口。",
			Hint:          "大问题往往由小问题组成。",
			BloomLevel:    "analyze",
			Topic:         "问题解决",
		},
		{
			Question:      "下列关于复习的说法哪项正确？",
			Options:       []string{"间隔重复优于集中突击", "复习一次就足够", "复习没有必要", "只复习喜欢的内容"},
			CorrectAnswer: "间隔重复优于集中突击",
			Explanation:   "间隔重复对长期记忆的巩固效果有充分证据支持。",
			Hint:          "记忆曲线会衰减。",
			BloomLevel:    "remember",
			Topic:         "复习策略",
		},
	}

	if count <= 0 || count > len(templates) {
		count = len(templates)
	}
	return templates[:count]
}

func fallbackOutline(field string) *PathOutline {
	return &PathOutline{
		Modules: []OutlineModule{
			{
				Title:       fmt.Sprintf("%s 入门", field),
				Description: "核心概念与术语",
				Topics:      []OutlineTopic{{Title: "基础概念"}, {Title: "常用术语"}},
			},
			{
				Title:       fmt.Sprintf("%s 进阶", field),
				Description: "常见模式与实践",
				Topics:      []OutlineTopic{{Title: "核心技能"}, {Title: "常见误区"}},
			},
			{
				Title:       fmt.Sprintf("%s 实战", field),
				Description: "综合运用",
				Topics:      []OutlineTopic{{Title: "综合练习"}, {Title: "项目实践"}},
			},
		},
	}
}
