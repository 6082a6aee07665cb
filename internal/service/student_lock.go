package service

import "sync"

// StudentLocks 按学生维度的进程内咨询锁。
// 同一学生的路径与档案是单一可变聚合：进度级联、计时同步、
// 测验提交与积分结算必须串行，不同学生之间互不竞争。
type StudentLocks struct {
	locks sync.Map // userID -> *sync.Mutex
}

func NewStudentLocks() *StudentLocks {
	return &StudentLocks{}
}

// Lock 获取指定学生的互斥锁，返回解锁函数
func (l *StudentLocks) Lock(userID uint) func() {
	v, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
