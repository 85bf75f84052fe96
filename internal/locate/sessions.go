package locate

import (
	"sync"
	"time"
)

type session struct {
	w    *Workflow
	last time.Time
}

// 文档注释：按会话隔离的定位流程
// 背景：每个浏览器会话各自拥有一份定位状态；服务端按会话键（X-Session-ID 或客户端 IP）取用。
// 约束：超过上限时淘汰最久未使用的会话。
type Sessions struct {
	mu    sync.Mutex
	max   int
	items map[string]*session
}

func NewSessions(max int) *Sessions {
	if max <= 0 {
		max = 1024
	}
	return &Sessions{max: max, items: make(map[string]*session)}
}

// Get：取会话流程，不存在时以 create 创建
func (s *Sessions) Get(key string, create func() *Workflow) *Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[key]; ok {
		it.last = time.Now()
		return it.w
	}
	if len(s.items) >= s.max {
		s.evictOldest()
	}
	w := create()
	s.items[key] = &session{w: w, last: time.Now()}
	return w
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Sessions) evictOldest() {
	var oldest string
	var t time.Time
	for k, it := range s.items {
		if oldest == "" || it.last.Before(t) {
			oldest, t = k, it.last
		}
	}
	delete(s.items, oldest)
}
