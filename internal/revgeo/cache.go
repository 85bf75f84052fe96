package revgeo

import (
    "container/list"
    "sync"
    "time"
)

// 文档注释：本地 LRU 缓存（geohash 为键）
// 背景：同一片区域在短周期内被反复定位（自动定位 + 手动校准），进程内缓存可跳过多边形判定；TTL 可调。
// 约束：仅缓存命中结果，未命中不缓存，避免边界数据更新前的空结果被长期保留。
type LRU struct {
    mu   sync.Mutex
    cap  int
    ttl  time.Duration
    lst  *list.List
    dict map[string]*list.Element
}

type kv struct { k string; v Hit; exp time.Time }

func NewLRU(capacity int, ttl time.Duration) *LRU {
    if capacity <= 0 { capacity = 1 }
    return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(k string) (Hit, bool) {
    c.mu.Lock(); defer c.mu.Unlock()
    if e, ok := c.dict[k]; ok {
        it := e.Value.(kv)
        if time.Now().Before(it.exp) {
            c.lst.MoveToFront(e)
            return it.v, true
        }
        c.lst.Remove(e)
        delete(c.dict, k)
    }
    return Hit{}, false
}

func (c *LRU) Set(k string, v Hit) {
    c.mu.Lock(); defer c.mu.Unlock()
    if e, ok := c.dict[k]; ok {
        e.Value = kv{k: k, v: v, exp: time.Now().Add(c.ttl)}
        c.lst.MoveToFront(e)
        return
    }
    c.dict[k] = c.lst.PushFront(kv{k: k, v: v, exp: time.Now().Add(c.ttl)})
    for c.lst.Len() > c.cap {
        back := c.lst.Back()
        delete(c.dict, back.Value.(kv).k)
        c.lst.Remove(back)
    }
}

func (c *LRU) Len() int {
    c.mu.Lock(); defer c.mu.Unlock()
    return c.lst.Len()
}
