package mactable

import (
	"sync"
	"time"

	"netsim-os/internal/packet"
)

// Entry MAC地址表条目
// 记录某个MAC地址最近一次出现的端口
type Entry struct {
	// MAC 学习到的MAC地址
	MAC packet.MACAddress

	// Port 学习到该MAC的入端口名称
	Port string

	// LastSeen 最近一次学习时间
	LastSeen time.Time
}

// Statistics MAC地址表统计信息
// 快照语义，读取后的修改不影响已返回的副本
type Statistics struct {
	// TableSize 当前表中条目数量
	TableSize int

	// LearningCount 学习次数
	// 新MAC入表和已有MAC换端口都计入
	LearningCount uint64

	// Moves 端口迁移次数
	// 已有MAC在不同端口上再次出现时计入（主机移动或环路的信号）
	Moves uint64
}

// Table 交换机MAC地址表
// 维护MAC地址到入端口的映射，是二层转发决策的依据
//
// 学习规则：
// - 每收到一帧就学习其源MAC与入端口的对应关系
// - 新MAC：学习计数加1
// - 已有MAC换端口：学习计数和迁移计数各加1
// - 相同的(MAC,端口)对：仅刷新时间戳
//
// 条目不会自动老化，仅在显式调用ClearExpired时按配置的老化时间清理
type Table struct {
	// entries MAC地址映射表，键为MAC地址
	entries map[packet.MACAddress]*Entry

	// agingTime 老化时间
	agingTime time.Duration

	// learningCount 学习次数
	learningCount uint64

	// moves 端口迁移次数
	moves uint64

	// mu 读写锁，保护并发访问
	mu sync.RWMutex
}

// DefaultAgingTime 默认老化时间（300秒，与常见交换机一致）
const DefaultAgingTime = 300 * time.Second

// NewTable 创建MAC地址表
func NewTable() *Table {
	return &Table{
		entries:   make(map[packet.MACAddress]*Entry),
		agingTime: DefaultAgingTime,
	}
}

// Learn 学习MAC地址与端口的对应关系
// 对任意输入都不会失败，重复学习是幂等的（不产生额外统计）
func (t *Table) Learn(mac packet.MACAddress, port string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()

	if entry, exists := t.entries[mac]; exists {
		if entry.Port != port {
			// MAC在新端口上出现，记录一次端口迁移
			entry.Port = port
			t.learningCount++
			t.moves++
		}
		entry.LastSeen = now
		return
	}

	t.entries[mac] = &Entry{
		MAC:      mac,
		Port:     port,
		LastSeen: now,
	}
	t.learningCount++
}

// Lookup 查找MAC地址对应的端口
func (t *Table) Lookup(mac packet.MACAddress) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[mac]
	if !exists {
		return "", false
	}
	return entry.Port, true
}

// HasEntry 判断表中是否存在指定MAC的条目
func (t *Table) HasEntry(mac packet.MACAddress) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, exists := t.entries[mac]
	return exists
}

// GetStatistics 获取统计信息快照
func (t *Table) GetStatistics() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Statistics{
		TableSize:     len(t.entries),
		LearningCount: t.learningCount,
		Moves:         t.moves,
	}
}

// Entries 获取所有条目的副本
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		entries = append(entries, *entry)
	}
	return entries
}

// SetAgingTime 设置老化时间
func (t *Table) SetAgingTime(aging time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.agingTime = aging
}

// AgingTime 获取老化时间
func (t *Table) AgingTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agingTime
}

// ClearExpired 清理超过老化时间未刷新的条目，返回清理数量
// 老化只在显式调用时发生，转发路径不做隐式清理
func (t *Table) ClearExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for mac, entry := range t.entries {
		if time.Since(entry.LastSeen) > t.agingTime {
			delete(t.entries, mac)
			removed++
		}
	}
	return removed
}

// Flush 清空MAC地址表
// 统计计数保持不变，仅由操作员显式重置
func (t *Table) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[packet.MACAddress]*Entry)
}
