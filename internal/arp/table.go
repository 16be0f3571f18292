package arp

import (
	"sync"
	"time"

	"netsim-os/internal/packet"
)

// Entry ARP表条目
// 存储IP地址到MAC地址的映射关系
// 这是二层封装的基础，设备需要知道下一跳的MAC地址才能构造以太网帧
type Entry struct {
	// IPAddress IP地址
	IPAddress packet.IPAddress

	// MACAddress MAC地址（硬件地址）
	MACAddress packet.MACAddress

	// Interface 学习到此条目的网络接口
	Interface string

	// Timestamp 条目创建或更新时间
	Timestamp time.Time

	// Static 是否为静态条目
	// 静态条目由操作员配置，Flush时保留
	Static bool
}

// Stats ARP表统计信息
type Stats struct {
	TotalEntries uint64
	Learned      uint64
	Overwrites   uint64
	LookupHits   uint64
	LookupMisses uint64
}

// Table ARP表
// 维护IP到MAC地址的映射缓存
//
// 学习规则：任何经过ProcessPacket的ARP包（请求、应答、免费ARP）
// 的发送方映射都会无条件写入缓存，与本设备是否为目标无关，
// 也与是否存在等待中的解析无关。已有条目总是被覆盖。
//
// Resolve只做缓存查找，不会主动发起ARP请求；
// 请求的触发由调用方（路由器转发引擎）负责。
type Table struct {
	// entries ARP条目映射表，键为IP地址的字符串表示
	entries map[string]*Entry

	// stats 统计信息
	stats Stats

	// mu 读写锁，保护并发访问
	mu sync.RWMutex
}

// NewTable 创建ARP表
func NewTable() *Table {
	return &Table{
		entries: make(map[string]*Entry),
	}
}

// Resolve 查找IP地址对应的MAC地址
// 仅查缓存，未命中时不触发任何请求
func (t *Table) Resolve(ip packet.IPAddress) (packet.MACAddress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[ip.String()]
	if !exists {
		t.stats.LookupMisses++
		return packet.MACAddress{}, false
	}

	t.stats.LookupHits++
	return entry.MACAddress, true
}

// ResolveEntry 查找IP地址对应的完整条目副本
// 除MAC地址外还携带学习到该映射的接口，
// 供本地始发的应答选择朝向对方的出接口
func (t *Table) ResolveEntry(ip packet.IPAddress) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.entries[ip.String()]
	if !exists {
		t.stats.LookupMisses++
		return Entry{}, false
	}

	t.stats.LookupHits++
	return *entry, true
}

// ProcessPacket 处理收到的ARP数据包
// 无条件学习发送方的IP到MAC映射，不区分操作类型，
// 也不关心本设备是否为该包的目标
func (t *Table) ProcessPacket(p *ARPPacket, iface string) {
	t.learn(p.SenderProtocolAddr, p.SenderHardwareAddr, iface, false)
}

// Learn 学习一条动态映射
func (t *Table) Learn(ip packet.IPAddress, mac packet.MACAddress, iface string) {
	t.learn(ip, mac, iface, false)
}

// AddStatic 添加静态ARP条目
// 静态条目在Flush时保留，常用于安全或特殊需求
func (t *Table) AddStatic(ip packet.IPAddress, mac packet.MACAddress, iface string) {
	t.learn(ip, mac, iface, true)
}

// learn 写入或覆盖一条映射
func (t *Table) learn(ip packet.IPAddress, mac packet.MACAddress, iface string, static bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := ip.String()
	if _, exists := t.entries[key]; exists {
		t.stats.Overwrites++
	} else {
		t.stats.Learned++
	}

	t.entries[key] = &Entry{
		IPAddress:  ip,
		MACAddress: mac,
		Interface:  iface,
		Timestamp:  time.Now(),
		Static:     static,
	}
	t.stats.TotalEntries = uint64(len(t.entries))
}

// Delete 删除指定IP的条目
func (t *Table) Delete(ip packet.IPAddress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := ip.String()
	if _, exists := t.entries[key]; exists {
		delete(t.entries, key)
		t.stats.TotalEntries = uint64(len(t.entries))
		return true
	}
	return false
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

// GetStats 获取统计信息快照
func (t *Table) GetStats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Flush 清空动态条目，静态条目保留
func (t *Table) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.entries {
		if !entry.Static {
			delete(t.entries, key)
		}
	}
	t.stats.TotalEntries = uint64(len(t.entries))
}
