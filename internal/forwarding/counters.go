package forwarding

import "sync"

// CounterSnapshot 计数器快照
// 普通的不可变记录，读取后可与后续修改并发使用
type CounterSnapshot struct {
	// IPInReceives 收到的IP数据包总数
	IPInReceives uint64

	// IPInOctets 收到的IP字节总数
	IPInOctets uint64

	// IPInHdrErrors 头部错误（校验和、版本、IHL、总长度）丢弃数
	IPInHdrErrors uint64

	// IPInAddrErrors 地址错误（无路由）丢弃数
	IPInAddrErrors uint64

	// IPInDelivers 本地交付的数据包数
	IPInDelivers uint64

	// IPForwDatagrams 成功转发的数据包数
	IPForwDatagrams uint64

	// IPOutOctets 发出的IP字节总数
	IPOutOctets uint64

	// ICMPOutMsgs 发出的ICMP消息总数
	ICMPOutMsgs uint64

	// ICMPOutTimeExcds 发出的ICMP超时差错数
	ICMPOutTimeExcds uint64

	// ICMPOutDestUnreachs 发出的ICMP目标不可达差错数
	ICMPOutDestUnreachs uint64

	// ICMPOutEchoReps 发出的ICMP回显应答数
	ICMPOutEchoReps uint64
}

// Counters 路由器SNMP风格计数器
// 单调递增，仅在操作员显式调用Reset时清零
type Counters struct {
	snapshot CounterSnapshot
	mu       sync.RWMutex
}

// NewCounters 创建计数器
func NewCounters() *Counters {
	return &Counters{}
}

// Snapshot 获取计数器快照（按值拷贝）
func (c *Counters) Snapshot() CounterSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Reset 清零所有计数器
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = CounterSnapshot{}
}

func (c *Counters) incInReceives(octets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IPInReceives++
	c.snapshot.IPInOctets += uint64(octets)
}

func (c *Counters) incHdrErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IPInHdrErrors++
}

func (c *Counters) incAddrErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IPInAddrErrors++
}

func (c *Counters) incInDelivers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IPInDelivers++
}

func (c *Counters) incForwarded(octets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IPForwDatagrams++
	c.snapshot.IPOutOctets += uint64(octets)
}

func (c *Counters) incOutOctets(octets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.IPOutOctets += uint64(octets)
}

func (c *Counters) incICMPTimeExceeded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.ICMPOutMsgs++
	c.snapshot.ICMPOutTimeExcds++
}

func (c *Counters) incICMPDestUnreachable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.ICMPOutMsgs++
	c.snapshot.ICMPOutDestUnreachs++
}

func (c *Counters) incICMPEchoReply() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.ICMPOutMsgs++
	c.snapshot.ICMPOutEchoReps++
}
