package switching

import (
	"sync"

	"netsim-os/internal/mactable"
	"netsim-os/internal/packet"
)

// Action 转发决策动作
type Action int

const (
	// ActionForward 单播转发到确定的单个端口
	ActionForward Action = iota

	// ActionFlood 泛洪到除入端口外的所有端口
	// 广播、组播和未知单播都走泛洪
	ActionFlood

	// ActionFilter 过滤（不转发）
	// 目标MAC就在入端口所在网段，无需转发
	ActionFilter
)

// String 返回动作的字符串表示
func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionFlood:
		return "flood"
	case ActionFilter:
		return "filter"
	default:
		return "未知"
	}
}

// Decision 转发决策结果
// Ports为实际输出端口集合：
//   - forward时恰好1个端口
//   - flood时为除入端口外的所有端口
//   - filter时为空
//
// 输出端口集合永远不包含入端口
type Decision struct {
	Action Action
	Ports  []string
}

// Statistics 交换引擎统计信息
type Statistics struct {
	// TotalFrames 处理的帧总数
	TotalFrames uint64

	// UnicastFrames 单播帧数量
	UnicastFrames uint64

	// BroadcastFrames 广播帧数量
	BroadcastFrames uint64

	// MulticastFrames 组播帧数量
	MulticastFrames uint64

	// FloodedFrames 泛洪的帧数量（决策为flood时计入）
	FloodedFrames uint64
}

// Engine 交换机转发引擎
// 基于MAC地址表对入帧做 转发/泛洪/过滤 三选一的决策
//
// 决策流程：
// 1. 先学习源MAC与入端口的对应关系（即使帧随后被过滤或泛洪）
// 2. 广播/组播帧泛洪到除入端口外的所有端口
// 3. 单播帧查MAC表：
//   - 未命中：按未知单播泛洪
//   - 命中且就在入端口：过滤
//   - 命中在其他端口：单播转发
//
// 给定MAC表的当前状态，决策本身是纯函数；使用前必须先SetPorts配置端口集合
type Engine struct {
	// macTable MAC地址表
	macTable *mactable.Table

	// ports 已配置的端口名称列表
	ports []string

	// stats 统计信息
	stats Statistics

	// mu 读写锁
	mu sync.RWMutex
}

// NewEngine 创建交换引擎
func NewEngine(macTable *mactable.Table) *Engine {
	return &Engine{
		macTable: macTable,
		ports:    make([]string, 0),
	}
}

// SetPorts 配置交换机的端口集合
// 必须在首次调用Forward之前配置
func (e *Engine) SetPorts(ports []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ports = make([]string, len(ports))
	copy(e.ports, ports)
}

// Ports 获取已配置的端口列表副本
func (e *Engine) Ports() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ports := make([]string, len(e.ports))
	copy(ports, e.ports)
	return ports
}

// MACTable 获取底层MAC地址表
func (e *Engine) MACTable() *mactable.Table {
	return e.macTable
}

// Forward 对一帧做转发决策
// 每次调用都会无条件更新统计：帧总数加1，并按帧的类别
// 计入单播/广播/组播之一；决策为泛洪时泛洪计数加1
func (e *Engine) Forward(frame *packet.EthernetFrame, ingressPort string) Decision {
	// 第一步：学习源MAC
	// 学习先于一切决策，被过滤和泛洪的帧同样触发学习
	e.macTable.Learn(frame.Source, ingressPort)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.TotalFrames++

	// 第二步：广播和组播帧直接泛洪
	if frame.IsBroadcast() {
		e.stats.BroadcastFrames++
		e.stats.FloodedFrames++
		return Decision{Action: ActionFlood, Ports: e.floodPorts(ingressPort)}
	}
	if frame.IsMulticast() {
		e.stats.MulticastFrames++
		e.stats.FloodedFrames++
		return Decision{Action: ActionFlood, Ports: e.floodPorts(ingressPort)}
	}

	e.stats.UnicastFrames++

	// 第三步：单播帧查MAC表
	port, found := e.macTable.Lookup(frame.Destination)
	if !found {
		// 未知单播，泛洪
		e.stats.FloodedFrames++
		return Decision{Action: ActionFlood, Ports: e.floodPorts(ingressPort)}
	}

	if port == ingressPort {
		// 目标和源在同一端口所在网段，过滤
		return Decision{Action: ActionFilter, Ports: []string{}}
	}

	return Decision{Action: ActionForward, Ports: []string{port}}
}

// floodPorts 计算泛洪端口集合（除入端口外的所有端口）
// 调用方必须持有锁
func (e *Engine) floodPorts(ingressPort string) []string {
	ports := make([]string, 0, len(e.ports))
	for _, p := range e.ports {
		if p != ingressPort {
			ports = append(ports, p)
		}
	}
	return ports
}

// GetStatistics 获取统计信息快照
func (e *Engine) GetStatistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// ResetStatistics 重置统计信息
func (e *Engine) ResetStatistics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Statistics{}
}
