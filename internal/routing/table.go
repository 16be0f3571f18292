package routing

import (
	"sort"
	"sync"
	"time"

	"netsim-os/internal/packet"
)

// RouteType 路由类型枚举
// 路由可以通过不同的方式学习到，每种方式对应不同的路由类型
type RouteType int

const (
	// RouteTypeConnected 直连路由
	// 路由器接口配置IP地址时自动生成，优先级最高
	// 接口重新配置时旧的直连路由会被移除并重建
	RouteTypeConnected RouteType = iota

	// RouteTypeStatic 静态路由
	// 由管理员手动配置，下一跳必须经某个已配置接口可达
	RouteTypeStatic

	// RouteTypeDefault 默认路由
	// 没有更具体的路由时使用的兜底路由（0.0.0.0/0）
	// 路由表中最多保留一条，重复设置时替换
	RouteTypeDefault

	// RouteTypeDynamic 动态路由
	// 预留给路由协议学习到的路由
	RouteTypeDynamic
)

// String 返回路由类型的字符串表示
func (rt RouteType) String() string {
	switch rt {
	case RouteTypeConnected:
		return "直连"
	case RouteTypeStatic:
		return "静态"
	case RouteTypeDefault:
		return "默认"
	case RouteTypeDynamic:
		return "动态"
	default:
		return "未知"
	}
}

// 各路由类型的管理距离
// 管理距离标识路由来源的可信度，数值越小越优先
const (
	ADConnected = 0
	ADStatic    = 1
	ADDynamic   = 120
)

// DefaultAD 返回路由类型对应的默认管理距离
func DefaultAD(rt RouteType) int {
	switch rt {
	case RouteTypeConnected:
		return ADConnected
	case RouteTypeStatic, RouteTypeDefault:
		return ADStatic
	default:
		return ADDynamic
	}
}

// Route 路由条目结构体
// 路由表中的基本单元，包含路由决策所需的所有信息
type Route struct {
	// Network 目标网络地址
	Network packet.IPAddress

	// Mask 目标网络的子网掩码
	Mask packet.SubnetMask

	// NextHop 下一跳网关地址
	// 为nil表示目标网络直连可达，不需要经过网关
	NextHop *packet.IPAddress

	// Interface 出接口名称
	Interface string

	// Type 路由类型
	Type RouteType

	// AD 管理距离，同前缀长度下数值小的路由优先
	AD int

	// Metric 路由度量值，同管理距离下数值小的路由优先
	Metric int

	// Age 路由创建或最后更新时间
	Age time.Time
}

// Matches 判断目标IP是否落在本条路由的网络范围内
func (r *Route) Matches(dest packet.IPAddress) bool {
	return r.Mask.Network(dest) == r.Network
}

// IsDefault 判断是否为默认路由（0.0.0.0/0）
func (r *Route) IsDefault() bool {
	return r.Network.IsZero() && r.Mask == packet.SubnetMask{}
}

// Table 路由表结构体
// 路由系统的核心数据结构，管理所有的路由条目
//
// 路由按最长前缀匹配原则排序存放：
// 1. 前缀长度越长优先级越高（更具体的路由优先）
// 2. 前缀相同时管理距离越小优先级越高
// 3. 管理距离相同时度量值越小优先级越高
// 三项都相同时保持插入顺序（稳定排序），不再定义更多的决胜规则
type Table struct {
	// routes 路由条目切片，始终保持排序
	routes []Route

	// mu 读写互斥锁
	// 允许多个goroutine同时读取，写入时互斥
	mu sync.RWMutex
}

// NewTable 创建新的路由表实例
func NewTable() *Table {
	return &Table{
		routes: make([]Route, 0),
	}
}

// AddRoute 向路由表中添加路由条目
// 添加后重新排序，确保最长前缀匹配的正确性
func (t *Table) AddRoute(route Route) {
	t.mu.Lock()
	defer t.mu.Unlock()

	route.Age = time.Now()
	t.routes = append(t.routes, route)
	t.sortRoutes()
}

// RemoveConnected 移除指定接口的所有直连路由
// 接口重新配置IP地址时调用，随后重新添加新的直连路由
func (t *Table) RemoveConnected(iface string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.routes[:0]
	removed := 0
	for _, route := range t.routes {
		if route.Type == RouteTypeConnected && route.Interface == iface {
			removed++
			continue
		}
		kept = append(kept, route)
	}
	t.routes = kept
	return removed
}

// ReplaceDefault 替换默认路由
// 已有的默认路由（0.0.0.0/0）被移除后再添加，不会产生重复条目
func (t *Table) ReplaceDefault(route Route) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.routes[:0]
	for _, existing := range t.routes {
		if existing.IsDefault() {
			continue
		}
		kept = append(kept, existing)
	}
	t.routes = kept

	route.Age = time.Now()
	t.routes = append(t.routes, route)
	t.sortRoutes()
}

// RemoveRoute 删除指定网络的路由，返回是否删除成功
func (t *Table) RemoveRoute(network packet.IPAddress, mask packet.SubnetMask) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, route := range t.routes {
		if route.Network == network && route.Mask == mask {
			t.routes = append(t.routes[:i], t.routes[i+1:]...)
			return true
		}
	}
	return false
}

// Lookup 查找到达指定目标IP的最佳路由
// 实现最长前缀匹配算法
//
// 由于路由表始终按（前缀长度、管理距离、度量值）排序，
// 第一个网络范围匹配的条目即为最佳路由
//
// 返回路由的副本，未找到时返回nil；
// 无路由时的后续处理（丢弃、ICMP不可达）由调用方负责
func (t *Table) Lookup(dest packet.IPAddress) *Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, route := range t.routes {
		if route.Matches(dest) {
			// 返回副本，避免外部修改路由表内容
			r := route
			return &r
		}
	}
	return nil
}

// Routes 获取所有路由的副本
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	routes := make([]Route, len(t.routes))
	copy(routes, t.routes)
	return routes
}

// Size 返回路由表大小
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

// Clear 清空路由表
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = t.routes[:0]
}

// sortRoutes 按照最长前缀匹配原则对路由表进行排序
//
// 排序规则（按优先级）：
// 1. 前缀长度：越长越优先
// 2. 管理距离：越小越优先
// 3. 路由度量值：越小越优先
//
// 使用稳定排序，三项都相同的路由保持插入顺序
func (t *Table) sortRoutes() {
	sort.SliceStable(t.routes, func(i, j int) bool {
		iOnes := t.routes[i].Mask.PrefixLength()
		jOnes := t.routes[j].Mask.PrefixLength()

		// 第一优先级：前缀长度比较，长前缀在前
		if iOnes != jOnes {
			return iOnes > jOnes
		}

		// 第二优先级：管理距离比较，小管理距离在前
		if t.routes[i].AD != t.routes[j].AD {
			return t.routes[i].AD < t.routes[j].AD
		}

		// 第三优先级：度量值比较，小度量值在前
		return t.routes[i].Metric < t.routes[j].Metric
	})
}
