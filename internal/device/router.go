package device

import (
	"fmt"

	"netsim-os/internal/arp"
	"netsim-os/internal/forwarding"
	"netsim-os/internal/packet"
	"netsim-os/internal/ports"
	"netsim-os/internal/routing"
	"netsim-os/internal/scheduler"
)

// Router 路由器
// 封装转发引擎并对外暴露管理访问面：
// 路由表、ARP表、端口、计数器的读取，以及接口配置和路由配置。
// CLI等外部调用方只通过这些访问器操作路由器，不触及转发内部
type Router struct {
	// id 设备标识
	id string

	// engine 转发引擎
	engine *forwarding.Engine

	// ports 端口管理器
	ports *ports.Manager
}

// NewRouter 创建路由器
func NewRouter(id string, portNames []string, sched scheduler.Scheduler) (*Router, error) {
	manager := ports.NewManager()

	for i, name := range portNames {
		mac := deriveMAC(id, i)
		if err := manager.AddPort(name, mac); err != nil {
			return nil, fmt.Errorf("创建路由器端口失败: %w", err)
		}
	}

	engine := forwarding.NewEngine(routing.NewTable(), arp.NewTable(), manager, sched)

	return &Router{
		id:     id,
		engine: engine,
		ports:  manager,
	}, nil
}

// ID 设备标识
func (r *Router) ID() string {
	return r.id
}

// Ports 端口管理器
func (r *Router) Ports() *ports.Manager {
	return r.ports
}

// Engine 转发引擎
func (r *Router) Engine() *forwarding.Engine {
	return r.engine
}

// ReceiveFrame 入帧处理，交给转发引擎的packet walk
func (r *Router) ReceiveFrame(frame *packet.EthernetFrame, port string) {
	r.engine.HandleFrame(frame, port)
}

// ConfigureInterface 配置接口IP地址并重建直连路由
func (r *Router) ConfigureInterface(iface string, ip packet.IPAddress, mask packet.SubnetMask) error {
	return r.engine.ConfigureInterface(iface, ip, mask)
}

// AddStaticRoute 添加静态路由，下一跳不可达时返回false
func (r *Router) AddStaticRoute(network packet.IPAddress, mask packet.SubnetMask, nextHop packet.IPAddress, metric int) bool {
	return r.engine.AddStaticRoute(network, mask, nextHop, metric)
}

// SetDefaultRoute 设置默认路由，下一跳不可达时返回false
func (r *Router) SetDefaultRoute(nextHop packet.IPAddress, metric int) bool {
	return r.engine.SetDefaultRoute(nextHop, metric)
}

// GetRoutingTable 获取路由表所有条目的副本
func (r *Router) GetRoutingTable() []routing.Route {
	return r.engine.RoutingTable().Routes()
}

// GetARPTable 获取ARP表所有条目的副本
func (r *Router) GetARPTable() []arp.Entry {
	return r.engine.ARPTable().Entries()
}

// AddStaticARP 添加静态ARP条目
func (r *Router) AddStaticARP(ip packet.IPAddress, mac packet.MACAddress, iface string) {
	r.engine.ARPTable().AddStatic(ip, mac, iface)
}

// GetCounters 获取计数器快照
func (r *Router) GetCounters() forwarding.CounterSnapshot {
	return r.engine.Counters()
}

// ResetCounters 清零计数器
func (r *Router) ResetCounters() {
	r.engine.ResetCounters()
}

// SetPortUp 设置端口启用状态
func (r *Router) SetPortUp(name string, up bool) error {
	return r.ports.SetUp(name, up)
}
