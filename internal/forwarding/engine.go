package forwarding

import (
	"fmt"
	"sync"

	"netsim-os/internal/arp"
	"netsim-os/internal/logging"
	"netsim-os/internal/packet"
	"netsim-os/internal/ports"
	"netsim-os/internal/routing"
	"netsim-os/internal/scheduler"
)

// Engine 路由器转发引擎
// 实现IPv4数据包的完整处理流水线（packet walk）：
//
//	阶段A 入口过滤与分发：丢弃目标MAC既非广播也非本接口的帧，
//	       按以太网类型分发（ARP → 控制平面，IPv4 → 阶段B，其他 → 丢弃）
//	阶段B 三层头部健全性检查：校验和、版本、IHL、总长度，
//	       失败计入头部错误并丢弃，不回送ICMP
//	阶段C 转发决策：目标为本地接口IP → 本地交付；
//	       否则查路由表，未命中计入地址错误并回送目标不可达差错
//	阶段D 变更与异常：TTL减1，耗尽时回送超时差错；否则重算校验和
//	阶段E 出口：超MTU且DF置位时回送需要分片差错；
//	       解析下一跳MAC后重写二层地址并发送，未解析时排队等待ARP
//
// 引擎对每帧的处理是同步的状态迁移，从不阻塞调用方；
// 唯一的延迟工作是通过调度器安排的ARP解析超时
type Engine struct {
	// routingTable 路由表（RIB）
	routingTable *routing.Table

	// arpTable ARP表
	arpTable *arp.Table

	// ports 端口管理器
	ports *ports.Manager

	// sched 定时器调度器
	sched scheduler.Scheduler

	// counters SNMP风格计数器
	counters *Counters

	// pending 待ARP解析的数据包队列，键为下一跳IP字符串
	pending map[string]*pendingQueue

	// logger 日志记录器
	logger *logging.Logger

	// mu 保护pending队列
	mu sync.Mutex
}

// NewEngine 创建转发引擎
func NewEngine(routingTable *routing.Table, arpTable *arp.Table, portManager *ports.Manager, sched scheduler.Scheduler) *Engine {
	return &Engine{
		routingTable: routingTable,
		arpTable:     arpTable,
		ports:        portManager,
		sched:        sched,
		counters:     NewCounters(),
		pending:      make(map[string]*pendingQueue),
		logger:       logging.GetLogger(),
	}
}

// RoutingTable 获取路由表
func (e *Engine) RoutingTable() *routing.Table {
	return e.routingTable
}

// ARPTable 获取ARP表
func (e *Engine) ARPTable() *arp.Table {
	return e.arpTable
}

// Ports 获取端口管理器
func (e *Engine) Ports() *ports.Manager {
	return e.ports
}

// Counters 获取计数器快照
func (e *Engine) Counters() CounterSnapshot {
	return e.counters.Snapshot()
}

// ResetCounters 清零计数器
func (e *Engine) ResetCounters() {
	e.counters.Reset()
}

// ConfigureInterface 配置接口的IP地址并重建直连路由
// 始终先移除该接口已有的直连路由再添加新的，重复调用是幂等的
func (e *Engine) ConfigureInterface(iface string, ip packet.IPAddress, mask packet.SubnetMask) error {
	if err := e.ports.Configure(iface, ip, mask); err != nil {
		return fmt.Errorf("配置接口失败: %w", err)
	}

	e.routingTable.RemoveConnected(iface)
	e.routingTable.AddRoute(routing.Route{
		Network:   mask.Network(ip),
		Mask:      mask,
		NextHop:   nil,
		Interface: iface,
		Type:      routing.RouteTypeConnected,
		AD:        routing.ADConnected,
		Metric:    0,
	})

	e.logger.Info("接口配置完成: %s %s/%d", iface, ip, mask.PrefixLength())
	return nil
}

// AddStaticRoute 添加静态路由
// 下一跳必须落在某个已配置接口的子网内，否则返回false且不产生任何变更
func (e *Engine) AddStaticRoute(network packet.IPAddress, mask packet.SubnetMask, nextHop packet.IPAddress, metric int) bool {
	port := e.ports.FindPortForIP(nextHop)
	if port == nil {
		e.logger.Warn("静态路由添加失败，下一跳不可达: %s", nextHop)
		return false
	}

	hop := nextHop
	e.routingTable.AddRoute(routing.Route{
		Network:   mask.Network(network),
		Mask:      mask,
		NextHop:   &hop,
		Interface: port.Name,
		Type:      routing.RouteTypeStatic,
		AD:        routing.ADStatic,
		Metric:    metric,
	})
	return true
}

// SetDefaultRoute 设置默认路由（0.0.0.0/0）
// 下一跳可达性要求与静态路由相同；已有默认路由被替换而不是追加
func (e *Engine) SetDefaultRoute(nextHop packet.IPAddress, metric int) bool {
	port := e.ports.FindPortForIP(nextHop)
	if port == nil {
		e.logger.Warn("默认路由设置失败，下一跳不可达: %s", nextHop)
		return false
	}

	hop := nextHop
	e.routingTable.ReplaceDefault(routing.Route{
		Network:   packet.IPAddress{},
		Mask:      packet.SubnetMask{},
		NextHop:   &hop,
		Interface: port.Name,
		Type:      routing.RouteTypeDefault,
		AD:        routing.ADStatic,
		Metric:    metric,
	})
	return true
}

// HandleFrame 处理一个入方向的以太网帧
// 这是转发引擎的唯一入口，每帧同步处理到底后才返回
func (e *Engine) HandleFrame(frame *packet.EthernetFrame, ingressPort string) {
	port, err := e.ports.GetPort(ingressPort)
	if err != nil || !port.Up {
		return
	}

	e.ports.RecordRx(ingressPort)

	// 阶段A：入口二层过滤
	// 只接收广播帧和目标为本接口MAC的帧
	if !frame.IsBroadcast() && frame.Destination != port.MAC {
		return
	}

	// 阶段A：按以太网类型分发
	switch frame.EtherType {
	case packet.EtherTypeARP:
		e.handleARP(frame, port)
	case packet.EtherTypeIPv4:
		e.handleIPv4(frame, port)
	default:
		// 不支持的网络层协议，静默丢弃
	}
}

// handleARP 控制平面ARP处理
// 任何ARP包的发送方映射都会被学习并用于冲刷待解析队列；
// 目标为本接口IP的请求（非免费ARP）会得到单播应答
func (e *Engine) handleARP(frame *packet.EthernetFrame, ingress *ports.Port) {
	arpPkt, err := arp.Parse(frame.Payload)
	if err != nil {
		e.logger.Debug("ARP解析失败: %v", err)
		return
	}

	// 无条件学习发送方映射
	e.arpTable.ProcessPacket(arpPkt, ingress.Name)

	// 新学习的映射可能正是某些排队数据包等待的下一跳
	e.flushPacketQueue(arpPkt.SenderProtocolAddr, arpPkt.SenderHardwareAddr)

	// 对询问本接口IP的请求回送应答
	if arpPkt.IsRequest() && !arp.IsGratuitous(arpPkt) &&
		ingress.HasIP() && arpPkt.TargetProtocolAddr == *ingress.IP {

		reply := arp.NewReply(*ingress.IP, ingress.MAC,
			arpPkt.SenderProtocolAddr, arpPkt.SenderHardwareAddr)
		replyFrame := &packet.EthernetFrame{
			Source:      ingress.MAC,
			Destination: arpPkt.SenderHardwareAddr,
			EtherType:   packet.EtherTypeARP,
			Payload:     arp.Serialize(reply),
		}
		e.ports.Transmit(ingress.Name, replyFrame)
	}
}

// handleIPv4 IPv4数据包处理（阶段B到阶段E）
func (e *Engine) handleIPv4(frame *packet.EthernetFrame, ingress *ports.Port) {
	ipPkt := frame.IPv4
	if ipPkt == nil {
		e.counters.incHdrErrors()
		return
	}

	e.counters.incInReceives(ipPkt.TotalLength)

	// 阶段B：头部健全性检查
	// 任一失败都计入头部错误并丢弃，不回送ICMP
	if reason := ipPkt.ValidateHeader(); reason != packet.HeaderOK {
		e.counters.incHdrErrors()
		e.logger.Debug("头部检查失败(%s): %s -> %s", reason, ipPkt.Source, ipPkt.Destination)
		return
	}

	// 阶段C：转发决策
	if e.ports.FindPortByIP(ipPkt.Destination) != nil {
		e.deliverLocally(ipPkt)
		return
	}

	route := e.routingTable.Lookup(ipPkt.Destination)
	if route == nil {
		// 无路由：地址错误，回送目标不可达差错
		e.counters.incAddrErrors()
		e.sendICMPError(packet.ICMPTypeDestinationUnreachable, packet.CodeNetUnreachable, ipPkt, ingress)
		return
	}

	// 阶段D：TTL递减与异常
	// 对副本操作，不改动入帧携带的原始数据包
	forwarded := *ipPkt
	forwarded.TTL--
	if forwarded.TTL <= 0 {
		// TTL耗尽的数据包绝不转发
		e.sendICMPError(packet.ICMPTypeTimeExceeded, packet.CodeTTLExceeded, ipPkt, ingress)
		return
	}
	forwarded.UpdateChecksum()

	// 阶段E：出口
	egress, err := e.ports.GetPort(route.Interface)
	if err != nil || !egress.Up {
		return
	}

	if forwarded.TotalLength > egress.MTU {
		if forwarded.DontFragment() {
			// 超MTU且禁止分片：回送需要分片差错
			e.sendICMPError(packet.ICMPTypeDestinationUnreachable, packet.CodeFragmentationNeeded, ipPkt, ingress)
			return
		}
		// DF未置位的超长包原样转发，分片未实现（仅检测，不执行）
	}

	// 确定下一跳：路由的网关，直连路由则为目标本身
	nextHop := ipPkt.Destination
	if route.NextHop != nil {
		nextHop = *route.NextHop
	}

	if mac, ok := e.arpTable.Resolve(nextHop); ok {
		e.transmitIPv4(&forwarded, egress.Name, mac)
		e.counters.incForwarded(forwarded.TotalLength)
		return
	}

	// 下一跳MAC未解析：排队等待而不是丢弃
	e.queueAndResolve(&forwarded, egress.Name, nextHop)
}

// deliverLocally 本地交付（阶段C'）
// 目前只处理ICMP回显请求：构造同ID/序列号/数据长度的回显应答，
// TTL重置为默认值，使用ARP缓存中已知的源MAC发回；
// 出接口取缓存条目学习到源映射的接口，朝向请求方，
// 与被询问的是哪个接口的IP无关。
// 源MAC未缓存时应答被静默丢弃（不排队，与转发路径的排队行为不对称，
// 保持与观察到的原始行为一致）
func (e *Engine) deliverLocally(ipPkt *packet.IPv4Packet) {
	e.counters.incInDelivers()

	if ipPkt.Protocol != packet.ProtocolICMP || ipPkt.ICMP == nil {
		return
	}
	if ipPkt.ICMP.Type != packet.ICMPTypeEchoRequest {
		return
	}

	replyICMP := packet.NewEchoReply(ipPkt.ICMP)
	reply := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: packet.IPv4MinIHL*4 + replyICMP.Length(),
		TTL:         packet.DefaultTTL,
		Protocol:    packet.ProtocolICMP,
		Source:      ipPkt.Destination,
		Destination: ipPkt.Source,
		ICMP:        replyICMP,
	}
	reply.UpdateChecksum()

	entry, ok := e.arpTable.ResolveEntry(ipPkt.Source)
	if !ok {
		e.logger.Debug("回显应答丢弃，源MAC未解析: %s", ipPkt.Source)
		return
	}

	e.transmitIPv4(reply, entry.Interface, entry.MACAddress)
	e.counters.incICMPEchoReply()
	e.counters.incOutOctets(reply.TotalLength)
}

// sendICMPError 构造并发送ICMP差错消息（阶段C和阶段D/E共用）
// 差错消息携带8字节载荷，以入接口IP为源、原始数据包的源IP为目标；
// 目标MAC已缓存时立即发送，否则与普通出方向数据包一样排队解析
func (e *Engine) sendICMPError(icmpType packet.ICMPType, code int, original *packet.IPv4Packet, ingress *ports.Port) {
	if !ingress.HasIP() {
		return
	}

	icmpPkt := &packet.ICMPPacket{
		Type:     icmpType,
		Code:     code,
		DataSize: packet.ICMPErrorDataSize,
	}
	errPkt := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: packet.IPv4MinIHL*4 + icmpPkt.Length(),
		TTL:         packet.DefaultTTL,
		Protocol:    packet.ProtocolICMP,
		Source:      *ingress.IP,
		Destination: original.Source,
		ICMP:        icmpPkt,
	}
	errPkt.UpdateChecksum()

	switch icmpType {
	case packet.ICMPTypeTimeExceeded:
		e.counters.incICMPTimeExceeded()
	case packet.ICMPTypeDestinationUnreachable:
		e.counters.incICMPDestUnreachable()
	}

	if mac, ok := e.arpTable.Resolve(original.Source); ok {
		e.transmitIPv4(errPkt, ingress.Name, mac)
		e.counters.incOutOctets(errPkt.TotalLength)
		return
	}

	e.queueAndResolve(errPkt, ingress.Name, original.Source)
}

// transmitIPv4 完成二层封装并从指定端口发送IPv4数据包
// 源MAC重写为出接口MAC，目标MAC为已解析的下一跳MAC
func (e *Engine) transmitIPv4(ipPkt *packet.IPv4Packet, iface string, destMAC packet.MACAddress) {
	port, err := e.ports.GetPort(iface)
	if err != nil {
		return
	}

	frame := &packet.EthernetFrame{
		Source:      port.MAC,
		Destination: destMAC,
		EtherType:   packet.EtherTypeIPv4,
		IPv4:        ipPkt,
	}
	e.ports.Transmit(iface, frame)
}
