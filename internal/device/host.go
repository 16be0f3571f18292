package device

import (
	"fmt"
	"sync"

	"netsim-os/internal/arp"
	"netsim-os/internal/forwarding"
	"netsim-os/internal/packet"
	"netsim-os/internal/ports"
	"netsim-os/internal/scheduler"
)

// HostStats 主机统计信息
type HostStats struct {
	// EchoRequestsSent 发出的回显请求数
	EchoRequestsSent uint64

	// EchoRequestsReceived 收到的回显请求数
	EchoRequestsReceived uint64

	// EchoRepliesReceived 收到的回显应答数
	EchoRepliesReceived uint64

	// FramesReceived 收到的帧总数
	FramesReceived uint64
}

// pendingSend 等待ARP解析的待发数据包
type pendingSend struct {
	ipPkt *packet.IPv4Packet
	timer scheduler.Timer
}

// Host 通用主机
// 单端口终端设备：应答指向自己IP的ARP请求和ICMP回显请求，
// 学习所有经过的ARP映射，可主动发起ping
type Host struct {
	// id 设备标识
	id string

	// ports 端口管理器（主机只有一个端口）
	ports *ports.Manager

	// portName 唯一端口的名称
	portName string

	// ip 主机IP地址
	ip packet.IPAddress

	// mask 子网掩码
	mask packet.SubnetMask

	// gateway 默认网关，跨子网流量经此转发
	gateway *packet.IPAddress

	// arpTable 主机自己的ARP缓存
	arpTable *arp.Table

	// sched 定时器调度器
	sched scheduler.Scheduler

	// pending 等待ARP解析的数据包，键为下一跳IP字符串
	pending map[string][]*pendingSend

	// stats 统计信息
	stats HostStats

	// mu 保护pending和stats
	mu sync.Mutex
}

// NewHost 创建主机
func NewHost(id string, mac packet.MACAddress, ip packet.IPAddress, mask packet.SubnetMask, sched scheduler.Scheduler) (*Host, error) {
	manager := ports.NewManager()
	portName := "eth0"
	if err := manager.AddPort(portName, mac); err != nil {
		return nil, fmt.Errorf("创建主机端口失败: %w", err)
	}
	if err := manager.Configure(portName, ip, mask); err != nil {
		return nil, err
	}

	return &Host{
		id:       id,
		ports:    manager,
		portName: portName,
		ip:       ip,
		mask:     mask,
		arpTable: arp.NewTable(),
		sched:    sched,
		pending:  make(map[string][]*pendingSend),
	}, nil
}

// ID 设备标识
func (h *Host) ID() string {
	return h.id
}

// Ports 端口管理器
func (h *Host) Ports() *ports.Manager {
	return h.ports
}

// IP 主机IP地址
func (h *Host) IP() packet.IPAddress {
	return h.ip
}

// MAC 主机MAC地址
func (h *Host) MAC() packet.MACAddress {
	port, _ := h.ports.GetPort(h.portName)
	return port.MAC
}

// ARPTable 主机ARP缓存
func (h *Host) ARPTable() *arp.Table {
	return h.arpTable
}

// SetGateway 设置默认网关
func (h *Host) SetGateway(gw packet.IPAddress) {
	h.gateway = &gw
}

// Stats 获取统计信息快照
func (h *Host) Stats() HostStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// ReceiveFrame 入帧处理
func (h *Host) ReceiveFrame(frame *packet.EthernetFrame, port string) {
	h.mu.Lock()
	h.stats.FramesReceived++
	h.mu.Unlock()

	mac := h.MAC()
	if !frame.IsBroadcast() && frame.Destination != mac {
		return
	}

	switch frame.EtherType {
	case packet.EtherTypeARP:
		h.handleARP(frame)
	case packet.EtherTypeIPv4:
		h.handleIPv4(frame)
	}
}

// handleARP 处理ARP帧：学习发送方映射、冲刷待发队列、
// 应答询问本机IP的请求
func (h *Host) handleARP(frame *packet.EthernetFrame) {
	arpPkt, err := arp.Parse(frame.Payload)
	if err != nil {
		return
	}

	h.arpTable.ProcessPacket(arpPkt, h.portName)
	h.flushPending(arpPkt.SenderProtocolAddr, arpPkt.SenderHardwareAddr)

	if arpPkt.IsRequest() && !arp.IsGratuitous(arpPkt) && arpPkt.TargetProtocolAddr == h.ip {
		reply := arp.NewReply(h.ip, h.MAC(), arpPkt.SenderProtocolAddr, arpPkt.SenderHardwareAddr)
		h.ports.Transmit(h.portName, &packet.EthernetFrame{
			Source:      h.MAC(),
			Destination: arpPkt.SenderHardwareAddr,
			EtherType:   packet.EtherTypeARP,
			Payload:     arp.Serialize(reply),
		})
	}
}

// handleIPv4 处理IPv4帧：目标为本机时应答回显请求、记录回显应答
func (h *Host) handleIPv4(frame *packet.EthernetFrame) {
	ipPkt := frame.IPv4
	if ipPkt == nil || ipPkt.Destination != h.ip {
		return
	}
	if ipPkt.Protocol != packet.ProtocolICMP || ipPkt.ICMP == nil {
		return
	}

	switch ipPkt.ICMP.Type {
	case packet.ICMPTypeEchoRequest:
		h.mu.Lock()
		h.stats.EchoRequestsReceived++
		h.mu.Unlock()

		reply := &packet.IPv4Packet{
			Version:     packet.IPv4Version,
			IHL:         packet.IPv4MinIHL,
			TotalLength: packet.IPv4MinIHL*4 + ipPkt.ICMP.Length(),
			TTL:         packet.DefaultTTL,
			Protocol:    packet.ProtocolICMP,
			Source:      h.ip,
			Destination: ipPkt.Source,
			ICMP:        packet.NewEchoReply(ipPkt.ICMP),
		}
		reply.UpdateChecksum()
		h.sendIPv4(reply)

	case packet.ICMPTypeEchoReply:
		h.mu.Lock()
		h.stats.EchoRepliesReceived++
		h.mu.Unlock()
	}
}

// Ping 向目标IP发送一个ICMP回显请求
func (h *Host) Ping(dst packet.IPAddress, id, seq, dataSize int) {
	request := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: packet.IPv4MinIHL*4 + packet.ICMPHeaderSize + dataSize,
		TTL:         packet.DefaultTTL,
		Protocol:    packet.ProtocolICMP,
		Source:      h.ip,
		Destination: dst,
		ICMP:        packet.NewEchoRequest(id, seq, dataSize),
	}
	request.UpdateChecksum()

	h.mu.Lock()
	h.stats.EchoRequestsSent++
	h.mu.Unlock()

	h.sendIPv4(request)
}

// SendIPv4 发送任意IPv4数据包（源地址为本机）
func (h *Host) SendIPv4(ipPkt *packet.IPv4Packet) {
	h.sendIPv4(ipPkt)
}

// sendIPv4 发送数据包：目标在同一子网时直接解析目标MAC，
// 否则解析默认网关的MAC；未解析时排队并发出ARP请求
func (h *Host) sendIPv4(ipPkt *packet.IPv4Packet) {
	nextHop := ipPkt.Destination
	if !h.mask.SameSubnet(h.ip, ipPkt.Destination) {
		if h.gateway == nil {
			// 跨子网且没有网关，丢弃
			return
		}
		nextHop = *h.gateway
	}

	if mac, ok := h.arpTable.Resolve(nextHop); ok {
		h.transmit(ipPkt, mac)
		return
	}

	h.queueAndResolve(ipPkt, nextHop)
}

// queueAndResolve 排队等待ARP解析
// 与路由器的待解析队列相同的规则：每包独立超时、静默丢弃、
// 队列非空期间对同一下一跳最多一个未完成请求
func (h *Host) queueAndResolve(ipPkt *packet.IPv4Packet, nextHop packet.IPAddress) {
	key := nextHop.String()

	h.mu.Lock()
	queue, exists := h.pending[key]

	entry := &pendingSend{ipPkt: ipPkt}
	entry.timer = h.sched.After(forwarding.ArpQueueTimeout, func() {
		h.expirePending(key, entry)
	})
	h.pending[key] = append(queue, entry)
	needRequest := !exists
	h.mu.Unlock()

	if needRequest {
		request := arp.NewRequest(h.ip, h.MAC(), nextHop)
		h.ports.Transmit(h.portName, &packet.EthernetFrame{
			Source:      h.MAC(),
			Destination: packet.BroadcastMAC,
			EtherType:   packet.EtherTypeARP,
			Payload:     arp.Serialize(request),
		})
	}
}

// expirePending 排队数据包超时，静默丢弃
func (h *Host) expirePending(key string, entry *pendingSend) {
	h.mu.Lock()
	defer h.mu.Unlock()

	queue, exists := h.pending[key]
	if !exists {
		return
	}
	for i, p := range queue {
		if p == entry {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(h.pending, key)
	} else {
		h.pending[key] = queue
	}
}

// flushPending 用新学习的MAC冲刷待发队列
func (h *Host) flushPending(ip packet.IPAddress, mac packet.MACAddress) {
	key := ip.String()

	h.mu.Lock()
	queue, exists := h.pending[key]
	if !exists {
		h.mu.Unlock()
		return
	}
	delete(h.pending, key)
	h.mu.Unlock()

	for _, entry := range queue {
		entry.timer.Cancel()
		h.transmit(entry.ipPkt, mac)
	}
}

// transmit 完成二层封装并发送
func (h *Host) transmit(ipPkt *packet.IPv4Packet, destMAC packet.MACAddress) {
	h.ports.Transmit(h.portName, &packet.EthernetFrame{
		Source:      h.MAC(),
		Destination: destMAC,
		EtherType:   packet.EtherTypeIPv4,
		IPv4:        ipPkt,
	})
}

// AnnounceGratuitousARP 广播一个免费ARP，主动宣告本机的地址映射
func (h *Host) AnnounceGratuitousARP() {
	gratuitous := arp.NewGratuitous(h.ip, h.MAC())
	h.ports.Transmit(h.portName, &packet.EthernetFrame{
		Source:      h.MAC(),
		Destination: packet.BroadcastMAC,
		EtherType:   packet.EtherTypeARP,
		Payload:     arp.Serialize(gratuitous),
	})
}
