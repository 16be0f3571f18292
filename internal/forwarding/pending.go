package forwarding

import (
	"time"

	"netsim-os/internal/arp"
	"netsim-os/internal/packet"
	"netsim-os/internal/scheduler"
)

// ArpQueueTimeout 排队数据包的ARP解析超时时间
// 超时的数据包被静默丢弃，不重试
const ArpQueueTimeout = 2 * time.Second

// pendingPacket 等待ARP解析的出方向数据包
type pendingPacket struct {
	// ipPacket 排队的IP数据包
	ipPacket *packet.IPv4Packet

	// iface 出接口名称
	iface string

	// nextHop 待解析的下一跳IP
	nextHop packet.IPAddress

	// timer 本数据包的独立超时定时器
	// 冲刷时必须取消，避免超时回调对已发送的包二次生效
	timer scheduler.Timer
}

// pendingQueue 单个下一跳IP的待解析队列
// 不变式：队列非空期间，对该下一跳最多发出一个ARP请求
type pendingQueue struct {
	// packets 排队的数据包
	packets []*pendingPacket

	// requestSent 是否已发出ARP请求
	requestSent bool
}

// queueAndResolve 把数据包挂入下一跳的待解析队列并按需发起ARP请求
// 转发路径（阶段E）和ICMP差错发送共用该入口
func (e *Engine) queueAndResolve(ipPkt *packet.IPv4Packet, iface string, nextHop packet.IPAddress) {
	key := nextHop.String()

	e.mu.Lock()

	q, exists := e.pending[key]
	if !exists {
		q = &pendingQueue{}
		e.pending[key] = q
	}

	entry := &pendingPacket{
		ipPacket: ipPkt,
		iface:    iface,
		nextHop:  nextHop,
	}
	entry.timer = e.sched.After(ArpQueueTimeout, func() {
		e.expirePending(key, entry)
	})
	q.packets = append(q.packets, entry)

	needRequest := !q.requestSent
	if needRequest {
		q.requestSent = true
	}

	e.mu.Unlock()

	if needRequest {
		e.sendARPRequest(iface, nextHop)
	}
}

// expirePending 单个排队数据包的超时处理
// 静默丢弃该数据包，不重试；队列清空时移除队列本身，
// 使后续对同一下一跳的排队重新发出ARP请求
func (e *Engine) expirePending(key string, entry *pendingPacket) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, exists := e.pending[key]
	if !exists {
		return
	}

	for i, p := range q.packets {
		if p == entry {
			q.packets = append(q.packets[:i], q.packets[i+1:]...)
			e.logger.Debug("ARP解析超时，丢弃排队数据包: 下一跳=%s 目标=%s",
				key, entry.ipPacket.Destination)
			break
		}
	}

	if len(q.packets) == 0 {
		delete(e.pending, key)
	}
}

// flushPacketQueue 用新学习到的MAC地址冲刷下一跳的待解析队列
// 每个排出的数据包：取消其超时定时器、完成二层封装并发送，
// 转发计数按包递增；队列连同未完成请求标记一并清除
func (e *Engine) flushPacketQueue(ip packet.IPAddress, mac packet.MACAddress) {
	key := ip.String()

	e.mu.Lock()
	q, exists := e.pending[key]
	if !exists {
		e.mu.Unlock()
		return
	}
	delete(e.pending, key)
	e.mu.Unlock()

	for _, entry := range q.packets {
		entry.timer.Cancel()
		e.transmitIPv4(entry.ipPacket, entry.iface, mac)
		e.counters.incForwarded(entry.ipPacket.TotalLength)
	}
}

// PendingPacketCount 返回指定下一跳当前排队的数据包数量
func (e *Engine) PendingPacketCount(nextHop packet.IPAddress) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, exists := e.pending[nextHop.String()]
	if !exists {
		return 0
	}
	return len(q.packets)
}

// sendARPRequest 在指定接口上广播一个ARP请求
func (e *Engine) sendARPRequest(iface string, targetIP packet.IPAddress) {
	port, err := e.ports.GetPort(iface)
	if err != nil || !port.HasIP() {
		return
	}

	request := arp.NewRequest(*port.IP, port.MAC, targetIP)
	frame := &packet.EthernetFrame{
		Source:      port.MAC,
		Destination: packet.BroadcastMAC,
		EtherType:   packet.EtherTypeARP,
		Payload:     arp.Serialize(request),
	}

	e.logger.Debug("发送ARP请求: 接口=%s 目标=%s", iface, targetIP)
	e.ports.Transmit(iface, frame)
}
