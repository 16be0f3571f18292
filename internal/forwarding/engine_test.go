package forwarding

import (
	"testing"

	"netsim-os/internal/arp"
	"netsim-os/internal/packet"
	"netsim-os/internal/ports"
	"netsim-os/internal/routing"
	"netsim-os/internal/scheduler"
)

// testRouter 测试用的转发引擎装置
// 双接口路由器：eth0为192.168.1.1/24，eth1为10.0.0.1/24，
// 每个接口的出帧被捕获到对应切片里
type testRouter struct {
	engine *Engine
	clock  *scheduler.Virtual
	ports  *ports.Manager

	macEth0 packet.MACAddress
	macEth1 packet.MACAddress

	sentEth0 []*packet.EthernetFrame
	sentEth1 []*packet.EthernetFrame
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()

	tr := &testRouter{
		clock:   scheduler.NewVirtual(),
		macEth0: packet.MustParseMAC("02:00:00:00:00:01"),
		macEth1: packet.MustParseMAC("02:00:00:00:00:02"),
	}

	tr.ports = ports.NewManager()
	if err := tr.ports.AddPort("eth0", tr.macEth0); err != nil {
		t.Fatalf("AddPort failed: %v", err)
	}
	if err := tr.ports.AddPort("eth1", tr.macEth1); err != nil {
		t.Fatalf("AddPort failed: %v", err)
	}

	_ = tr.ports.SetTransmit("eth0", func(frame *packet.EthernetFrame) {
		tr.sentEth0 = append(tr.sentEth0, frame)
	})
	_ = tr.ports.SetTransmit("eth1", func(frame *packet.EthernetFrame) {
		tr.sentEth1 = append(tr.sentEth1, frame)
	})

	tr.engine = NewEngine(routing.NewTable(), arp.NewTable(), tr.ports, tr.clock)

	if err := tr.engine.ConfigureInterface("eth0",
		packet.MustParseIPv4("192.168.1.1"), packet.MustParseMask("255.255.255.0")); err != nil {
		t.Fatalf("ConfigureInterface failed: %v", err)
	}
	if err := tr.engine.ConfigureInterface("eth1",
		packet.MustParseIPv4("10.0.0.1"), packet.MustParseMask("255.255.255.0")); err != nil {
		t.Fatalf("ConfigureInterface failed: %v", err)
	}

	return tr
}

// ipv4Frame 构造一个目标为eth0接口MAC的IPv4帧
func (tr *testRouter) ipv4Frame(src, dst string, ttl int) *packet.EthernetFrame {
	ipPkt := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: 84,
		TTL:         ttl,
		Protocol:    packet.ProtocolUDP,
		Source:      packet.MustParseIPv4(src),
		Destination: packet.MustParseIPv4(dst),
	}
	ipPkt.UpdateChecksum()

	return &packet.EthernetFrame{
		Source:      packet.MustParseMAC("AA:BB:CC:DD:EE:01"),
		Destination: tr.macEth0,
		EtherType:   packet.EtherTypeIPv4,
		IPv4:        ipPkt,
	}
}

func TestConfigureInterfaceConnectedRoute(t *testing.T) {
	tr := newTestRouter(t)

	routes := tr.engine.RoutingTable().Routes()
	if len(routes) != 2 {
		t.Fatalf("Expected 2 connected routes, got %d", len(routes))
	}
	for _, route := range routes {
		if route.Type != routing.RouteTypeConnected {
			t.Errorf("Expected connected route, got %v", route.Type)
		}
		if route.NextHop != nil {
			t.Error("Connected route must have nil next hop")
		}
	}

	// 重新配置同一接口不产生重复的直连路由
	if err := tr.engine.ConfigureInterface("eth0",
		packet.MustParseIPv4("192.168.2.1"), packet.MustParseMask("255.255.255.0")); err != nil {
		t.Fatalf("ConfigureInterface failed: %v", err)
	}
	if size := tr.engine.RoutingTable().Size(); size != 2 {
		t.Errorf("Expected 2 routes after reconfiguration, got %d", size)
	}
}

func TestStaticRouteReachability(t *testing.T) {
	tr := newTestRouter(t)

	// 下一跳在eth1子网内，可达
	if !tr.engine.AddStaticRoute(
		packet.MustParseIPv4("172.16.0.0"), packet.MustParseMask("255.255.0.0"),
		packet.MustParseIPv4("10.0.0.254"), 1) {
		t.Error("Expected static route with reachable next hop to be accepted")
	}

	// 下一跳不在任何接口子网内，拒绝
	if tr.engine.AddStaticRoute(
		packet.MustParseIPv4("172.17.0.0"), packet.MustParseMask("255.255.0.0"),
		packet.MustParseIPv4("203.0.113.1"), 1) {
		t.Error("Expected static route with unreachable next hop to be rejected")
	}
	if size := tr.engine.RoutingTable().Size(); size != 3 {
		t.Errorf("Expected 3 routes, got %d", size)
	}
}

func TestHeaderErrorDrop(t *testing.T) {
	tr := newTestRouter(t)

	frame := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64)
	frame.IPv4.HeaderChecksum ^= 0xFFFF

	tr.engine.HandleFrame(frame, "eth0")

	c := tr.engine.Counters()
	if c.IPInHdrErrors != 1 {
		t.Errorf("Expected 1 header error, got %d", c.IPInHdrErrors)
	}
	// 头部错误静默丢弃，不回送ICMP
	if c.ICMPOutMsgs != 0 {
		t.Errorf("Expected no ICMP output, got %d", c.ICMPOutMsgs)
	}
	if len(tr.sentEth0) != 0 || len(tr.sentEth1) != 0 {
		t.Error("Expected no frames sent for header error")
	}
}

func TestNoRouteDestinationUnreachable(t *testing.T) {
	tr := newTestRouter(t)

	// 源MAC已缓存，差错可直接发送
	srcMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	tr.engine.ARPTable().Learn(packet.MustParseIPv4("192.168.1.10"), srcMAC, "eth0")

	frame := tr.ipv4Frame("192.168.1.10", "203.0.113.5", 64)
	tr.engine.HandleFrame(frame, "eth0")

	c := tr.engine.Counters()
	if c.IPInAddrErrors != 1 {
		t.Errorf("Expected 1 address error, got %d", c.IPInAddrErrors)
	}
	if c.ICMPOutDestUnreachs != 1 {
		t.Errorf("Expected 1 destination unreachable, got %d", c.ICMPOutDestUnreachs)
	}
	if c.IPForwDatagrams != 0 {
		t.Errorf("Expected no forwarded datagrams, got %d", c.IPForwDatagrams)
	}

	if len(tr.sentEth0) != 1 {
		t.Fatalf("Expected 1 frame on eth0, got %d", len(tr.sentEth0))
	}
	errPkt := tr.sentEth0[0].IPv4
	if errPkt.ICMP == nil || errPkt.ICMP.Type != packet.ICMPTypeDestinationUnreachable {
		t.Fatal("Expected ICMP destination unreachable")
	}
	if errPkt.ICMP.Code != packet.CodeNetUnreachable {
		t.Errorf("Expected code %d, got %d", packet.CodeNetUnreachable, errPkt.ICMP.Code)
	}
	// 差错以入接口IP为源，发往原始数据包的源
	if errPkt.Source != packet.MustParseIPv4("192.168.1.1") {
		t.Errorf("Expected error source 192.168.1.1, got %s", errPkt.Source)
	}
	if errPkt.Destination != packet.MustParseIPv4("192.168.1.10") {
		t.Errorf("Expected error destination 192.168.1.10, got %s", errPkt.Destination)
	}
	if errPkt.ICMP.DataSize != packet.ICMPErrorDataSize {
		t.Errorf("Expected %d bytes of error payload, got %d", packet.ICMPErrorDataSize, errPkt.ICMP.DataSize)
	}
}

func TestTTLExpiry(t *testing.T) {
	tr := newTestRouter(t)

	srcMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	tr.engine.ARPTable().Learn(packet.MustParseIPv4("192.168.1.10"), srcMAC, "eth0")
	tr.engine.ARPTable().Learn(packet.MustParseIPv4("10.0.0.5"), packet.MustParseMAC("AA:BB:CC:DD:EE:05"), "eth1")

	// TTL=1的包递减后耗尽，绝不转发
	frame := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 1)
	tr.engine.HandleFrame(frame, "eth0")

	c := tr.engine.Counters()
	if c.ICMPOutTimeExcds != 1 {
		t.Errorf("Expected 1 time exceeded, got %d", c.ICMPOutTimeExcds)
	}
	if c.IPForwDatagrams != 0 {
		t.Errorf("Expected no forwarded datagrams, got %d", c.IPForwDatagrams)
	}
	if len(tr.sentEth1) != 0 {
		t.Error("TTL-expired packet must not reach the egress interface")
	}

	if len(tr.sentEth0) != 1 {
		t.Fatalf("Expected 1 error frame on eth0, got %d", len(tr.sentEth0))
	}
	errPkt := tr.sentEth0[0].IPv4
	if errPkt.ICMP == nil || errPkt.ICMP.Type != packet.ICMPTypeTimeExceeded {
		t.Fatal("Expected ICMP time exceeded")
	}
}

func TestForwarding(t *testing.T) {
	tr := newTestRouter(t)

	destMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:05")
	tr.engine.ARPTable().Learn(packet.MustParseIPv4("10.0.0.5"), destMAC, "eth1")

	frame := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64)
	tr.engine.HandleFrame(frame, "eth0")

	if len(tr.sentEth1) != 1 {
		t.Fatalf("Expected 1 forwarded frame on eth1, got %d", len(tr.sentEth1))
	}

	out := tr.sentEth1[0]
	// 二层地址重写
	if out.Source != tr.macEth1 {
		t.Errorf("Expected source MAC rewritten to egress MAC, got %s", out.Source)
	}
	if out.Destination != destMAC {
		t.Errorf("Expected destination MAC of the next hop, got %s", out.Destination)
	}

	// TTL减1且校验和重算
	if out.IPv4.TTL != 63 {
		t.Errorf("Expected TTL 63, got %d", out.IPv4.TTL)
	}
	if !out.IPv4.ChecksumValid() {
		t.Error("Expected valid checksum after TTL decrement")
	}
	// 原始数据包不被修改
	if frame.IPv4.TTL != 64 {
		t.Errorf("Original packet must not be modified, TTL is %d", frame.IPv4.TTL)
	}

	c := tr.engine.Counters()
	if c.IPForwDatagrams != 1 {
		t.Errorf("Expected 1 forwarded datagram, got %d", c.IPForwDatagrams)
	}
	if c.IPInReceives != 1 {
		t.Errorf("Expected 1 received datagram, got %d", c.IPInReceives)
	}
	if c.IPInOctets != 84 || c.IPOutOctets != 84 {
		t.Errorf("Expected 84 octets in and out, got %d/%d", c.IPInOctets, c.IPOutOctets)
	}
}

func TestMTUWithDontFragment(t *testing.T) {
	tr := newTestRouter(t)

	srcMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	tr.engine.ARPTable().Learn(packet.MustParseIPv4("192.168.1.10"), srcMAC, "eth0")
	tr.engine.ARPTable().Learn(packet.MustParseIPv4("10.0.0.5"), packet.MustParseMAC("AA:BB:CC:DD:EE:05"), "eth1")

	// 超MTU且DF置位：需要分片差错
	frame := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64)
	frame.IPv4.TotalLength = packet.DefaultMTU + 100
	frame.IPv4.Flags = packet.FlagDontFragment
	frame.IPv4.UpdateChecksum()

	tr.engine.HandleFrame(frame, "eth0")

	c := tr.engine.Counters()
	if c.ICMPOutDestUnreachs != 1 {
		t.Errorf("Expected 1 fragmentation needed error, got %d", c.ICMPOutDestUnreachs)
	}
	if len(tr.sentEth0) != 1 {
		t.Fatalf("Expected 1 error frame on eth0, got %d", len(tr.sentEth0))
	}
	errPkt := tr.sentEth0[0].IPv4
	if errPkt.ICMP.Code != packet.CodeFragmentationNeeded {
		t.Errorf("Expected code %d, got %d", packet.CodeFragmentationNeeded, errPkt.ICMP.Code)
	}
	if len(tr.sentEth1) != 0 {
		t.Error("Oversized DF packet must not be forwarded")
	}

	// DF未置位的超长包原样转发
	frame2 := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64)
	frame2.IPv4.TotalLength = packet.DefaultMTU + 100
	frame2.IPv4.UpdateChecksum()

	tr.engine.HandleFrame(frame2, "eth0")

	if len(tr.sentEth1) != 1 {
		t.Errorf("Expected oversized non-DF packet to be forwarded, got %d frames", len(tr.sentEth1))
	}
}

func TestPendingQueueFlush(t *testing.T) {
	tr := newTestRouter(t)
	nextHop := packet.MustParseIPv4("10.0.0.5")

	// 下一跳未解析：两个包排队，但只发出一个ARP请求
	tr.engine.HandleFrame(tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64), "eth0")
	tr.engine.HandleFrame(tr.ipv4Frame("192.168.1.11", "10.0.0.5", 64), "eth0")

	if tr.engine.PendingPacketCount(nextHop) != 2 {
		t.Fatalf("Expected 2 pending packets, got %d", tr.engine.PendingPacketCount(nextHop))
	}

	arpRequests := 0
	for _, f := range tr.sentEth1 {
		if f.EtherType == packet.EtherTypeARP && f.IsBroadcast() {
			arpRequests++
		}
	}
	if arpRequests != 1 {
		t.Errorf("Expected exactly 1 ARP request while queue is non-empty, got %d", arpRequests)
	}

	// ARP应答到达：队列按顺序全部冲刷
	destMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:05")
	reply := arp.NewReply(nextHop, destMAC, packet.MustParseIPv4("10.0.0.1"), tr.macEth1)
	tr.engine.HandleFrame(&packet.EthernetFrame{
		Source:      destMAC,
		Destination: tr.macEth1,
		EtherType:   packet.EtherTypeARP,
		Payload:     arp.Serialize(reply),
	}, "eth1")

	if tr.engine.PendingPacketCount(nextHop) != 0 {
		t.Errorf("Expected empty queue after flush, got %d", tr.engine.PendingPacketCount(nextHop))
	}

	var forwarded []*packet.EthernetFrame
	for _, f := range tr.sentEth1 {
		if f.EtherType == packet.EtherTypeIPv4 {
			forwarded = append(forwarded, f)
		}
	}
	if len(forwarded) != 2 {
		t.Fatalf("Expected 2 flushed packets, got %d", len(forwarded))
	}
	// 冲刷保持排队顺序
	if forwarded[0].IPv4.Source != packet.MustParseIPv4("192.168.1.10") {
		t.Error("Expected flush to preserve queue order")
	}
	for _, f := range forwarded {
		if f.Destination != destMAC {
			t.Errorf("Expected flushed frame addressed to resolved MAC, got %s", f.Destination)
		}
	}

	if c := tr.engine.Counters(); c.IPForwDatagrams != 2 {
		t.Errorf("Expected 2 forwarded datagrams, got %d", c.IPForwDatagrams)
	}

	// 冲刷后时间推进不触发悬挂的超时回调
	tr.clock.Advance(ArpQueueTimeout * 2)
	if c := tr.engine.Counters(); c.IPForwDatagrams != 2 {
		t.Errorf("Expected counters unchanged after timers expire, got %d", c.IPForwDatagrams)
	}
}

func TestPendingTimeout(t *testing.T) {
	tr := newTestRouter(t)
	nextHop := packet.MustParseIPv4("10.0.0.5")

	tr.engine.HandleFrame(tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64), "eth0")

	if tr.engine.PendingPacketCount(nextHop) != 1 {
		t.Fatalf("Expected 1 pending packet, got %d", tr.engine.PendingPacketCount(nextHop))
	}

	// 超时后排队数据包被静默丢弃
	tr.clock.Advance(ArpQueueTimeout)

	if tr.engine.PendingPacketCount(nextHop) != 0 {
		t.Errorf("Expected queue drained after timeout, got %d", tr.engine.PendingPacketCount(nextHop))
	}
	if c := tr.engine.Counters(); c.IPForwDatagrams != 0 {
		t.Errorf("Expected no forwarded datagrams, got %d", c.IPForwDatagrams)
	}

	// 队列清空后，对同一下一跳的新包重新发出ARP请求
	tr.engine.HandleFrame(tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64), "eth0")

	arpRequests := 0
	for _, f := range tr.sentEth1 {
		if f.EtherType == packet.EtherTypeARP {
			arpRequests++
		}
	}
	if arpRequests != 2 {
		t.Errorf("Expected a new ARP request after the queue was drained, got %d", arpRequests)
	}
}

func TestEchoReply(t *testing.T) {
	tr := newTestRouter(t)

	srcIP := packet.MustParseIPv4("192.168.1.10")
	srcMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	tr.engine.ARPTable().Learn(srcIP, srcMAC, "eth0")

	icmp := packet.NewEchoRequest(1234, 1, 32)
	ipPkt := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: packet.IPv4MinIHL*4 + icmp.Length(),
		TTL:         7,
		Protocol:    packet.ProtocolICMP,
		Source:      srcIP,
		Destination: packet.MustParseIPv4("192.168.1.1"),
		ICMP:        icmp,
	}
	ipPkt.UpdateChecksum()

	tr.engine.HandleFrame(&packet.EthernetFrame{
		Source:      srcMAC,
		Destination: tr.macEth0,
		EtherType:   packet.EtherTypeIPv4,
		IPv4:        ipPkt,
	}, "eth0")

	c := tr.engine.Counters()
	if c.IPInDelivers != 1 {
		t.Errorf("Expected 1 local delivery, got %d", c.IPInDelivers)
	}
	if c.ICMPOutEchoReps != 1 {
		t.Errorf("Expected 1 echo reply, got %d", c.ICMPOutEchoReps)
	}

	if len(tr.sentEth0) != 1 {
		t.Fatalf("Expected 1 reply frame, got %d", len(tr.sentEth0))
	}
	reply := tr.sentEth0[0].IPv4
	if reply.ICMP.Type != packet.ICMPTypeEchoReply {
		t.Fatal("Expected echo reply")
	}
	// 地址互换，ID/序列号/数据长度保持
	if reply.Source != packet.MustParseIPv4("192.168.1.1") || reply.Destination != srcIP {
		t.Error("Expected reply addresses swapped")
	}
	if reply.ICMP.ID != 1234 || reply.ICMP.Sequence != 1 || reply.ICMP.DataSize != 32 {
		t.Error("Expected reply to preserve ID, sequence and data size")
	}
	// 应答是本设备始发的新包，TTL为默认值
	if reply.TTL != packet.DefaultTTL {
		t.Errorf("Expected TTL %d, got %d", packet.DefaultTTL, reply.TTL)
	}
}

func TestEchoReplyToFarInterfaceIP(t *testing.T) {
	tr := newTestRouter(t)

	srcIP := packet.MustParseIPv4("192.168.1.10")
	srcMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	tr.engine.ARPTable().Learn(srcIP, srcMAC, "eth0")

	// 从eth0收到的请求，询问的却是eth1接口的IP
	icmp := packet.NewEchoRequest(77, 1, 32)
	ipPkt := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: packet.IPv4MinIHL*4 + icmp.Length(),
		TTL:         64,
		Protocol:    packet.ProtocolICMP,
		Source:      srcIP,
		Destination: packet.MustParseIPv4("10.0.0.1"),
		ICMP:        icmp,
	}
	ipPkt.UpdateChecksum()

	tr.engine.HandleFrame(&packet.EthernetFrame{
		Source:      srcMAC,
		Destination: tr.macEth0,
		EtherType:   packet.EtherTypeIPv4,
		IPv4:        ipPkt,
	}, "eth0")

	// 应答从学习到源映射的接口发回，而不是被询问IP所在的接口
	if len(tr.sentEth1) != 0 {
		t.Errorf("Expected no frames toward the far segment, got %d", len(tr.sentEth1))
	}
	if len(tr.sentEth0) != 1 {
		t.Fatalf("Expected 1 reply frame on eth0, got %d", len(tr.sentEth0))
	}

	out := tr.sentEth0[0]
	if out.Destination != srcMAC {
		t.Errorf("Expected reply addressed to %s, got %s", srcMAC, out.Destination)
	}
	if out.Source != tr.macEth0 {
		t.Errorf("Expected source MAC of the egress interface, got %s", out.Source)
	}
	reply := out.IPv4
	if reply.ICMP.Type != packet.ICMPTypeEchoReply {
		t.Fatal("Expected echo reply")
	}
	// 应答的源仍是被询问的接口IP
	if reply.Source != packet.MustParseIPv4("10.0.0.1") || reply.Destination != srcIP {
		t.Error("Expected reply addresses swapped")
	}
}

func TestEchoReplyDroppedWhenSourceUnresolved(t *testing.T) {
	tr := newTestRouter(t)

	// 源MAC未缓存：应答被静默丢弃，不排队
	icmp := packet.NewEchoRequest(1, 1, 32)
	ipPkt := &packet.IPv4Packet{
		Version:     packet.IPv4Version,
		IHL:         packet.IPv4MinIHL,
		TotalLength: packet.IPv4MinIHL*4 + icmp.Length(),
		TTL:         64,
		Protocol:    packet.ProtocolICMP,
		Source:      packet.MustParseIPv4("192.168.1.10"),
		Destination: packet.MustParseIPv4("192.168.1.1"),
		ICMP:        icmp,
	}
	ipPkt.UpdateChecksum()

	tr.engine.HandleFrame(&packet.EthernetFrame{
		Source:      packet.MustParseMAC("AA:BB:CC:DD:EE:01"),
		Destination: tr.macEth0,
		EtherType:   packet.EtherTypeIPv4,
		IPv4:        ipPkt,
	}, "eth0")

	c := tr.engine.Counters()
	if c.IPInDelivers != 1 {
		t.Errorf("Expected 1 local delivery, got %d", c.IPInDelivers)
	}
	if c.ICMPOutEchoReps != 0 {
		t.Errorf("Expected no echo reply, got %d", c.ICMPOutEchoReps)
	}
	if len(tr.sentEth0) != 0 {
		t.Error("Expected no frames sent")
	}
	if tr.engine.PendingPacketCount(packet.MustParseIPv4("192.168.1.10")) != 0 {
		t.Error("Echo reply must not be queued for ARP resolution")
	}
}

func TestIngressFilter(t *testing.T) {
	tr := newTestRouter(t)

	// 目标MAC既非广播也非本接口MAC：阶段A丢弃，不计数
	frame := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64)
	frame.Destination = packet.MustParseMAC("AA:BB:CC:DD:EE:99")

	tr.engine.HandleFrame(frame, "eth0")

	if c := tr.engine.Counters(); c.IPInReceives != 0 {
		t.Errorf("Expected frame dropped before IP counters, got %d receives", c.IPInReceives)
	}
}

func TestARPRequestReply(t *testing.T) {
	tr := newTestRouter(t)

	senderMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	senderIP := packet.MustParseIPv4("192.168.1.10")

	// 询问本接口IP的广播请求
	request := arp.NewRequest(senderIP, senderMAC, packet.MustParseIPv4("192.168.1.1"))
	tr.engine.HandleFrame(&packet.EthernetFrame{
		Source:      senderMAC,
		Destination: packet.BroadcastMAC,
		EtherType:   packet.EtherTypeARP,
		Payload:     arp.Serialize(request),
	}, "eth0")

	// 发送方映射被学习
	if mac, ok := tr.engine.ARPTable().Resolve(senderIP); !ok || mac != senderMAC {
		t.Error("Expected sender mapping to be learned")
	}

	// 单播应答
	if len(tr.sentEth0) != 1 {
		t.Fatalf("Expected 1 ARP reply, got %d frames", len(tr.sentEth0))
	}
	out := tr.sentEth0[0]
	if out.Destination != senderMAC {
		t.Errorf("Expected unicast reply to %s, got %s", senderMAC, out.Destination)
	}
	reply, err := arp.Parse(out.Payload)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !reply.IsReply() {
		t.Error("Expected reply operation")
	}
	if reply.SenderProtocolAddr != packet.MustParseIPv4("192.168.1.1") || reply.SenderHardwareAddr != tr.macEth0 {
		t.Error("Expected reply to carry the interface mapping")
	}
}

func TestGratuitousARPNoReply(t *testing.T) {
	tr := newTestRouter(t)

	senderMAC := packet.MustParseMAC("AA:BB:CC:DD:EE:01")
	senderIP := packet.MustParseIPv4("192.168.1.10")

	gratuitous := arp.NewGratuitous(senderIP, senderMAC)
	tr.engine.HandleFrame(&packet.EthernetFrame{
		Source:      senderMAC,
		Destination: packet.BroadcastMAC,
		EtherType:   packet.EtherTypeARP,
		Payload:     arp.Serialize(gratuitous),
	}, "eth0")

	// 学习但不应答
	if _, ok := tr.engine.ARPTable().Resolve(senderIP); !ok {
		t.Error("Expected gratuitous ARP sender to be learned")
	}
	if len(tr.sentEth0) != 0 {
		t.Errorf("Expected no reply to gratuitous ARP, got %d frames", len(tr.sentEth0))
	}
}

func TestPortDownDropsFrames(t *testing.T) {
	tr := newTestRouter(t)

	_ = tr.ports.SetUp("eth0", false)

	tr.engine.HandleFrame(tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64), "eth0")

	if c := tr.engine.Counters(); c.IPInReceives != 0 {
		t.Errorf("Expected frames on a down port to be dropped, got %d receives", c.IPInReceives)
	}
}

func TestResetCounters(t *testing.T) {
	tr := newTestRouter(t)

	frame := tr.ipv4Frame("192.168.1.10", "10.0.0.5", 64)
	frame.IPv4.HeaderChecksum ^= 0xFFFF
	tr.engine.HandleFrame(frame, "eth0")

	if tr.engine.Counters().IPInHdrErrors != 1 {
		t.Fatal("Expected a header error before reset")
	}

	tr.engine.ResetCounters()

	if tr.engine.Counters() != (CounterSnapshot{}) {
		t.Error("Expected all counters zero after reset")
	}
}
