package arp

import (
	"fmt"

	"netsim-os/internal/packet"
)

// ARPPacket ARP数据包结构
type ARPPacket struct {
	HardwareType       uint16           // 硬件类型 (1 = Ethernet)
	ProtocolType       uint16           // 协议类型 (0x0800 = IPv4)
	HardwareAddrLength uint8            // 硬件地址长度 (6 for MAC)
	ProtocolAddrLength uint8            // 协议地址长度 (4 for IPv4)
	Operation          uint16           // 操作类型 (1 = Request, 2 = Reply)
	SenderHardwareAddr packet.MACAddress // 发送方MAC地址
	SenderProtocolAddr packet.IPAddress  // 发送方IP地址
	TargetHardwareAddr packet.MACAddress // 目标MAC地址
	TargetProtocolAddr packet.IPAddress  // 目标IP地址
}

// ARP协议常量
const (
	HardwareTypeEthernet = 1
	ProtocolTypeIPv4     = 0x0800
	OperationRequest     = 1
	OperationReply       = 2
	HardwareAddrLen      = 6
	ProtocolAddrLen      = 4
	PacketSize           = 28
)

// NewRequest 构造ARP请求
// 询问targetIP对应的MAC地址，目标硬件地址字段置零
// 请求帧以广播方式发送
func NewRequest(senderIP packet.IPAddress, senderMAC packet.MACAddress, targetIP packet.IPAddress) *ARPPacket {
	return &ARPPacket{
		HardwareType:       HardwareTypeEthernet,
		ProtocolType:       ProtocolTypeIPv4,
		HardwareAddrLength: HardwareAddrLen,
		ProtocolAddrLength: ProtocolAddrLen,
		Operation:          OperationRequest,
		SenderHardwareAddr: senderMAC,
		SenderProtocolAddr: senderIP,
		TargetHardwareAddr: packet.ZeroMAC,
		TargetProtocolAddr: targetIP,
	}
}

// NewReply 构造ARP应答
// 将senderIP/senderMAC的映射告知targetIP/targetMAC
func NewReply(senderIP packet.IPAddress, senderMAC packet.MACAddress, targetIP packet.IPAddress, targetMAC packet.MACAddress) *ARPPacket {
	return &ARPPacket{
		HardwareType:       HardwareTypeEthernet,
		ProtocolType:       ProtocolTypeIPv4,
		HardwareAddrLength: HardwareAddrLen,
		ProtocolAddrLength: ProtocolAddrLen,
		Operation:          OperationReply,
		SenderHardwareAddr: senderMAC,
		SenderProtocolAddr: senderIP,
		TargetHardwareAddr: targetMAC,
		TargetProtocolAddr: targetIP,
	}
}

// NewGratuitous 构造免费ARP
// 发送方IP与目标IP相同，用于主动宣告或刷新自身的地址映射
func NewGratuitous(ip packet.IPAddress, mac packet.MACAddress) *ARPPacket {
	return &ARPPacket{
		HardwareType:       HardwareTypeEthernet,
		ProtocolType:       ProtocolTypeIPv4,
		HardwareAddrLength: HardwareAddrLen,
		ProtocolAddrLength: ProtocolAddrLen,
		Operation:          OperationRequest,
		SenderHardwareAddr: mac,
		SenderProtocolAddr: ip,
		TargetHardwareAddr: packet.ZeroMAC,
		TargetProtocolAddr: ip,
	}
}

// IsGratuitous 判断是否为免费ARP（发送方IP等于目标IP）
func IsGratuitous(p *ARPPacket) bool {
	return p.SenderProtocolAddr == p.TargetProtocolAddr
}

// IsRequest 判断是否为ARP请求
func (p *ARPPacket) IsRequest() bool {
	return p.Operation == OperationRequest
}

// IsReply 判断是否为ARP应答
func (p *ARPPacket) IsReply() bool {
	return p.Operation == OperationReply
}

// Serialize 序列化ARP数据包
// 固定28字节的二进制编码，与Parse互为无损逆操作
//
// 编码格式：
//
//	[0:2]   硬件类型        [2:4]   协议类型
//	[4]     硬件地址长度     [5]     协议地址长度
//	[6:8]   操作类型
//	[8:14]  发送方MAC       [14:18] 发送方IP
//	[18:24] 目标MAC         [24:28] 目标IP
func Serialize(p *ARPPacket) []byte {
	data := make([]byte, PacketSize)

	data[0] = byte(p.HardwareType >> 8)
	data[1] = byte(p.HardwareType)
	data[2] = byte(p.ProtocolType >> 8)
	data[3] = byte(p.ProtocolType)
	data[4] = p.HardwareAddrLength
	data[5] = p.ProtocolAddrLength
	data[6] = byte(p.Operation >> 8)
	data[7] = byte(p.Operation)

	copy(data[8:14], p.SenderHardwareAddr[:])
	copy(data[14:18], p.SenderProtocolAddr[:])
	copy(data[18:24], p.TargetHardwareAddr[:])
	copy(data[24:28], p.TargetProtocolAddr[:])

	return data
}

// Parse 解析ARP数据包
func Parse(data []byte) (*ARPPacket, error) {
	if len(data) < PacketSize {
		return nil, fmt.Errorf("ARP数据包长度不足: %d < %d", len(data), PacketSize)
	}

	p := &ARPPacket{
		HardwareType:       uint16(data[0])<<8 | uint16(data[1]),
		ProtocolType:       uint16(data[2])<<8 | uint16(data[3]),
		HardwareAddrLength: data[4],
		ProtocolAddrLength: data[5],
		Operation:          uint16(data[6])<<8 | uint16(data[7]),
	}

	// 验证ARP包格式
	if p.HardwareType != HardwareTypeEthernet {
		return nil, fmt.Errorf("不支持的硬件类型: %d", p.HardwareType)
	}
	if p.ProtocolType != ProtocolTypeIPv4 {
		return nil, fmt.Errorf("不支持的协议类型: 0x%04x", p.ProtocolType)
	}
	if p.HardwareAddrLength != HardwareAddrLen {
		return nil, fmt.Errorf("无效的硬件地址长度: %d", p.HardwareAddrLength)
	}
	if p.ProtocolAddrLength != ProtocolAddrLen {
		return nil, fmt.Errorf("无效的协议地址长度: %d", p.ProtocolAddrLength)
	}
	if p.Operation != OperationRequest && p.Operation != OperationReply {
		return nil, fmt.Errorf("无效的操作类型: %d", p.Operation)
	}

	// 复制地址信息
	copy(p.SenderHardwareAddr[:], data[8:14])
	copy(p.SenderProtocolAddr[:], data[14:18])
	copy(p.TargetHardwareAddr[:], data[18:24])
	copy(p.TargetProtocolAddr[:], data[24:28])

	return p, nil
}
