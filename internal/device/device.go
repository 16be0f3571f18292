package device

import (
	"netsim-os/internal/packet"
	"netsim-os/internal/ports"
)

// Device 网络设备
// 拓扑层通过该接口向设备投递入方向的帧
// 设备对每帧的处理是同步的：处理完一帧才接收下一帧，
// 因此设备内部的MAC表、路由表、ARP表和计数器不存在数据竞争
type Device interface {
	// ID 设备标识
	ID() string

	// Ports 设备的端口管理器
	Ports() *ports.Manager

	// ReceiveFrame 入帧处理入口
	ReceiveFrame(frame *packet.EthernetFrame, port string)
}
