package device

import (
	"fmt"

	"netsim-os/internal/mactable"
	"netsim-os/internal/packet"
	"netsim-os/internal/ports"
	"netsim-os/internal/switching"
)

// Switch 二层交换机
// 基于MAC地址学习做 转发/泛洪/过滤 决策，并把帧从决策出的端口发出
type Switch struct {
	// id 设备标识
	id string

	// engine 交换转发引擎
	engine *switching.Engine

	// ports 端口管理器
	ports *ports.Manager
}

// NewSwitch 创建交换机
// portNames为交换机的端口列表，每个端口分配独立的MAC地址
func NewSwitch(id string, portNames []string) (*Switch, error) {
	manager := ports.NewManager()

	for i, name := range portNames {
		mac := deriveMAC(id, i)
		if err := manager.AddPort(name, mac); err != nil {
			return nil, fmt.Errorf("创建交换机端口失败: %w", err)
		}
	}

	engine := switching.NewEngine(mactable.NewTable())
	engine.SetPorts(portNames)

	return &Switch{
		id:     id,
		engine: engine,
		ports:  manager,
	}, nil
}

// ID 设备标识
func (s *Switch) ID() string {
	return s.id
}

// Ports 端口管理器
func (s *Switch) Ports() *ports.Manager {
	return s.ports
}

// Engine 交换引擎
func (s *Switch) Engine() *switching.Engine {
	return s.engine
}

// MACTable 获取MAC地址表
func (s *Switch) MACTable() *mactable.Table {
	return s.engine.MACTable()
}

// ReceiveFrame 入帧处理
// 交换引擎给出决策后把帧从所有决策端口发出
func (s *Switch) ReceiveFrame(frame *packet.EthernetFrame, port string) {
	s.ports.RecordRx(port)

	decision := s.engine.Forward(frame, port)
	for _, out := range decision.Ports {
		s.ports.Transmit(out, frame)
	}
}

// deriveMAC 从设备标识和端口序号生成确定性的MAC地址
// 本地管理地址位（第一个字节的bit 1）置位，保证不与真实硬件冲突
func deriveMAC(id string, index int) packet.MACAddress {
	var mac packet.MACAddress
	mac[0] = 0x02

	var sum int
	for _, c := range id {
		sum = (sum*31 + int(c)) & 0xFFFF
	}
	mac[1] = byte(sum >> 8)
	mac[2] = byte(sum)
	mac[3] = 0x00
	mac[4] = byte(index >> 8)
	mac[5] = byte(index)

	return mac
}
