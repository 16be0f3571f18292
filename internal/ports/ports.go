package ports

import (
	"fmt"
	"sync"

	"netsim-os/internal/packet"
)

// TransmitFunc 出帧投递函数
// 由拓扑层安装，负责把帧送达物理连接的对端设备
type TransmitFunc func(frame *packet.EthernetFrame)

// Port 网络端口（接口）
// 模拟设备上的一个物理端口：自身MAC地址、可选的IP配置、
// 连接状态和MTU
type Port struct {
	// Name 端口名称，例如 "eth0"
	Name string

	// MAC 端口自身的MAC地址
	MAC packet.MACAddress

	// IP 配置的IP地址，未配置时为nil
	IP *packet.IPAddress

	// Mask 配置的子网掩码，未配置时为nil
	Mask *packet.SubnetMask

	// Up 端口是否启用且已连接
	Up bool

	// MTU 最大传输单元（字节）
	MTU int

	// TxFrames 发送的帧数量
	TxFrames uint64

	// RxFrames 接收的帧数量
	RxFrames uint64

	// transmit 出帧投递函数，由拓扑层安装
	transmit TransmitFunc
}

// HasIP 判断端口是否已配置IP地址
func (p *Port) HasIP() bool {
	return p.IP != nil && p.Mask != nil
}

// Contains 判断目标IP是否在端口所在子网内
// 未配置IP的端口不包含任何地址
func (p *Port) Contains(ip packet.IPAddress) bool {
	if !p.HasIP() {
		return false
	}
	return p.Mask.SameSubnet(*p.IP, ip)
}

// Manager 端口管理器
// 管理一台设备的所有端口
type Manager struct {
	// ports 端口映射表，键为端口名称
	ports map[string]*Port

	// order 端口添加顺序，保证遍历结果稳定
	order []string

	// mu 读写锁
	mu sync.RWMutex
}

// NewManager 创建端口管理器
func NewManager() *Manager {
	return &Manager{
		ports: make(map[string]*Port),
		order: make([]string, 0),
	}
}

// AddPort 添加端口
func (m *Manager) AddPort(name string, mac packet.MACAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ports[name]; exists {
		return fmt.Errorf("端口已存在: %s", name)
	}

	m.ports[name] = &Port{
		Name: name,
		MAC:  mac,
		Up:   true,
		MTU:  packet.DefaultMTU,
	}
	m.order = append(m.order, name)
	return nil
}

// GetPort 获取端口
func (m *Manager) GetPort(name string) (*Port, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	port, exists := m.ports[name]
	if !exists {
		return nil, fmt.Errorf("端口不存在: %s", name)
	}
	return port, nil
}

// PortNames 按添加顺序返回所有端口名称
func (m *Manager) PortNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// AllPorts 按添加顺序返回所有端口
func (m *Manager) AllPorts() []*Port {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Port, 0, len(m.order))
	for _, name := range m.order {
		result = append(result, m.ports[name])
	}
	return result
}

// Configure 配置端口的IP地址和子网掩码
func (m *Manager) Configure(name string, ip packet.IPAddress, mask packet.SubnetMask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	port, exists := m.ports[name]
	if !exists {
		return fmt.Errorf("端口不存在: %s", name)
	}

	port.IP = &ip
	port.Mask = &mask
	return nil
}

// SetUp 设置端口的启用状态
func (m *Manager) SetUp(name string, up bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	port, exists := m.ports[name]
	if !exists {
		return fmt.Errorf("端口不存在: %s", name)
	}

	port.Up = up
	return nil
}

// SetTransmit 安装端口的出帧投递函数
// 仅由拓扑层调用，设备之间不直接注册回调
func (m *Manager) SetTransmit(name string, fn TransmitFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	port, exists := m.ports[name]
	if !exists {
		return fmt.Errorf("端口不存在: %s", name)
	}

	port.transmit = fn
	return nil
}

// FindPortForIP 查找子网包含目标IP的端口
// 用于静态路由下一跳的可达性检查
func (m *Manager) FindPortForIP(ip packet.IPAddress) *Port {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.order {
		port := m.ports[name]
		if port.Contains(ip) {
			return port
		}
	}
	return nil
}

// FindPortByIP 查找IP地址恰好等于目标IP的端口
// 用于判断数据包是否应本地交付
func (m *Manager) FindPortByIP(ip packet.IPAddress) *Port {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.order {
		port := m.ports[name]
		if port.HasIP() && *port.IP == ip {
			return port
		}
	}
	return nil
}

// RecordRx 记录端口的收帧统计
func (m *Manager) RecordRx(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if port, exists := m.ports[name]; exists {
		port.RxFrames++
	}
}

// Transmit 从指定端口发送一帧
// 发送前把短于以太网最小载荷的帧填充到46字节（填充由发送方负责）
// 填充写在帧的副本上，入帧可能被同步投递层跨设备共享，不能改动
// 端口关闭或未连线时静默丢弃
func (m *Manager) Transmit(name string, frame *packet.EthernetFrame) {
	m.mu.Lock()
	port, exists := m.ports[name]
	if !exists || !port.Up || port.transmit == nil {
		m.mu.Unlock()
		return
	}
	port.TxFrames++
	fn := port.transmit
	m.mu.Unlock()

	out := frame
	if frame.EtherType == packet.EtherTypeARP && len(frame.Payload) < packet.MinEthernetPayload {
		padded := make([]byte, packet.MinEthernetPayload)
		copy(padded, frame.Payload)
		clone := *frame
		clone.Payload = padded
		out = &clone
	}

	fn(out)
}
