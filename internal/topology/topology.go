package topology

import (
	"fmt"
	"sync"

	"netsim-os/internal/device"
	"netsim-os/internal/packet"
)

// endpoint 链路端点（设备+端口）
type endpoint struct {
	deviceID string
	port     string
}

// Link 一条物理链路
type Link struct {
	// A 端点A（设备标识和端口名称）
	ADevice string
	APort   string

	// B 端点B
	BDevice string
	BPort   string
}

// Network 网络拓扑
// 唯一负责设备间连线的组件：给每个端口安装出帧投递函数，
// 把帧送达物理连接的对端设备的入帧入口。
// 设备之间不直接注册回调，避免隐式的相互引用
type Network struct {
	// devices 设备注册表
	devices map[string]device.Device

	// links 已建立的链路，键为端点
	links map[endpoint]endpoint

	// mu 读写锁
	mu sync.RWMutex
}

// NewNetwork 创建网络拓扑
func NewNetwork() *Network {
	return &Network{
		devices: make(map[string]device.Device),
		links:   make(map[endpoint]endpoint),
	}
}

// AddDevice 注册设备
func (n *Network) AddDevice(dev device.Device) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.devices[dev.ID()]; exists {
		return fmt.Errorf("设备已存在: %s", dev.ID())
	}
	n.devices[dev.ID()] = dev
	return nil
}

// GetDevice 获取设备
func (n *Network) GetDevice(id string) (device.Device, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	dev, exists := n.devices[id]
	if !exists {
		return nil, fmt.Errorf("设备不存在: %s", id)
	}
	return dev, nil
}

// Devices 获取所有设备标识
func (n *Network) Devices() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]string, 0, len(n.devices))
	for id := range n.devices {
		ids = append(ids, id)
	}
	return ids
}

// Links 获取所有链路
func (n *Network) Links() []Link {
	n.mu.RLock()
	defer n.mu.RUnlock()

	seen := make(map[endpoint]bool)
	links := make([]Link, 0, len(n.links)/2)
	for a, b := range n.links {
		if seen[a] || seen[b] {
			continue
		}
		seen[a] = true
		seen[b] = true
		links = append(links, Link{
			ADevice: a.deviceID, APort: a.port,
			BDevice: b.deviceID, BPort: b.port,
		})
	}
	return links
}

// Connect 在两个设备的端口之间建立双向链路
// 每个端口的出帧被同步投递到对端设备的ReceiveFrame
func (n *Network) Connect(devA, portA, devB, portB string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	a, exists := n.devices[devA]
	if !exists {
		return fmt.Errorf("设备不存在: %s", devA)
	}
	b, exists := n.devices[devB]
	if !exists {
		return fmt.Errorf("设备不存在: %s", devB)
	}

	epA := endpoint{deviceID: devA, port: portA}
	epB := endpoint{deviceID: devB, port: portB}
	if _, linked := n.links[epA]; linked {
		return fmt.Errorf("端口已连接: %s/%s", devA, portA)
	}
	if _, linked := n.links[epB]; linked {
		return fmt.Errorf("端口已连接: %s/%s", devB, portB)
	}

	if err := a.Ports().SetTransmit(portA, func(frame *packet.EthernetFrame) {
		b.ReceiveFrame(frame, portB)
	}); err != nil {
		return err
	}
	if err := b.Ports().SetTransmit(portB, func(frame *packet.EthernetFrame) {
		a.ReceiveFrame(frame, portA)
	}); err != nil {
		return err
	}

	n.links[epA] = epB
	n.links[epB] = epA
	return nil
}

// Disconnect 断开端口所在的链路
func (n *Network) Disconnect(devID, port string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ep := endpoint{deviceID: devID, port: port}
	peer, linked := n.links[ep]
	if !linked {
		return fmt.Errorf("端口未连接: %s/%s", devID, port)
	}

	if dev, exists := n.devices[devID]; exists {
		_ = dev.Ports().SetTransmit(port, nil)
	}
	if dev, exists := n.devices[peer.deviceID]; exists {
		_ = dev.Ports().SetTransmit(peer.port, nil)
	}

	delete(n.links, ep)
	delete(n.links, peer)
	return nil
}
