package simulator

import (
	"fmt"

	"netsim-os/internal/config"
	"netsim-os/internal/device"
	"netsim-os/internal/logging"
	"netsim-os/internal/packet"
	"netsim-os/internal/scheduler"
	"netsim-os/internal/topology"
)

// Simulator 网络模拟器
// 根据配置构建设备和链路，持有完整的拓扑
type Simulator struct {
	// network 网络拓扑
	network *topology.Network

	// sched 所有设备共享的定时器调度器
	sched scheduler.Scheduler

	// logger 日志记录器
	logger *logging.Logger
}

// New 创建模拟器
func New(sched scheduler.Scheduler) *Simulator {
	return &Simulator{
		network: topology.NewNetwork(),
		sched:   sched,
		logger:  logging.GetLogger(),
	}
}

// Network 获取网络拓扑
func (s *Simulator) Network() *topology.Network {
	return s.network
}

// Build 按配置构建所有设备和链路
func (s *Simulator) Build(cfg *config.SimulatorConfig) error {
	for _, devCfg := range cfg.Devices {
		if err := s.buildDevice(devCfg); err != nil {
			return fmt.Errorf("构建设备 %s 失败: %w", devCfg.ID, err)
		}
	}

	for _, linkCfg := range cfg.Links {
		if err := s.network.Connect(linkCfg.DeviceA, linkCfg.PortA, linkCfg.DeviceB, linkCfg.PortB); err != nil {
			return fmt.Errorf("建立链路失败: %w", err)
		}
	}

	s.logger.Info("拓扑构建完成: %d台设备, %d条链路", len(cfg.Devices), len(cfg.Links))
	return nil
}

// buildDevice 按配置构建单台设备
func (s *Simulator) buildDevice(devCfg config.DeviceConfig) error {
	switch devCfg.Type {
	case "host":
		return s.buildHost(devCfg)
	case "switch":
		return s.buildSwitch(devCfg)
	case "router":
		return s.buildRouter(devCfg)
	default:
		return fmt.Errorf("未知的设备类型: %s", devCfg.Type)
	}
}

func (s *Simulator) buildHost(devCfg config.DeviceConfig) error {
	mac, err := packet.ParseMAC(devCfg.MAC)
	if err != nil {
		return err
	}
	ip, err := packet.ParseIPv4(devCfg.IPAddress)
	if err != nil {
		return err
	}
	mask, err := packet.ParseMask(devCfg.Netmask)
	if err != nil {
		return err
	}

	host, err := device.NewHost(devCfg.ID, mac, ip, mask, s.sched)
	if err != nil {
		return err
	}

	if devCfg.Gateway != "" {
		gw, err := packet.ParseIPv4(devCfg.Gateway)
		if err != nil {
			return err
		}
		host.SetGateway(gw)
	}

	return s.network.AddDevice(host)
}

func (s *Simulator) buildSwitch(devCfg config.DeviceConfig) error {
	sw, err := device.NewSwitch(devCfg.ID, devCfg.Ports)
	if err != nil {
		return err
	}
	return s.network.AddDevice(sw)
}

func (s *Simulator) buildRouter(devCfg config.DeviceConfig) error {
	router, err := device.NewRouter(devCfg.ID, devCfg.Ports, s.sched)
	if err != nil {
		return err
	}

	for _, ifaceCfg := range devCfg.Interfaces {
		if ifaceCfg.IPAddress == "" {
			continue
		}
		ip, err := packet.ParseIPv4(ifaceCfg.IPAddress)
		if err != nil {
			return err
		}
		mask, err := packet.ParseMask(ifaceCfg.Netmask)
		if err != nil {
			return err
		}
		if err := router.ConfigureInterface(ifaceCfg.Name, ip, mask); err != nil {
			return err
		}
		if !ifaceCfg.Enabled {
			_ = router.SetPortUp(ifaceCfg.Name, false)
		}
	}

	for _, routeCfg := range devCfg.StaticRoutes {
		network, err := packet.ParseIPv4(routeCfg.Destination)
		if err != nil {
			return err
		}
		mask, err := packet.ParseMask(routeCfg.Netmask)
		if err != nil {
			return err
		}
		nextHop, err := packet.ParseIPv4(routeCfg.NextHop)
		if err != nil {
			return err
		}
		if !router.AddStaticRoute(network, mask, nextHop, routeCfg.Metric) {
			s.logger.Warn("静态路由被拒绝（下一跳不可达）: %s/%s via %s",
				routeCfg.Destination, routeCfg.Netmask, routeCfg.NextHop)
		}
	}

	if devCfg.DefaultRoute != "" {
		nextHop, err := packet.ParseIPv4(devCfg.DefaultRoute)
		if err != nil {
			return err
		}
		if !router.SetDefaultRoute(nextHop, 0) {
			s.logger.Warn("默认路由被拒绝（下一跳不可达）: %s", devCfg.DefaultRoute)
		}
	}

	return s.network.AddDevice(router)
}

// GetRouter 按标识获取路由器设备
func (s *Simulator) GetRouter(id string) (*device.Router, error) {
	dev, err := s.network.GetDevice(id)
	if err != nil {
		return nil, err
	}
	router, ok := dev.(*device.Router)
	if !ok {
		return nil, fmt.Errorf("设备 %s 不是路由器", id)
	}
	return router, nil
}

// GetSwitch 按标识获取交换机设备
func (s *Simulator) GetSwitch(id string) (*device.Switch, error) {
	dev, err := s.network.GetDevice(id)
	if err != nil {
		return nil, err
	}
	sw, ok := dev.(*device.Switch)
	if !ok {
		return nil, fmt.Errorf("设备 %s 不是交换机", id)
	}
	return sw, nil
}

// GetHost 按标识获取主机设备
func (s *Simulator) GetHost(id string) (*device.Host, error) {
	dev, err := s.network.GetDevice(id)
	if err != nil {
		return nil, err
	}
	host, ok := dev.(*device.Host)
	if !ok {
		return nil, fmt.Errorf("设备 %s 不是主机", id)
	}
	return host, nil
}
