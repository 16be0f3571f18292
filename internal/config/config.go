package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// InterfaceConfig 接口配置
type InterfaceConfig struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address,omitempty"`
	Netmask   string `json:"netmask,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// StaticRouteConfig 静态路由配置
type StaticRouteConfig struct {
	Destination string `json:"destination"`
	Netmask     string `json:"netmask"`
	NextHop     string `json:"next_hop"`
	Metric      int    `json:"metric"`
}

// DeviceConfig 设备配置
type DeviceConfig struct {
	// ID 设备标识
	ID string `json:"id"`

	// Type 设备类型：host、switch、router
	Type string `json:"type"`

	// MAC 主机的MAC地址（仅host类型）
	MAC string `json:"mac,omitempty"`

	// IPAddress 主机的IP地址（仅host类型）
	IPAddress string `json:"ip_address,omitempty"`

	// Netmask 主机的子网掩码（仅host类型）
	Netmask string `json:"netmask,omitempty"`

	// Gateway 主机的默认网关（仅host类型）
	Gateway string `json:"gateway,omitempty"`

	// Ports 端口名称列表（switch和router类型）
	Ports []string `json:"ports,omitempty"`

	// Interfaces 接口IP配置（仅router类型）
	Interfaces []InterfaceConfig `json:"interfaces,omitempty"`

	// StaticRoutes 静态路由（仅router类型）
	StaticRoutes []StaticRouteConfig `json:"static_routes,omitempty"`

	// DefaultRoute 默认路由的下一跳（仅router类型）
	DefaultRoute string `json:"default_route,omitempty"`
}

// LinkConfig 链路配置
type LinkConfig struct {
	DeviceA string `json:"device_a"`
	PortA   string `json:"port_a"`
	DeviceB string `json:"device_b"`
	PortB   string `json:"port_b"`
}

// SimulatorConfig 模拟器配置
type SimulatorConfig struct {
	Name     string         `json:"name"`
	Devices  []DeviceConfig `json:"devices"`
	Links    []LinkConfig   `json:"links"`
	LogLevel string         `json:"log_level"`
	LogFile  string         `json:"log_file,omitempty"`
	Database string         `json:"database,omitempty"`
}

// ConfigManager 配置管理器
type ConfigManager struct {
	config     *SimulatorConfig
	configFile string
	mu         sync.RWMutex
}

// NewConfigManager 创建配置管理器
func NewConfigManager(configFile string) *ConfigManager {
	return &ConfigManager{
		configFile: configFile,
		config:     getDefaultConfig(),
	}
}

// getDefaultConfig 获取默认配置
// 一台三端口交换机连接两台主机和一台路由器的演示拓扑
func getDefaultConfig() *SimulatorConfig {
	return &SimulatorConfig{
		Name: "netsim",
		Devices: []DeviceConfig{
			{
				ID:        "hostA",
				Type:      "host",
				MAC:       "AA:BB:CC:DD:EE:01",
				IPAddress: "192.168.1.10",
				Netmask:   "255.255.255.0",
				Gateway:   "192.168.1.1",
			},
			{
				ID:        "hostB",
				Type:      "host",
				MAC:       "AA:BB:CC:DD:EE:02",
				IPAddress: "192.168.1.20",
				Netmask:   "255.255.255.0",
				Gateway:   "192.168.1.1",
			},
			{
				ID:    "switch1",
				Type:  "switch",
				Ports: []string{"eth0", "eth1", "eth2"},
			},
			{
				ID:    "router1",
				Type:  "router",
				Ports: []string{"eth0", "eth1"},
				Interfaces: []InterfaceConfig{
					{Name: "eth0", IPAddress: "192.168.1.1", Netmask: "255.255.255.0", Enabled: true},
					{Name: "eth1", IPAddress: "10.0.0.1", Netmask: "255.255.255.0", Enabled: true},
				},
			},
		},
		Links: []LinkConfig{
			{DeviceA: "hostA", PortA: "eth0", DeviceB: "switch1", PortB: "eth0"},
			{DeviceA: "hostB", PortA: "eth0", DeviceB: "switch1", PortB: "eth1"},
			{DeviceA: "router1", PortA: "eth0", DeviceB: "switch1", PortB: "eth2"},
		},
		LogLevel: "info",
	}
}

// Load 从配置文件加载配置
// 文件不存在时保留默认配置
func (cm *ConfigManager) Load() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := os.ReadFile(cm.configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := &SimulatorConfig{}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	cm.config = config
	return nil
}

// Save 保存配置到文件
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(cm.configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *SimulatorConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// SetConfig 替换当前配置
func (cm *ConfigManager) SetConfig(config *SimulatorConfig) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.config = config
}
