package dao

import (
	"context"
	"fmt"
	"strings"

	"netsim-os/internal/config"
	"netsim-os/internal/database"
)

// Manager DAO管理器
// 持有各实体的DAO并提供配置快照的存取：
// 把模拟器配置整体写入数据库，或从数据库恢复为配置对象
type Manager struct {
	db         database.Database
	devices    BaseDAO[database.DeviceRecord]
	interfaces BaseDAO[database.InterfaceRecord]
	routes     BaseDAO[database.StaticRouteRecord]
	links      BaseDAO[database.LinkRecord]
}

// NewManager 创建DAO管理器并执行表迁移
func NewManager(ctx context.Context, dbConfig *database.Config) (*Manager, error) {
	db, err := database.NewSQLiteDatabase(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("创建数据库失败: %w", err)
	}

	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	if err := db.Migrate(
		&database.DeviceRecord{},
		&database.InterfaceRecord{},
		&database.StaticRouteRecord{},
		&database.LinkRecord{},
	); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &Manager{
		db:         db,
		devices:    NewBaseDAO[database.DeviceRecord](db),
		interfaces: NewBaseDAO[database.InterfaceRecord](db),
		routes:     NewBaseDAO[database.StaticRouteRecord](db),
		links:      NewBaseDAO[database.LinkRecord](db),
	}, nil
}

// Close 关闭数据库连接
func (m *Manager) Close() error {
	return m.db.Close()
}

// SaveConfig 把模拟器配置整体保存到数据库
// 先清空旧快照再写入，保证数据库里始终是完整的一份配置
func (m *Manager) SaveConfig(ctx context.Context, cfg *config.SimulatorConfig) error {
	if err := m.devices.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.interfaces.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.routes.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.links.DeleteAll(ctx); err != nil {
		return err
	}

	for _, dev := range cfg.Devices {
		record := &database.DeviceRecord{
			DeviceID:  dev.ID,
			Type:      dev.Type,
			MAC:       dev.MAC,
			IPAddress: dev.IPAddress,
			Netmask:   dev.Netmask,
			Gateway:   dev.Gateway,
			Ports:     strings.Join(dev.Ports, ","),
		}
		if err := m.devices.Create(ctx, record); err != nil {
			return fmt.Errorf("保存设备 %s 失败: %w", dev.ID, err)
		}

		for _, iface := range dev.Interfaces {
			if err := m.interfaces.Create(ctx, &database.InterfaceRecord{
				DeviceID:  dev.ID,
				Name:      iface.Name,
				IPAddress: iface.IPAddress,
				Netmask:   iface.Netmask,
				Enabled:   iface.Enabled,
			}); err != nil {
				return err
			}
		}

		for _, route := range dev.StaticRoutes {
			if err := m.routes.Create(ctx, &database.StaticRouteRecord{
				DeviceID:    dev.ID,
				Destination: route.Destination,
				Netmask:     route.Netmask,
				NextHop:     route.NextHop,
				Metric:      route.Metric,
			}); err != nil {
				return err
			}
		}

		if dev.DefaultRoute != "" {
			if err := m.routes.Create(ctx, &database.StaticRouteRecord{
				DeviceID: dev.ID,
				NextHop:  dev.DefaultRoute,
				Default:  true,
			}); err != nil {
				return err
			}
		}
	}

	for _, link := range cfg.Links {
		if err := m.links.Create(ctx, &database.LinkRecord{
			DeviceA: link.DeviceA,
			PortA:   link.PortA,
			DeviceB: link.DeviceB,
			PortB:   link.PortB,
		}); err != nil {
			return err
		}
	}

	return nil
}

// LoadConfig 从数据库恢复模拟器配置
// 数据库为空时返回nil配置（调用方保留当前配置）
func (m *Manager) LoadConfig(ctx context.Context) (*config.SimulatorConfig, error) {
	deviceRecords, err := m.devices.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(deviceRecords) == 0 {
		return nil, nil
	}

	cfg := &config.SimulatorConfig{Name: "netsim"}

	for _, record := range deviceRecords {
		dev := config.DeviceConfig{
			ID:        record.DeviceID,
			Type:      record.Type,
			MAC:       record.MAC,
			IPAddress: record.IPAddress,
			Netmask:   record.Netmask,
			Gateway:   record.Gateway,
		}
		if record.Ports != "" {
			dev.Ports = strings.Split(record.Ports, ",")
		}

		ifaceRecords, err := m.interfaces.FindByCondition(ctx,
			&database.InterfaceRecord{DeviceID: record.DeviceID})
		if err != nil {
			return nil, err
		}
		for _, iface := range ifaceRecords {
			dev.Interfaces = append(dev.Interfaces, config.InterfaceConfig{
				Name:      iface.Name,
				IPAddress: iface.IPAddress,
				Netmask:   iface.Netmask,
				Enabled:   iface.Enabled,
			})
		}

		routeRecords, err := m.routes.FindByCondition(ctx,
			&database.StaticRouteRecord{DeviceID: record.DeviceID})
		if err != nil {
			return nil, err
		}
		for _, route := range routeRecords {
			if route.Default {
				dev.DefaultRoute = route.NextHop
				continue
			}
			dev.StaticRoutes = append(dev.StaticRoutes, config.StaticRouteConfig{
				Destination: route.Destination,
				Netmask:     route.Netmask,
				NextHop:     route.NextHop,
				Metric:      route.Metric,
			})
		}

		cfg.Devices = append(cfg.Devices, dev)
	}

	linkRecords, err := m.links.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, link := range linkRecords {
		cfg.Links = append(cfg.Links, config.LinkConfig{
			DeviceA: link.DeviceA,
			PortA:   link.PortA,
			DeviceB: link.DeviceB,
			PortB:   link.PortB,
		})
	}

	return cfg, nil
}
