package database

import "context"

// Database 数据库接口，抽象不同数据库的操作
type Database interface {
	// 连接管理
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// 迁移管理
	Migrate(models ...interface{}) error

	// 基础CRUD操作
	Create(ctx context.Context, model interface{}) error
	Update(ctx context.Context, model interface{}) error
	Delete(ctx context.Context, model interface{}) error
	FindByID(ctx context.Context, id interface{}, model interface{}) error
	FindAll(ctx context.Context, condition interface{}, models interface{}) error
	DeleteWhere(ctx context.Context, condition interface{}, model interface{}) error

	// 统计操作
	Count(ctx context.Context, condition interface{}, model interface{}) (int64, error)
}

// Config 数据库配置
type Config struct {
	// Type 数据库类型，目前支持sqlite
	Type string `json:"type"`

	// FilePath SQLite文件路径
	FilePath string `json:"file_path"`

	// Debug 是否输出SQL日志
	Debug bool `json:"debug"`
}

// DeviceRecord 设备配置记录
type DeviceRecord struct {
	ID        uint   `gorm:"primaryKey"`
	DeviceID  string `gorm:"uniqueIndex;size:64"`
	Type      string `gorm:"size:16"`
	MAC       string `gorm:"size:17"`
	IPAddress string `gorm:"size:15"`
	Netmask   string `gorm:"size:15"`
	Gateway   string `gorm:"size:15"`
	Ports     string `gorm:"size:255"` // 逗号分隔的端口名称列表
}

// TableName 指定表名
func (DeviceRecord) TableName() string {
	return "devices"
}

// InterfaceRecord 路由器接口配置记录
type InterfaceRecord struct {
	ID        uint   `gorm:"primaryKey"`
	DeviceID  string `gorm:"index;size:64"`
	Name      string `gorm:"size:32"`
	IPAddress string `gorm:"size:15"`
	Netmask   string `gorm:"size:15"`
	Enabled   bool
}

// TableName 指定表名
func (InterfaceRecord) TableName() string {
	return "interfaces"
}

// StaticRouteRecord 静态路由配置记录
type StaticRouteRecord struct {
	ID          uint   `gorm:"primaryKey"`
	DeviceID    string `gorm:"index;size:64"`
	Destination string `gorm:"size:15"`
	Netmask     string `gorm:"size:15"`
	NextHop     string `gorm:"size:15"`
	Metric      int
	Default     bool // 是否为默认路由
}

// TableName 指定表名
func (StaticRouteRecord) TableName() string {
	return "static_routes"
}

// LinkRecord 链路配置记录
type LinkRecord struct {
	ID      uint   `gorm:"primaryKey"`
	DeviceA string `gorm:"size:64"`
	PortA   string `gorm:"size:32"`
	DeviceB string `gorm:"size:64"`
	PortB   string `gorm:"size:32"`
}

// TableName 指定表名
func (LinkRecord) TableName() string {
	return "links"
}
