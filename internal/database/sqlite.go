package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteDatabase SQLite数据库实现
type SQLiteDatabase struct {
	db     *gorm.DB
	config *Config
}

// NewSQLiteDatabase 创建SQLite数据库实例
func NewSQLiteDatabase(config *Config) (Database, error) {
	if config.FilePath == "" {
		config.FilePath = "netsim-os.db"
	}

	// 确保目录存在
	dir := filepath.Dir(config.FilePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}

	return &SQLiteDatabase{
		config: config,
	}, nil
}

// Connect 连接数据库
func (s *SQLiteDatabase) Connect(ctx context.Context) error {
	logLevel := logger.Silent
	if s.config.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(s.config.FilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("连接SQLite数据库失败: %w", err)
	}

	s.db = db
	return nil
}

// Close 关闭数据库连接
func (s *SQLiteDatabase) Close() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查数据库连接
func (s *SQLiteDatabase) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("数据库未连接")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate 执行数据库迁移
func (s *SQLiteDatabase) Migrate(models ...interface{}) error {
	if s.db == nil {
		return fmt.Errorf("数据库未连接")
	}
	return s.db.AutoMigrate(models...)
}

// Create 创建记录
func (s *SQLiteDatabase) Create(ctx context.Context, model interface{}) error {
	return s.db.WithContext(ctx).Create(model).Error
}

// Update 更新记录
func (s *SQLiteDatabase) Update(ctx context.Context, model interface{}) error {
	return s.db.WithContext(ctx).Save(model).Error
}

// Delete 删除记录
func (s *SQLiteDatabase) Delete(ctx context.Context, model interface{}) error {
	return s.db.WithContext(ctx).Delete(model).Error
}

// FindByID 按主键查找记录
func (s *SQLiteDatabase) FindByID(ctx context.Context, id interface{}, model interface{}) error {
	return s.db.WithContext(ctx).First(model, id).Error
}

// FindAll 按条件查找所有记录
func (s *SQLiteDatabase) FindAll(ctx context.Context, condition interface{}, models interface{}) error {
	query := s.db.WithContext(ctx)
	if condition != nil {
		query = query.Where(condition)
	}
	return query.Find(models).Error
}

// DeleteWhere 按条件删除记录
func (s *SQLiteDatabase) DeleteWhere(ctx context.Context, condition interface{}, model interface{}) error {
	return s.db.WithContext(ctx).Where(condition).Delete(model).Error
}

// Count 按条件统计记录数量
func (s *SQLiteDatabase) Count(ctx context.Context, condition interface{}, model interface{}) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(model)
	if condition != nil {
		query = query.Where(condition)
	}
	err := query.Count(&count).Error
	return count, err
}
