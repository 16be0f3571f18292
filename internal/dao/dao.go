package dao

import (
	"context"
	"fmt"

	"netsim-os/internal/database"
)

// BaseDAO 基础DAO接口，定义通用的数据访问方法
type BaseDAO[T any] interface {
	Create(ctx context.Context, entity *T) error
	FindAll(ctx context.Context) ([]*T, error)
	FindByCondition(ctx context.Context, condition interface{}) ([]*T, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// BaseDAOImpl 基础DAO实现
type BaseDAOImpl[T any] struct {
	db database.Database
}

// NewBaseDAO 创建基础DAO实例
func NewBaseDAO[T any](db database.Database) BaseDAO[T] {
	return &BaseDAOImpl[T]{db: db}
}

// Create 创建实体
func (dao *BaseDAOImpl[T]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("实体不能为空")
	}
	return dao.db.Create(ctx, entity)
}

// FindAll 查找所有实体
func (dao *BaseDAOImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	if err := dao.db.FindAll(ctx, nil, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// FindByCondition 按条件查找实体
func (dao *BaseDAOImpl[T]) FindByCondition(ctx context.Context, condition interface{}) ([]*T, error) {
	var entities []*T
	if err := dao.db.FindAll(ctx, condition, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// DeleteAll 删除所有实体
func (dao *BaseDAOImpl[T]) DeleteAll(ctx context.Context) error {
	var zero T
	return dao.db.DeleteWhere(ctx, "1 = 1", &zero)
}

// Count 统计实体数量
func (dao *BaseDAOImpl[T]) Count(ctx context.Context) (int64, error) {
	var zero T
	return dao.db.Count(ctx, nil, &zero)
}
