package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/flightroute/xerrors"
)

// GormRepository 是基于 GORM 实现的通用仓储.
type GormRepository[T any] struct {
	db *gorm.DB
}

// NewGormRepository 创建一个新的 GORM 泛型仓储实例.
func NewGormRepository[T any](db *gorm.DB) *GormRepository[T] {
	return &GormRepository[T]{db: db}
}

// DB 返回绑定上下文的 GORM 实例.
func (r *GormRepository[T]) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Upsert 创建或按主键覆盖.
func (r *GormRepository[T]) Upsert(ctx context.Context, entity *T) error {
	if err := r.DB(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(entity).Error; err != nil {
		return xerrors.WrapInternal(err, "failed to upsert entity")
	}
	return nil
}

// FindByID 根据主键查询.
func (r *GormRepository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	var entity T
	if err := r.DB(ctx).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.New(xerrors.ErrNotFound, 404, "entity not found", fmt.Sprintf("id: %v", id), err)
		}
		return nil, xerrors.WrapInternal(err, "failed to find entity by id")
	}
	return &entity, nil
}

// FindWhere 按条件查询，结果按 order 排序.
func (r *GormRepository[T]) FindWhere(ctx context.Context, order string, query any, args ...any) ([]T, error) {
	var entities []T
	if err := r.DB(ctx).Where(query, args...).Order(order).Find(&entities).Error; err != nil {
		return nil, xerrors.WrapInternal(err, "failed to query entities")
	}
	return entities, nil
}

// Transaction 在事务内执行 fn.
func (r *GormRepository[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
