package repository

import (
	"context"

	"EchoQ/model"

	"gorm.io/gorm"
)

// CatalogRepository 曲库数据访问接口。
// FilterExisting 是队列引擎的曲目存在性校验来源，必须支持单次调用大批量ID。
type CatalogRepository interface {
	// FilterExisting 返回 ids 中当前存在（未删除）的曲目ID子集
	FilterExisting(ctx context.Context, ids []int64) ([]int64, error)
	// GetByIDs 批量获取曲目元数据
	GetByIDs(ctx context.Context, ids []int64) ([]*model.CatalogTrack, error)
	// GetByID 获取单个曲目
	GetByID(ctx context.Context, id int64) (*model.CatalogTrack, error)
}

// gormCatalogRepository GORM 实现
type gormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository 创建 GORM 曲库仓库
func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &gormCatalogRepository{db: db}
}

// FilterExisting 返回存在的曲目ID子集
func (r *gormCatalogRepository) FilterExisting(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	var existing []int64
	err := r.db.WithContext(ctx).Model(&model.CatalogTrack{}).
		Where("id IN ? AND state = ?", ids, int8(1)).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// GetByIDs 批量获取曲目
func (r *gormCatalogRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.CatalogTrack, error) {
	if len(ids) == 0 {
		return []*model.CatalogTrack{}, nil
	}

	var tracks []*model.CatalogTrack
	err := r.db.WithContext(ctx).
		Where("id IN ? AND state = ?", ids, int8(1)).
		Find(&tracks).Error
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// GetByID 根据ID获取曲目
func (r *gormCatalogRepository) GetByID(ctx context.Context, id int64) (*model.CatalogTrack, error) {
	var track model.CatalogTrack
	err := r.db.WithContext(ctx).
		Where("id = ? AND state = ?", id, int8(1)).
		First(&track).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}
