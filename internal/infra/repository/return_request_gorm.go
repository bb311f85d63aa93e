package repository

import (
	"context"
	"errors"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReturnRequestGormRepository struct {
	db *gorm.DB
}

func NewReturnRequestGormRepository(db *gorm.DB) *ReturnRequestGormRepository {
	return &ReturnRequestGormRepository{db: db}
}

func (r *ReturnRequestGormRepository) Create(ctx context.Context, rr model.ReturnRequest) (int64, error) {
	//明細は has-many で一緒に入る
	if err := r.db.WithContext(ctx).Create(&rr).Error; err != nil {
		return 0, err
	}
	return rr.ID, nil
}

func (r *ReturnRequestGormRepository) FindByID(ctx context.Context, id int64) (model.ReturnRequest, error) {
	var rr model.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&rr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ReturnRequest{}, err
	}
	return rr, nil
}

func (r *ReturnRequestGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.ReturnRequest, error) {
	var rr model.ReturnRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&rr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ReturnRequest{}, err
	}

	if err := r.db.WithContext(ctx).
		Where("return_request_id = ?", id).
		Order("id asc").
		Find(&rr.Items).Error; err != nil {
		return model.ReturnRequest{}, err
	}
	return rr, nil
}

func (r *ReturnRequestGormRepository) FindLatestByOrderID(ctx context.Context, orderID int64) (model.ReturnRequest, error) {
	var rr model.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("id desc").
		First(&rr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ReturnRequest{}, err
	}
	return rr, nil
}

func (r *ReturnRequestGormRepository) ExistsActiveForOrder(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ReturnRequest{}).
		Where("order_id = ? AND status IN ?", orderID, model.ActiveReturnStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ReturnRequestGormRepository) List(ctx context.Context, f repo.ReturnListFilter) ([]model.ReturnRequest, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	q := r.db.WithContext(ctx).Model(&model.ReturnRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}

	var items []model.ReturnRequest
	offset := (f.Page - 1) * f.Limit
	if err := q.Preload("Items").Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}
	return items, total, nil
}

func (r *ReturnRequestGormRepository) Save(ctx context.Context, rr model.ReturnRequest) error {
	res := r.db.WithContext(ctx).
		Model(&model.ReturnRequest{}).
		Where("id = ?", rr.ID).
		Select("*").
		Omit("id", "order_id", "user_id", "created_at", clause.Associations).
		Updates(&rr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
