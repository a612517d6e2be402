package repository

import (
	"github.com/prepmint/examengine/internal/model"
	"gorm.io/gorm"
)

// SnapshotRepository stores immutable interface snapshots. There is no
// update method on purpose: snapshots are write-once.
type SnapshotRepository interface {
	Create(snapshot *model.InterfaceSnapshot) error
	FindBySnapshotID(snapshotID string) (*model.InterfaceSnapshot, error)
	FindByTemplateID(templateID uint) ([]model.InterfaceSnapshot, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Create(snapshot *model.InterfaceSnapshot) error {
	return r.db.Create(snapshot).Error
}

func (r *snapshotRepository) FindBySnapshotID(snapshotID string) (*model.InterfaceSnapshot, error) {
	var snapshot model.InterfaceSnapshot
	if err := r.db.Where("snapshot_id = ?", snapshotID).First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepository) FindByTemplateID(templateID uint) ([]model.InterfaceSnapshot, error) {
	var snapshots []model.InterfaceSnapshot
	if err := r.db.Where("template_id = ?", templateID).Order("version DESC").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
