package repos

import (
	"github.com/tauraamui/windowcast/pkg/database/dbconn"
	"github.com/tauraamui/windowcast/pkg/database/models"
	"github.com/tauraamui/xerror"
)

type RecordingRepository struct {
	DB dbconn.GormWrapper
}

func (r *RecordingRepository) Create(rec *models.Recording) error {
	return r.DB.Create(rec).Error()
}

func (r *RecordingRepository) FindByUUID(uuid string) (models.Recording, error) {
	rec := models.Recording{}
	if err := r.DB.Where("uuid = ?", uuid).First(&rec).Error(); err != nil {
		return rec, xerror.Errorf("recording of uuid %s not found", uuid)
	}

	return rec, nil
}

// Latest returns up to limit recordings, newest first.
func (r *RecordingRepository) Latest(limit int) ([]models.Recording, error) {
	recs := []models.Recording{}
	if err := r.DB.Order("started_at desc").Limit(limit).Find(&recs).Error(); err != nil {
		return nil, xerror.Errorf("unable to list recordings: %w", err)
	}

	return recs, nil
}
