package markers

import (
	"context"

	"gorm.io/gorm"

	"github.com/elskow/erlbuild/internal/builder/types"
)

type store struct {
	db *gorm.DB
}

// NewStore returns a Sink persisting markers with gorm.
func NewStore(db *gorm.DB) Sink {
	return &store{db: db}
}

func (s *store) Add(ctx context.Context, d types.Diagnostic) error {
	return s.db.WithContext(ctx).Create(fromDiagnostic(d)).Error
}

func (s *store) Clear(ctx context.Context, project, resource string) error {
	return s.db.WithContext(ctx).
		Where("project = ? AND resource = ?", project, resource).
		Delete(&Marker{}).Error
}

func (s *store) ClearProject(ctx context.Context, project string) error {
	return s.db.WithContext(ctx).Where("project = ?", project).Delete(&Marker{}).Error
}

func (s *store) List(ctx context.Context, project string) ([]types.Diagnostic, error) {
	var rows []Marker
	if err := s.db.WithContext(ctx).
		Where("project = ?", project).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Diagnostic, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].diagnostic())
	}
	return out, nil
}
