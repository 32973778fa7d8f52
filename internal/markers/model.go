package markers

import (
	"time"

	"github.com/elskow/erlbuild/internal/builder/types"
)

type Marker struct {
	ID        uint   `gorm:"primaryKey"`
	Project   string `gorm:"index:idx_markers_resource,priority:1;not null"`
	Resource  string `gorm:"index:idx_markers_resource,priority:2;not null;default:''"`
	Severity  string `gorm:"not null"`
	Message   string `gorm:"not null"`
	Line      int
	Column    int `gorm:"column:col"`
	CreatedAt time.Time
}

func (Marker) TableName() string {
	return "markers"
}

func fromDiagnostic(d types.Diagnostic) *Marker {
	return &Marker{
		Project:  d.Project,
		Resource: d.Resource,
		Severity: d.Severity.String(),
		Message:  d.Message,
		Line:     d.Line,
		Column:   d.Column,
	}
}

func (m *Marker) diagnostic() types.Diagnostic {
	return types.Diagnostic{
		Project:  m.Project,
		Resource: m.Resource,
		Severity: types.ParseSeverity(m.Severity),
		Message:  m.Message,
		Line:     m.Line,
		Column:   m.Column,
	}
}
