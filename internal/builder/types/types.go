package types

import (
	"path"
	"sort"
	"strings"
)

type BuildKind int

const (
	KindFull BuildKind = iota + 1
	KindIncremental
	KindClean
)

func (k BuildKind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindIncremental:
		return "incremental"
	case KindClean:
		return "clean"
	default:
		return "unknown"
	}
}

// ParseBuildKind accepts the names produced by BuildKind.String.
func ParseBuildKind(s string) (BuildKind, bool) {
	switch strings.ToLower(s) {
	case "full":
		return KindFull, true
	case "incremental", "auto":
		return KindIncremental, true
	case "clean":
		return KindClean, true
	}
	return 0, false
}

// ChangeDescription lists project-relative, slash separated paths touched since
// the previous pass.
type ChangeDescription struct {
	Added         []string `json:"added,omitempty" yaml:"added,omitempty"`
	Changed       []string `json:"changed,omitempty" yaml:"changed,omitempty"`
	Removed       []string `json:"removed,omitempty" yaml:"removed,omitempty"`
	ConfigChanged bool     `json:"config_changed" yaml:"config_changed"`
}

// Touches reports whether p was added, changed or removed.
func (d *ChangeDescription) Touches(p string) bool {
	if d == nil {
		return false
	}
	for _, list := range [][]string{d.Added, d.Changed, d.Removed} {
		for _, q := range list {
			if q == p {
				return true
			}
		}
	}
	return false
}

func (d *ChangeDescription) Empty() bool {
	return d == nil || (len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0 && !d.ConfigChanged)
}

type BuildRequest struct {
	Kind    BuildKind
	Delta   *ChangeDescription
	Options map[string]string
}

type ResourceKind int

const (
	ResourceOther ResourceKind = iota
	ResourceSource
	ResourceInclude
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceSource:
		return "source"
	case ResourceInclude:
		return "include"
	default:
		return "other"
	}
}

// BuildResource is identified by its project-relative path.
type BuildResource struct {
	Path string
	Kind ResourceKind
}

func (r BuildResource) Ext() string {
	return path.Ext(r.Path)
}

// ResourceSet holds at most one resource per path.
type ResourceSet map[string]BuildResource

func (s ResourceSet) Add(r BuildResource) {
	s[r.Path] = r
}

func (s ResourceSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the resources ordered by path.
func (s ResourceSet) Sorted() []BuildResource {
	out := make([]BuildResource, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

type Severity int

const (
	SeverityUnset Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unset"
	}
}

func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo
	case "warning", "warn":
		return SeverityWarning
	case "error":
		return SeverityError
	default:
		return SeverityUnset
	}
}

// Diagnostic is a marker attached to a resource. Project level diagnostics
// carry an empty Resource.
type Diagnostic struct {
	Project  string
	Resource string
	Severity Severity
	Message  string
	Line     int
	Column   int
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeOKWithWarnings
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeOKWithWarnings:
		return "ok_with_warnings"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "ok":
		return OutcomeOK, true
	case "ok_with_warnings":
		return OutcomeOKWithWarnings, true
	case "error":
		return OutcomeError, true
	}
	return 0, false
}

type CompileResult struct {
	Resource    BuildResource
	Outcome     Outcome
	Diagnostics []Diagnostic
}

// ProjectBuildConfig is read-only to the builder. Directories are relative to
// the project root.
type ProjectBuildConfig struct {
	SourceDirs             []string          `mapstructure:"source_dirs"`
	IncludeDirs            []string          `mapstructure:"include_dirs"`
	OutputDir              string            `mapstructure:"output_dir"`
	CompilerOptions        map[string]string `mapstructure:"compiler_options"`
	RequiredBackendVersion string            `mapstructure:"backend_version"`
}
