package buildsvc

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/builder/types"
)

func decodeDelta(v *structpb.Value) *types.ChangeDescription {
	s := v.GetStructValue()
	if s == nil {
		return nil
	}
	f := s.GetFields()
	return &types.ChangeDescription{
		Added:         decodeStrings(f["added"]),
		Changed:       decodeStrings(f["changed"]),
		Removed:       decodeStrings(f["removed"]),
		ConfigChanged: f["config_changed"].GetBoolValue(),
	}
}

// EncodeDelta is the client side of decodeDelta.
func EncodeDelta(d *types.ChangeDescription) map[string]any {
	return map[string]any{
		"added":          encodeStrings(d.Added),
		"changed":        encodeStrings(d.Changed),
		"removed":        encodeStrings(d.Removed),
		"config_changed": d.ConfigChanged,
	}
}

func decodeStrings(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

func encodeStrings(list []string) []any {
	out := make([]any, 0, len(list))
	for _, s := range list {
		out = append(out, s)
	}
	return out
}

func decodeOptions(v *structpb.Value) map[string]string {
	fields := v.GetStructValue().GetFields()
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		out[k] = f.GetStringValue()
	}
	return out
}

func encodeReport(r *builder.Report) map[string]any {
	results := make([]any, 0, len(r.Results))
	for _, res := range r.Results {
		results = append(results, map[string]any{
			"resource": res.Resource.Path,
			"outcome":  res.Outcome.String(),
		})
	}
	return map[string]any{
		"pass_id":    r.PassID,
		"kind":       r.Kind.String(),
		"percent":    r.Percent,
		"elapsed_ms": r.Elapsed.Milliseconds(),
		"results":    results,
	}
}

func encodeDiagnostics(diags []types.Diagnostic) []any {
	out := make([]any, 0, len(diags))
	for _, d := range diags {
		out = append(out, map[string]any{
			"resource": d.Resource,
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Line,
			"column":   d.Column,
		})
	}
	return out
}
