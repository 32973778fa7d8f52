package rpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
)

// Results travel as {"outcome": "ok"|"ok_with_warnings"|"error",
// "diagnostics": [{"line", "column", "severity", "message"}]}.

func encodeResult(res types.CompileResult) (*structpb.Struct, error) {
	diags := make([]any, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		diags = append(diags, map[string]any{
			"line":     d.Line,
			"column":   d.Column,
			"severity": d.Severity.String(),
			"message":  d.Message,
		})
	}
	return structpb.NewStruct(map[string]any{
		"outcome":     res.Outcome.String(),
		"diagnostics": diags,
	})
}

func decodeResult(s *structpb.Struct, resource types.BuildResource) (types.CompileResult, error) {
	fields := s.GetFields()
	outcome, ok := types.ParseOutcome(fields["outcome"].GetStringValue())
	if !ok {
		return types.CompileResult{Resource: resource}, fmt.Errorf("unknown outcome %q", fields["outcome"].GetStringValue())
	}

	res := types.CompileResult{Resource: resource, Outcome: outcome}
	for _, v := range fields["diagnostics"].GetListValue().GetValues() {
		d := v.GetStructValue().GetFields()
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
			Resource: resource.Path,
			Severity: types.ParseSeverity(d["severity"].GetStringValue()),
			Message:  d["message"].GetStringValue(),
			Line:     int(d["line"].GetNumberValue()),
			Column:   int(d["column"].GetNumberValue()),
		})
	}
	return res, nil
}

func encodeOptions(opts map[string]string) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = v
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

func encodeStrings(list []string) []any {
	out := make([]any, 0, len(list))
	for _, s := range list {
		out = append(out, s)
	}
	return out
}

func decodeStrings(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

func encodeSourceRequest(req backend.SourceRequest) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"resource":     req.Resource.Path,
		"path":         req.Path,
		"output_dir":   req.OutputDir,
		"include_dirs": encodeStrings(req.IncludeDirs),
		"options":      encodeOptions(req.Options),
		"full_build":   req.FullBuild,
	})
}

func decodeSourceRequest(s *structpb.Struct) backend.SourceRequest {
	f := s.GetFields()
	return backend.SourceRequest{
		Resource:    types.BuildResource{Path: f["resource"].GetStringValue(), Kind: types.ResourceSource},
		Path:        f["path"].GetStringValue(),
		OutputDir:   f["output_dir"].GetStringValue(),
		IncludeDirs: decodeStrings(f["include_dirs"]),
		Options:     decodeOptions(f["options"]),
		FullBuild:   f["full_build"].GetBoolValue(),
	}
}

func encodeGrammarRequest(req backend.GrammarRequest) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"resource": req.Resource.Path,
		"path":     req.Path,
		"options":  encodeOptions(req.Options),
	})
}

func decodeGrammarRequest(s *structpb.Struct) backend.GrammarRequest {
	f := s.GetFields()
	return backend.GrammarRequest{
		Resource: types.BuildResource{Path: f["resource"].GetStringValue(), Kind: types.ResourceSource},
		Path:     f["path"].GetStringValue(),
		Options:  decodeOptions(f["options"]),
	}
}

func encodeAppSrcRequest(req backend.AppSrcRequest) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"template":    req.TemplatePath,
		"dest":        req.DestPath,
		"source_dirs": encodeStrings(req.SourceDirs),
	})
}

func decodeAppSrcRequest(s *structpb.Struct) backend.AppSrcRequest {
	f := s.GetFields()
	return backend.AppSrcRequest{
		TemplatePath: f["template"].GetStringValue(),
		DestPath:     f["dest"].GetStringValue(),
		SourceDirs:   decodeStrings(f["source_dirs"]),
	}
}
