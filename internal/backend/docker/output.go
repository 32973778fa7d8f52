package docker

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/elskow/erlbuild/internal/builder/types"
)

// erlc reports "<file>:<line>[:<col>]: [Warning: ]<message>".
var diagnosticLine = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?: (.*)$`)

// interpret derives the compile outcome from the exit code and erlc output.
func interpret(res types.BuildResource, exit int64, output string) types.CompileResult {
	result := types.CompileResult{Resource: res, Outcome: types.OutcomeOK}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		d, ok := parseDiagnostic(scanner.Text())
		if !ok {
			continue
		}
		d.Resource = res.Path
		result.Diagnostics = append(result.Diagnostics, d)
	}

	hasErrors := false
	for _, d := range result.Diagnostics {
		if d.Severity == types.SeverityError {
			hasErrors = true
		}
	}

	switch {
	case exit != 0 || hasErrors:
		result.Outcome = types.OutcomeError
	case len(result.Diagnostics) > 0:
		result.Outcome = types.OutcomeOKWithWarnings
	}
	return result
}

func parseDiagnostic(line string) (types.Diagnostic, bool) {
	m := diagnosticLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return types.Diagnostic{}, false
	}

	lineNo, _ := strconv.Atoi(m[2])
	col := 0
	if m[3] != "" {
		col, _ = strconv.Atoi(m[3])
	}

	msg := m[4]
	sev := types.SeverityError
	if rest, ok := strings.CutPrefix(msg, "Warning: "); ok {
		sev, msg = types.SeverityWarning, rest
	} else if rest, ok := strings.CutPrefix(msg, "warning: "); ok {
		sev, msg = types.SeverityWarning, rest
	}

	return types.Diagnostic{
		Severity: sev,
		Message:  msg,
		Line:     lineNo,
		Column:   col,
	}, true
}
