// Package report serializes the aggregated package stats and hands them to the caller.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/sethvargo/go-githubactions"

	"github.com/naka-gawa/github-package-stats/internal/domain"
)

// OutputName is the action output that carries the report JSON.
const OutputName = "packageStats"

// Writer writes the report to Dir and, when Action is set, exposes it as an action output.
type Writer struct {
	Dir    string
	Action *githubactions.Action
	// Stdout receives a copy of the JSON when non-nil.
	Stdout io.Writer
}

func NewWriter(dir string, action *githubactions.Action) *Writer {
	return &Writer{Dir: dir, Action: action}
}

// Write stores the report as <Dir>/package-stats-{org,repo}.json and returns the file path.
func (w *Writer) Write(report domain.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal report").
			WithCause(err)
	}
	path, err := w.ensurePath(report.Mode.OutputFileName())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", path)).
			WithCause(err)
	}
	if w.Action != nil {
		if err := setActionOutput(w.Action, OutputName, string(data)); err != nil {
			return "", err
		}
	}
	if w.Stdout != nil {
		if _, err := fmt.Fprintln(w.Stdout, string(data)); err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to print report").
				WithCause(err)
		}
	}
	return path, nil
}

// setActionOutput converts the panic SetOutput raises when $GITHUB_OUTPUT
// cannot be written into an error.
func setActionOutput(action *githubactions.Action, name, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to set action output").
				WithCause(fmt.Errorf("%v", r))
		}
	}()
	action.SetOutput(name, value)
	return nil
}

func (w *Writer) ensurePath(name string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to create output directory %s", w.Dir)).
			WithCause(err)
	}
	return filepath.Join(w.Dir, name), nil
}
