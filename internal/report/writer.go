package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

// ErrWrite indicates an artifact could not be written.
var ErrWrite = errors.New("write report")

// Artifact kinds.
const (
	KindMarkdown = "markdown"
	KindXLSX     = "xlsx"
	KindChart    = "chart"
)

// Artifact is a written output file.
type Artifact struct {
	Kind string
	Path string
	Size int
}

// Writer renders every artifact in memory and writes them only when all
// renders succeeded.
type Writer struct {
	Dir string
	// Markdown and XLSX are file names inside Dir.
	Markdown string
	XLSX     string
	// Chart is optional; empty disables the chart page.
	Chart string
}

type rendered struct {
	kind string
	name string
	data []byte
}

// Write renders and writes the artifacts for rows.
func (w *Writer) Write(meta Meta, rows []matrix.Row) ([]Artifact, error) {
	workbook, xlsxErr := RenderXLSX(meta, rows)
	if xlsxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, xlsxErr)
	}

	outputs := []rendered{
		{kind: KindMarkdown, name: w.Markdown, data: RenderMarkdown(meta, rows)},
		{kind: KindXLSX, name: w.XLSX, data: workbook},
	}

	if w.Chart != "" {
		page, chartErr := RenderChart(meta, rows)
		if chartErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrWrite, chartErr)
		}

		outputs = append(outputs, rendered{kind: KindChart, name: w.Chart, data: page})
	}

	mkdirErr := os.MkdirAll(w.Dir, 0o755)
	if mkdirErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, mkdirErr)
	}

	return commit(w.Dir, outputs)
}

// commit stages every output in a temporary file and renames them into
// place only when all of them were staged, so a failed run never leaves a
// fresh artifact next to a stale one.
func commit(dir string, outputs []rendered) ([]Artifact, error) {
	staged := make([]string, 0, len(outputs))

	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for _, out := range outputs {
		tmp, stageErr := stageFile(dir, out.name, out.data)
		if stageErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrWrite, filepath.Join(dir, out.name), stageErr)
		}

		staged = append(staged, tmp)
	}

	artifacts := make([]Artifact, 0, len(outputs))

	for i, out := range outputs {
		path := filepath.Join(dir, out.name)

		renameErr := os.Rename(staged[i], path)
		if renameErr != nil {
			return artifacts, fmt.Errorf("%w: %s: %w", ErrWrite, path, renameErr)
		}

		artifacts = append(artifacts, Artifact{Kind: out.kind, Path: path, Size: len(out.data)})
	}

	return artifacts, nil
}

// stageFile writes data to a temporary file next to name and returns its path.
func stageFile(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", err
	}

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", err
	}

	err = tmp.Close()
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}

	if err != nil {
		os.Remove(tmp.Name())

		return "", err
	}

	return tmp.Name(), nil
}
