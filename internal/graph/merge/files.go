package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
)

// TriplesFiles merges two Turtle files into outPath, optionally writing the
// text report. A missing input wraps ErrMergeInputMissing.
func TriplesFiles(aPath, bPath, outPath, reportPath string) (TripleReport, error) {
	a, b, err := readPair(aPath, bPath)
	if err != nil {
		return TripleReport{}, err
	}
	out, rep, err := Triples(a, b)
	if err != nil {
		return TripleReport{}, err
	}
	if err := writeOutputs(outPath, out, reportPath, rep.String()); err != nil {
		return TripleReport{}, err
	}
	return rep, nil
}

func OntologiesFiles(aPath, bPath, outPath, reportPath string) (OntologyReport, error) {
	a, b, err := readPair(aPath, bPath)
	if err != nil {
		return OntologyReport{}, err
	}
	out, rep, err := Ontologies(a, b)
	if err != nil {
		return OntologyReport{}, err
	}
	if err := writeOutputs(outPath, out, reportPath, rep.String()); err != nil {
		return OntologyReport{}, err
	}
	return rep, nil
}

func readPair(aPath, bPath string) (string, string, error) {
	a, err := readInput(aPath)
	if err != nil {
		return "", "", err
	}
	b, err := readInput(bPath)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func readInput(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", perrors.ErrMergeInputMissing, path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(raw), nil
}

func writeOutputs(outPath, out, reportPath, report string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if reportPath == "" {
		return nil
	}
	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", reportPath, err)
	}
	return nil
}
