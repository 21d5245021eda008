// Package naming derives triplestore dataset names from RAG and cycle ids.
//
// Every numeric component is zero-padded to Width digits. Width is part of the
// persisted contract: RagInstance.FusekiDataset stores these names, so
// changing it renames every existing dataset.
package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Width  = 5
	MaxID  = 99999
	prefix = "ferag-"
)

var ErrOutOfRange = errors.New("dataset id out of range")

type Kind string

const (
	KindProd          Kind = "prod"
	KindStaging       Kind = "staging"
	KindTriplesDelta  Kind = "triples"
	KindOntologyDelta Kind = "ontology"
)

// Set holds the four dataset names that exist for one cycle.
type Set struct {
	Prod          string
	Staging       string
	TriplesDelta  string
	OntologyDelta string
}

// CycleScoped lists the ephemeral datasets, in creation order.
func (s Set) CycleScoped() []string {
	return []string{s.TriplesDelta, s.OntologyDelta, s.Staging}
}

func Prod(ragID uint) (string, error) {
	if err := check("rag", ragID); err != nil {
		return "", err
	}
	return fmt.Sprintf("ferag-%05d", ragID), nil
}

func Staging(ragID, cycleN uint) (string, error) {
	if err := check("rag", ragID); err != nil {
		return "", err
	}
	if err := check("cycle", cycleN); err != nil {
		return "", err
	}
	return fmt.Sprintf("ferag-%05d-new-%05d", ragID, cycleN), nil
}

func TriplesDelta(ragID, cycleN uint) (string, error) {
	stg, err := Staging(ragID, cycleN)
	if err != nil {
		return "", err
	}
	return stg + "-triples", nil
}

func OntologyDelta(ragID, cycleN uint) (string, error) {
	stg, err := Staging(ragID, cycleN)
	if err != nil {
		return "", err
	}
	return stg + "-ontology", nil
}

func ForCycle(ragID, cycleN uint) (Set, error) {
	prod, err := Prod(ragID)
	if err != nil {
		return Set{}, err
	}
	stg, err := Staging(ragID, cycleN)
	if err != nil {
		return Set{}, err
	}
	return Set{
		Prod:          prod,
		Staging:       stg,
		TriplesDelta:  stg + "-triples",
		OntologyDelta: stg + "-ontology",
	}, nil
}

// Name is the decoded form of a dataset name.
type Name struct {
	Kind   Kind
	RagID  uint
	CycleN uint
}

// Parse is the inverse of the constructors. Names not produced by this
// package return an error.
func Parse(name string) (Name, error) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return Name{}, fmt.Errorf("not a ferag dataset: %q", name)
	}
	parts := strings.Split(rest, "-")
	rag, err := parseID(parts[0])
	if err != nil {
		return Name{}, fmt.Errorf("parse %q: %w", name, err)
	}
	if len(parts) == 1 {
		return Name{Kind: KindProd, RagID: rag}, nil
	}
	if len(parts) < 3 || len(parts) > 4 || parts[1] != "new" {
		return Name{}, fmt.Errorf("not a ferag dataset: %q", name)
	}
	cycle, err := parseID(parts[2])
	if err != nil {
		return Name{}, fmt.Errorf("parse %q: %w", name, err)
	}
	out := Name{Kind: KindStaging, RagID: rag, CycleN: cycle}
	if len(parts) == 4 {
		switch Kind(parts[3]) {
		case KindTriplesDelta, KindOntologyDelta:
			out.Kind = Kind(parts[3])
		default:
			return Name{}, fmt.Errorf("unknown dataset kind in %q", name)
		}
	}
	return out, nil
}

func parseID(s string) (uint, error) {
	if len(s) != Width {
		return 0, fmt.Errorf("component %q is not %d digits", s, Width)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrOutOfRange
	}
	return uint(n), nil
}

func check(what string, id uint) error {
	if id == 0 || id > MaxID {
		return fmt.Errorf("%s id %d not in [1, %d]: %w", what, id, MaxID, ErrOutOfRange)
	}
	return nil
}
