package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
)

// Table file names under <root>/output written by the indexer.
const (
	EntitiesFile         = "entities.parquet"
	RelationshipsFile    = "relationships.parquet"
	CommunitiesFile      = "communities.parquet"
	CommunityReportsFile = "community_reports.parquet"
)

// Entity is the subset of the indexer's entity table the pipeline reads.
type Entity struct {
	Title       string `parquet:"title,optional"`
	Type        string `parquet:"type,optional"`
	Description string `parquet:"description,optional"`
}

type Relationship struct {
	Source      string   `parquet:"source,optional"`
	Target      string   `parquet:"target,optional"`
	Description string   `parquet:"description,optional"`
	Weight      *float64 `parquet:"weight"`
}

type Community struct {
	Title string `parquet:"title,optional"`
	Level int64  `parquet:"level,optional"`
}

type CommunityReport struct {
	Title   string `parquet:"title,optional"`
	Level   int64  `parquet:"level,optional"`
	Summary string `parquet:"summary,optional"`
}

// Tables holds the parquet export of one indexer run.
type Tables struct {
	Entities      []Entity
	Relationships []Relationship
	Communities   []Community
	Reports       []CommunityReport
}

// OutputDir is where the indexer writes its tables for a work dir.
func OutputDir(root string) string { return filepath.Join(root, "output") }

// ReadTables loads the entity and relationship tables, which must exist, and
// the community tables when present.
func ReadTables(outputDir string) (*Tables, error) {
	if err := Require(outputDir, EntitiesFile, RelationshipsFile); err != nil {
		return nil, err
	}
	t := &Tables{}
	var err error
	if t.Entities, err = parquet.ReadFile[Entity](filepath.Join(outputDir, EntitiesFile)); err != nil {
		return nil, fmt.Errorf("read %s: %w", EntitiesFile, err)
	}
	if t.Relationships, err = parquet.ReadFile[Relationship](filepath.Join(outputDir, RelationshipsFile)); err != nil {
		return nil, fmt.Errorf("read %s: %w", RelationshipsFile, err)
	}
	if exists(filepath.Join(outputDir, CommunitiesFile)) {
		if t.Communities, err = parquet.ReadFile[Community](filepath.Join(outputDir, CommunitiesFile)); err != nil {
			return nil, fmt.Errorf("read %s: %w", CommunitiesFile, err)
		}
	}
	if exists(filepath.Join(outputDir, CommunityReportsFile)) {
		if t.Reports, err = parquet.ReadFile[CommunityReport](filepath.Join(outputDir, CommunityReportsFile)); err != nil {
			return nil, fmt.Errorf("read %s: %w", CommunityReportsFile, err)
		}
	}
	return t, nil
}

// Require checks that every named table exists in outputDir.
func Require(outputDir string, names ...string) error {
	for _, n := range names {
		if !exists(filepath.Join(outputDir, n)) {
			return fmt.Errorf("%w: missing output/%s", perrors.ErrExtractionFailed, n)
		}
	}
	return nil
}

// WriteTables writes t as parquet files. Used for fixtures and re-exports.
func WriteTables(outputDir string, t *Tables) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(filepath.Join(outputDir, EntitiesFile), t.Entities); err != nil {
		return err
	}
	if err := parquet.WriteFile(filepath.Join(outputDir, RelationshipsFile), t.Relationships); err != nil {
		return err
	}
	if t.Communities != nil {
		if err := parquet.WriteFile(filepath.Join(outputDir, CommunitiesFile), t.Communities); err != nil {
			return err
		}
	}
	if t.Reports != nil {
		if err := parquet.WriteFile(filepath.Join(outputDir, CommunityReportsFile), t.Reports); err != nil {
			return err
		}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
