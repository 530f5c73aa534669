package sample

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// Store loads and persists the sample files for one project. Feature files
// are plain CSV matrices, one row per sample, optionally with a header row
// and a trailing label column; gocsv cannot express the dynamic column count,
// so the matrix codec sits on encoding/csv directly.
type Store struct {
	fs afero.Fs

	// FeatureNames holds the labeled file's feature column header, when one
	// was present. Used to echo column names into query sample artifacts.
	FeatureNames []string
}

// NewStore returns a store reading and writing through fs.
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// LoadLabeled reads the cumulative labeled set. featuresPath and labelsPath
// may point at the same file, in which case the trailing column carries the
// labels. Every label must be a member of the declared label space; a
// violation is a DataIntegrityError, not a row to drop.
func (s *Store) LoadLabeled(featuresPath, labelsPath string, space config.LabelSpace) ([]Labeled, error) {
	combined := featuresPath == labelsPath

	records, err := readRecords(s.fs, featuresPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading labeled features %s", featuresPath)
	}

	var header []string
	rows := records
	if len(records) > 0 && isFeatureHeader(records[0], combined) {
		header, rows = records[0], records[1:]
	}
	if combined && len(header) > 0 {
		s.FeatureNames = header[:len(header)-1]
	} else {
		s.FeatureNames = header
	}

	var labels []string
	if combined {
		labels = lastColumn(rows)
	} else {
		labelRecords, err := readRecords(s.fs, labelsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading labels %s", labelsPath)
		}
		labels = lastColumn(labelRecords)
		// a labels file may open with a header row of its own; a row that
		// is not a declared label cannot be data
		if len(labels) > 0 && !space.Contains(labels[0]) {
			labels = labels[1:]
		}
	}

	if len(labels) != len(rows) {
		return nil, errors.Errorf("labeled set mismatch: %d feature rows, %d labels", len(rows), len(labels))
	}

	set := make([]Labeled, 0, len(rows))
	for i, row := range rows {
		cols := row
		if combined {
			cols = row[:len(row)-1]
		}
		features, err := parseFeatures(cols)
		if err != nil {
			return nil, errors.Wrapf(err, "labeled sample %d", i)
		}
		if !space.Contains(labels[i]) {
			return nil, &DataIntegrityError{ID: i, Label: labels[i]}
		}
		set = append(set, Labeled{ID: i, Features: features, Label: labels[i]})
	}
	return set, nil
}

// LoadPool reads the unlabeled pool. All columns are features; ids are the
// original row indices.
func (s *Store) LoadPool(path string) (Pool, error) {
	records, err := readRecords(s.fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading unlabeled pool %s", path)
	}
	rows := records
	if len(records) > 0 && isHeader(records[0]) {
		rows = records[1:]
	}
	pool := make(Pool, 0, len(rows))
	for i, row := range rows {
		features, err := parseFeatures(row)
		if err != nil {
			return nil, errors.Wrapf(err, "unlabeled sample %d", i)
		}
		pool = append(pool, Unlabeled{ID: i, Features: features})
	}
	return pool, nil
}

// StageLabeled stages the cumulative labeled set for atomic commit, in the
// same layout it is loaded from: feature columns plus a trailing label
// column, with a header when feature names are known.
func (s *Store) StageLabeled(path string, set []Labeled) (*fileutil.Pending, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(set) > 0 {
		names := s.FeatureNames
		if len(names) != len(set[0].Features) {
			names = defaultFeatureNames(len(set[0].Features))
		}
		if err := w.Write(append(append([]string{}, names...), "label")); err != nil {
			return nil, err
		}
	}
	for _, l := range set {
		row := make([]string, 0, len(l.Features)+1)
		for _, f := range l.Features {
			row = append(row, strconv.FormatFloat(f, 'g', -1, 64))
		}
		row = append(row, l.Label)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return fileutil.WritePending(s.fs, path, buf.Bytes())
}

// PersistLabeled writes the cumulative labeled set and commits it
// immediately. Round execution prefers StageLabeled so the update commits
// together with the round's other artifacts.
func (s *Store) PersistLabeled(path string, set []Labeled) error {
	pending, err := s.StageLabeled(path, set)
	if err != nil {
		return err
	}
	return pending.Commit()
}

func defaultFeatureNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("f%d", i)
	}
	return names
}

// readRecords parses a CSV file into its raw rows; header detection is the
// caller's business since it depends on the file's layout.
func readRecords(fs afero.Fs, path string) ([][]string, error) {
	r, err := fileutil.NewReader(fs, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return csv.NewReader(r).ReadAll()
}

// isHeader reports whether a row of feature cells is a column-name row: any
// non-numeric cell marks it as one.
func isHeader(row []string) bool {
	for _, cell := range row {
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return true
		}
	}
	return false
}

// isFeatureHeader is isHeader for a labeled feature file's first row. In the
// combined layout the trailing label column is legitimately non-numeric, so
// only the feature columns participate in the check.
func isFeatureHeader(row []string, combined bool) bool {
	if combined && len(row) > 0 {
		row = row[:len(row)-1]
	}
	return isHeader(row)
}

func lastColumn(rows [][]string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out = append(out, row[len(row)-1])
	}
	return out
}

func parseFeatures(cols []string) ([]float64, error) {
	features := make([]float64, len(cols))
	for i, cell := range cols {
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, errors.Errorf("feature column %d: %v", i, err)
		}
		features[i] = f
	}
	return features, nil
}
