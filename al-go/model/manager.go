package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// Artifact is the persisted trained state of one completed round.
type Artifact struct {
	Round       int              `json:"round"`
	ModelType   config.ModelType `json:"model_type"`
	Estimator   json.RawMessage  `json:"estimator"`
	CreatedFrom config.Config    `json:"created_from"`
}

// Manager loads and persists model artifacts keyed by round number. Each
// round's file is distinct and never overwritten, so prior rounds stay
// available for rollback and audit.
type Manager struct {
	fs  afero.Fs
	dir string
}

// NewManager returns a manager storing artifacts under dir.
func NewManager(fs afero.Fs, dir string) *Manager {
	return &Manager{fs: fs, dir: dir}
}

// Path returns the artifact path for a round.
func (m *Manager) Path(round int) string {
	return filepath.Join(m.dir, fmt.Sprintf("model_round_%d.json", round))
}

// Load returns the estimator persisted for the round preceding the given
// one. The second return value reports whether such an artifact exists;
// round 1 legitimately has none.
func (m *Manager) Load(round int) (Estimator, bool, error) {
	est, _, ok, err := m.LoadArtifact(round - 1)
	return est, ok, err
}

// LoadArtifact reads the artifact persisted for exactly the given round.
func (m *Manager) LoadArtifact(round int) (Estimator, *Artifact, bool, error) {
	path := m.Path(round)
	if !fileutil.Exists(m.fs, path) {
		return nil, nil, false, nil
	}
	est, art, err := m.LoadFrom(path)
	if err != nil {
		return nil, nil, false, err
	}
	return est, art, true, nil
}

// LoadFrom reads a model artifact from an explicit path, for resuming from
// an externally supplied prior model.
func (m *Manager) LoadFrom(path string) (Estimator, *Artifact, error) {
	data, err := fileutil.ReadFile(m.fs, path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error reading model artifact %s", path)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, nil, errors.Wrapf(err, "error decoding model artifact %s", path)
	}
	est, err := decodeEstimator(art.ModelType, art.Estimator)
	if err != nil {
		return nil, nil, err
	}
	return est, &art, nil
}

// Stage serializes the trained estimator as this round's artifact and stages
// it for atomic commit. Staging fails if the round already has a committed
// artifact: rounds are never replayed in place.
func (m *Manager) Stage(round int, est Estimator, cfg config.Config) (*fileutil.Pending, error) {
	path := m.Path(round)
	if fileutil.Exists(m.fs, path) {
		return nil, errors.Errorf("model artifact for round %d already exists: %s", round, path)
	}

	state, err := json.Marshal(est)
	if err != nil {
		return nil, errors.Wrapf(err, "error encoding estimator state")
	}
	data, err := json.MarshalIndent(Artifact{
		Round:       round,
		ModelType:   est.Family(),
		Estimator:   state,
		CreatedFrom: cfg,
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "error encoding model artifact")
	}
	return fileutil.WritePending(m.fs, path, data)
}

// Persist stages and immediately commits the round's artifact. Round
// execution prefers Stage so the model commits together with the round's
// other artifacts.
func (m *Manager) Persist(round int, est Estimator, cfg config.Config) error {
	pending, err := m.Stage(round, est, cfg)
	if err != nil {
		return err
	}
	return pending.Commit()
}
