package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrArtifactNotFound is returned by Load when either artifact file is missing.
var ErrArtifactNotFound = errors.New("ml: model artifacts not found")

// ModelArtifact is the on-disk form of a trained forest.
type ModelArtifact struct {
	ModelType    string        `json:"model_type"`
	ModelVersion string        `json:"model_version"`
	FeatureNames []string      `json:"feature_names"`
	TrainedAt    time.Time     `json:"trained_at"`
	Forest       *RandomForest `json:"forest"`
}

// ArtifactStore persists the model and scaler as two JSON files.
// ArtifactStore 将模型与标准化器分别保存为两个 JSON 文件。
type ArtifactStore struct {
	ModelPath  string
	ScalerPath string
}

// NewArtifactStore creates a store for the given paths.
func NewArtifactStore(modelPath, scalerPath string) *ArtifactStore {
	return &ArtifactStore{ModelPath: modelPath, ScalerPath: scalerPath}
}

// Exists reports whether both artifact files are present.
func (s *ArtifactStore) Exists() bool {
	for _, p := range []string{s.ModelPath, s.ScalerPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Save writes both artifacts. Each file is replaced atomically.
func (s *ArtifactStore) Save(model *ModelArtifact, scaler *StandardScaler) error {
	if model == nil || model.Forest == nil || scaler == nil {
		return errors.New("ml: model and scaler are required")
	}
	if model.Forest.NFeatures != scaler.NFeatures {
		return fmt.Errorf("ml: model has %d features but scaler has %d", model.Forest.NFeatures, scaler.NFeatures)
	}
	if err := writeJSON(s.ScalerPath, scaler); err != nil {
		return fmt.Errorf("save scaler: %w", err)
	}
	if err := writeJSON(s.ModelPath, model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Load reads both artifacts and checks that they agree with each other and with
// wantFeatures (0 skips that check).
func (s *ArtifactStore) Load(wantFeatures int) (*ModelArtifact, *StandardScaler, error) {
	var model ModelArtifact
	if err := readJSON(s.ModelPath, &model); err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	var scaler StandardScaler
	if err := readJSON(s.ScalerPath, &scaler); err != nil {
		return nil, nil, fmt.Errorf("load scaler: %w", err)
	}
	if model.Forest == nil {
		return nil, nil, errors.New("ml: model artifact has no forest")
	}
	if err := model.Forest.Validate(); err != nil {
		return nil, nil, err
	}
	if scaler.NFeatures != model.Forest.NFeatures || len(scaler.Mean) != scaler.NFeatures || len(scaler.Scale) != scaler.NFeatures {
		return nil, nil, fmt.Errorf("ml: scaler has %d features but model has %d", scaler.NFeatures, model.Forest.NFeatures)
	}
	if wantFeatures > 0 && model.Forest.NFeatures != wantFeatures {
		return nil, nil, fmt.Errorf("ml: artifacts have %d features, want %d", model.Forest.NFeatures, wantFeatures)
	}
	return &model, &scaler, nil
}

func writeJSON(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrArtifactNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}
