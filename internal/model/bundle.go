package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/features"
	"github.com/boutique-ia/forecast-engine/internal/observability"
)

// Bundle file names. A bundle directory holds exactly these four files.
const (
	WeightsFile  = "weights.json"
	ScalerFile   = "scaler.json"
	EncodersFile = "label_encoders.json"
	FeaturesFile = "feature_names.json"
)

// BundleFiles lists the artifacts of a model bundle.
var BundleFiles = []string{WeightsFile, ScalerFile, EncodersFile, FeaturesFile}

// Available reports whether dir holds a complete bundle.
func Available(dir string) bool {
	return missingArtifact(dir) == ""
}

func missingArtifact(dir string) string {
	for _, name := range BundleFiles {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.IsDir() {
			return name
		}
	}
	return ""
}

// Save writes the bundle to dir. Files are written to a sibling temporary
// directory which then replaces dir, so readers never see a partial bundle.
func (m *Model) Save(dir string) error {
	if !m.Trained() {
		return ErrNotTrained
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create model parent dir: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, ".bundle-*")
	if err != nil {
		return fmt.Errorf("create temp bundle dir: %w", err)
	}
	defer os.RemoveAll(tmp)
	if err := os.Chmod(tmp, 0o755); err != nil {
		return fmt.Errorf("chmod temp bundle dir: %w", err)
	}

	artifacts := map[string]interface{}{
		WeightsFile:  m.net,
		ScalerFile:   m.scaler,
		EncodersFile: m.encoder.Encoders,
		FeaturesFile: m.encoder.Space,
	}
	for name, v := range artifacts {
		if err := writeJSON(filepath.Join(tmp, name), v); err != nil {
			return err
		}
	}

	var old string
	if _, err := os.Stat(dir); err == nil {
		old = fmt.Sprintf("%s.old-%d", dir, time.Now().UnixNano())
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous bundle aside: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("install bundle: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}

	m.logger.Info().Str("dir", dir).Msg("model bundle saved")
	return nil
}

// Load reads a bundle from dir. Either all four artifacts load or Load fails.
func Load(dir string, logger *observability.Logger) (*Model, error) {
	if name := missingArtifact(dir); name != "" {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, filepath.Join(dir, name))
	}

	var (
		net      Network
		scaler   features.Scaler
		encoders map[string]*features.LabelEncoder
		space    features.Space
	)
	targets := map[string]interface{}{
		WeightsFile:  &net,
		ScalerFile:   &scaler,
		EncodersFile: &encoders,
		FeaturesFile: &space,
	}
	for name, dst := range targets {
		if err := readJSON(filepath.Join(dir, name), dst); err != nil {
			return nil, err
		}
	}

	if err := net.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", WeightsFile, err)
	}
	if net.Inputs != len(space) || len(scaler.Mean) != len(space) || len(scaler.Scale) != len(space) {
		return nil, fmt.Errorf("bundle mismatch: %d features, network expects %d, scaler has %d",
			len(space), net.Inputs, len(scaler.Mean))
	}
	for col, enc := range encoders {
		if enc == nil {
			return nil, fmt.Errorf("invalid %s: encoder %q is empty", EncodersFile, col)
		}
		if err := enc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s: encoder %q: %w", EncodersFile, col, err)
		}
	}

	m := New(logger)
	m.net = &net
	m.scaler = &scaler
	m.encoder = features.Restore(space, encoders, logger)

	m.logger.Info().Str("dir", dir).Strs("features", space).Msg("model bundle loaded")
	return m, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
