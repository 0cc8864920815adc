package scoring

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	apperrors "docverify/internal/common/errors"
)

// Manifest describes a versioned artifact bundle on disk. Each entry names a
// CBOR file relative to the manifest and its BLAKE3-256 digest.
type Manifest struct {
	Version string        `yaml:"version"`
	Poly    ArtifactEntry `yaml:"poly"`
	Scaler  ArtifactEntry `yaml:"scaler"`
	Model   ArtifactEntry `yaml:"model"`
}

type ArtifactEntry struct {
	File   string `yaml:"file"`
	BLAKE3 string `yaml:"blake3"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("scoring: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("scoring: CBOR decoder initialization failed: " + err.Error())
	}
}

// Digest is the hex BLAKE3-256 of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadBundle reads the manifest at path and the three artifacts it names.
// Any missing, unreadable or tampered artifact yields a model-unavailable error.
func LoadBundle(path string) (*Pipeline, error) {
	if path == "" {
		return nil, apperrors.NewModelUnavailableError(fmt.Errorf("no manifest configured"))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewModelUnavailableError(err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewModelUnavailableError(fmt.Errorf("parse manifest: %w", err))
	}

	dir := filepath.Dir(path)
	var (
		poly   PolynomialFeatures
		scaler StandardScaler
		net    Network
	)
	if err := readArtifact(dir, "poly", m.Poly, &poly); err != nil {
		return nil, err
	}
	if err := readArtifact(dir, "scaler", m.Scaler, &scaler); err != nil {
		return nil, err
	}
	if err := readArtifact(dir, "model", m.Model, &net); err != nil {
		return nil, err
	}

	if got := poly.OutputSize(); got != len(scaler.Mean) {
		return nil, apperrors.NewModelUnavailableError(
			fmt.Errorf("scaler has %d columns but expansion yields %d", len(scaler.Mean), got))
	}
	if len(net.Layers) == 0 || len(net.Layers[0].Weights) != len(scaler.Mean) {
		return nil, apperrors.NewModelUnavailableError(fmt.Errorf("model input does not match scaler width"))
	}

	return &Pipeline{Poly: poly, Scaler: scaler, Model: net, Version: m.Version}, nil
}

func readArtifact(dir, name string, entry ArtifactEntry, v any) error {
	if entry.File == "" {
		return apperrors.NewModelUnavailableError(fmt.Errorf("%s artifact missing from manifest", name))
	}
	if entry.BLAKE3 == "" {
		return apperrors.NewModelUnavailableError(fmt.Errorf("%s: manifest carries no digest", name))
	}
	data, err := os.ReadFile(filepath.Join(dir, entry.File))
	if err != nil {
		return apperrors.NewModelUnavailableError(fmt.Errorf("%s: %w", name, err))
	}
	if Digest(data) != entry.BLAKE3 {
		return apperrors.NewModelUnavailableError(fmt.Errorf("%s: digest mismatch", name))
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return apperrors.NewModelUnavailableError(fmt.Errorf("%s: decode: %w", name, err))
	}
	return nil
}

// WriteBundle stores a pipeline under dir with a manifest named manifest.yaml
// and returns the manifest path.
func WriteBundle(dir string, version string, poly PolynomialFeatures, scaler StandardScaler, net Network) (string, error) {
	m := Manifest{Version: version}
	items := []struct {
		file  string
		v     any
		entry *ArtifactEntry
	}{
		{"poly.cbor", poly, &m.Poly},
		{"scaler.cbor", scaler, &m.Scaler},
		{"model.cbor", net, &m.Model},
	}
	for _, it := range items {
		data, err := encMode.Marshal(it.v)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", it.file, err)
		}
		if err := os.WriteFile(filepath.Join(dir, it.file), data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", it.file, err)
		}
		*it.entry = ArtifactEntry{File: it.file, BLAKE3: Digest(data)}
	}

	raw, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
