package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// Artifact はJSON形式のモデル成果物。
type Artifact struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Intercept    float64             `json:"intercept"`
	Coefficients []float64           `json:"coefficients"`
	Categories   map[string][]string `json:"categories"`
}

// Model は線形回帰による収量推定モデル。
// 読み込み後は不変で、並行利用できる。
type Model struct {
	name         string
	version      string
	intercept    float64
	coefficients Features
	encoder      *Encoder
}

var _ Estimator = (*Model)(nil)

// LoadModel はpathのモデル成果物を読み込む。
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer f.Close()

	m, err := ReadModel(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load model artifact %s: %w", path, err)
	}
	return m, nil
}

// ReadModel はrからモデル成果物を読み込み、内容を検証する。
func ReadModel(r io.Reader) (*Model, error) {
	var artifact Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&artifact); err != nil {
		return nil, fmt.Errorf("invalid artifact JSON: %w", err)
	}
	return NewModel(artifact)
}

// NewModel はArtifactからModelを生成する。
func NewModel(artifact Artifact) (*Model, error) {
	if len(artifact.Coefficients) != FeatureCount {
		return nil, fmt.Errorf("expected %d coefficients, got %d", FeatureCount, len(artifact.Coefficients))
	}
	if !isFinite(artifact.Intercept) {
		return nil, fmt.Errorf("intercept is not finite")
	}

	var coefficients Features
	for i, c := range artifact.Coefficients {
		if !isFinite(c) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
		coefficients[i] = c
	}

	encoder, err := NewEncoder(artifact.Categories)
	if err != nil {
		return nil, err
	}

	return &Model{
		name:         artifact.Name,
		version:      artifact.Version,
		intercept:    artifact.Intercept,
		coefficients: coefficients,
		encoder:      encoder,
	}, nil
}

// Name はモデル名を返す。
func (m *Model) Name() string { return m.name }

// Version はモデルのバージョンを返す。
func (m *Model) Version() string { return m.version }

// Encoder はモデルが学習時に使用したカテゴリ符号化を返す。
func (m *Model) Encoder() *Encoder { return m.encoder }

// Estimate は入力パラメータから収量を推定する。
func (m *Model) Estimate(_ context.Context, input model.PredictionInput) (float64, error) {
	features, err := FeatureVector(input, m.encoder)
	if err != nil {
		return 0, err
	}
	return checkFinite(m.Predict(features))
}

// Predict は特徴量ベクトルに対する推定値を返す。
func (m *Model) Predict(features Features) float64 {
	y := m.intercept
	for i, x := range features {
		y += m.coefficients[i] * x
	}
	return y
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
