package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// maxResponseSize はモデルサーバー応答の最大読み込みサイズ。
const maxResponseSize = 64 * 1024

// ErrModelUnavailable はサーキットブレーカーが開いているためリクエストを送らなかった場合に返される。
var ErrModelUnavailable = errors.New("model server unavailable")

// RemoteConfig はRemoteEstimatorの設定。
type RemoteConfig struct {
	Endpoint string        // モデルサーバーのURL
	Timeout  time.Duration // 1リクエストあたりのタイムアウト

	// サーキットブレーカー設定
	FailureThreshold uint32        // 連続失敗がこの回数に達したら開く
	OpenTimeout      time.Duration // 開いてから半開に移るまでの時間
}

type remoteRequest struct {
	Features Features `json:"features"`
}

type remoteResponse struct {
	PredictedYield *float64 `json:"predicted_yield"`
}

// RemoteEstimator は特徴量ベクトルをHTTPでモデルサーバーに送り、推定値を受け取る。
// リトライは行わず、連続失敗時はサーキットブレーカーにより即座に失敗する。
type RemoteEstimator struct {
	endpoint string
	client   *http.Client
	encoder  *Encoder
	cb       *gobreaker.CircuitBreaker[float64]
}

var _ Estimator = (*RemoteEstimator)(nil)

// NewRemoteEstimator はRemoteEstimatorを生成する。
// encoderはモデルサーバーと同じ学習時のカテゴリ符号化でなければならない。
func NewRemoteEstimator(cfg RemoteConfig, encoder *Encoder) (*RemoteEstimator, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("model endpoint is required")
	}
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        "model-server",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &RemoteEstimator{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		encoder:  encoder,
		cb:       cb,
	}, nil
}

// Estimate は入力パラメータを符号化してモデルサーバーに問い合わせる。
// カテゴリ値が不正な場合はリクエストを送らずErrUnknownCategoryを返す。
func (r *RemoteEstimator) Estimate(ctx context.Context, input model.PredictionInput) (float64, error) {
	features, err := FeatureVector(input, r.encoder)
	if err != nil {
		return 0, err
	}

	y, err := r.cb.Execute(func() (float64, error) {
		return r.call(ctx, features)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return y, err
}

// State はサーキットブレーカーの現在の状態を返す。
func (r *RemoteEstimator) State() gobreaker.State {
	return r.cb.State()
}

func (r *RemoteEstimator) call(ctx context.Context, features Features) (float64, error) {
	body, err := json.Marshal(remoteRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode model server response: %w", err)
	}
	if out.PredictedYield == nil {
		return 0, fmt.Errorf("model server response has no predicted_yield")
	}

	return checkFinite(*out.PredictedYield)
}
