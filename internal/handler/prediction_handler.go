package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/middleware"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// PredictionServiceInterface は予測ハンドラーが必要とするサービスインターフェース。
type PredictionServiceInterface interface {
	Submit(ctx context.Context, userID string, input model.PredictionInput) (*model.Prediction, error)
	List(ctx context.Context, userID string) ([]*model.Prediction, error)
}

// predictRequest は収量推定リクエストのボディ。
// 数値フィールドはポインタで受け取り、未指定と0を区別する。
type predictRequest struct {
	SoilType        string   `json:"soil_type" validate:"required,max=64"`
	PH              *float64 `json:"ph" validate:"required,gte=0,lte=14"`
	RainfallMM      *float64 `json:"rainfall_mm" validate:"required,gte=0"`
	TemperatureC    *float64 `json:"temperature_c" validate:"required,gte=-60,lte=70"`
	HumidityPercent *float64 `json:"humidity_percent" validate:"required,gte=0,lte=100"`
	SeedVariety     string   `json:"seed_variety" validate:"required,max=64"`
	FertilizerType  string   `json:"fertilizer_type" validate:"required,max=64"`
	PlantingDate    string   `json:"planting_date" validate:"required,max=32"`
}

func (req *predictRequest) toInput() model.PredictionInput {
	return model.PredictionInput{
		SoilType:        req.SoilType,
		PH:              *req.PH,
		RainfallMM:      *req.RainfallMM,
		TemperatureC:    *req.TemperatureC,
		HumidityPercent: *req.HumidityPercent,
		SeedVariety:     req.SeedVariety,
		FertilizerType:  req.FertilizerType,
		PlantingDate:    req.PlantingDate,
	}
}

// predictionResponse は予測記録のレスポンス。入力値と導出値をそのまま返す。
type predictionResponse struct {
	ID              string    `json:"id"`
	SoilType        string    `json:"soil_type"`
	PH              float64   `json:"ph"`
	RainfallMM      float64   `json:"rainfall_mm"`
	TemperatureC    float64   `json:"temperature_c"`
	HumidityPercent float64   `json:"humidity_percent"`
	SeedVariety     string    `json:"seed_variety"`
	FertilizerType  string    `json:"fertilizer_type"`
	PlantingDate    string    `json:"planting_date"`
	PredictedYield  float64   `json:"predicted_yield"`
	Confidence      string    `json:"confidence"`
	Recommendation  string    `json:"recommendation"`
	UserID          string    `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func newPredictionResponse(p *model.Prediction) predictionResponse {
	return predictionResponse{
		ID:              p.ID,
		SoilType:        p.SoilType,
		PH:              p.PH,
		RainfallMM:      p.RainfallMM,
		TemperatureC:    p.TemperatureC,
		HumidityPercent: p.HumidityPercent,
		SeedVariety:     p.SeedVariety,
		FertilizerType:  p.FertilizerType,
		PlantingDate:    p.PlantingDate,
		PredictedYield:  p.PredictedYield,
		Confidence:      string(p.Confidence),
		Recommendation:  p.Recommendation,
		UserID:          p.UserID,
		CreatedAt:       p.CreatedAt,
	}
}

// PredictionHandler は収量推定のHTTPハンドラー。
type PredictionHandler struct {
	service PredictionServiceInterface
}

// NewPredictionHandler はPredictionHandlerを生成する。
func NewPredictionHandler(service PredictionServiceInterface) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// Predict は入力パラメータから収量を推定し、記録を保存して返す。
// POST /predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w, model.NewUnauthorizedError())
		return
	}

	var req predictRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	prediction, err := h.service.Submit(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPredictionResponse(prediction))
}

// ListPredictions はログインユーザーの予測記録一覧を返す。
// GET /predictions
func (h *PredictionHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w, model.NewUnauthorizedError())
		return
	}

	predictions, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 空の場合もnullではなく[]を返す
	resp := make([]predictionResponse, 0, len(predictions))
	for _, p := range predictions {
		resp = append(resp, newPredictionResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
