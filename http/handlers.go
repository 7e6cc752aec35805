package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"cyberml/db"
	"cyberml/detector"
	"cyberml/monitoring"
)

const (
	serviceName        = "Cybersecurity ML API"
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Handlers 预测API处理器。Hub与Store可为nil，对应功能关闭。
type Handlers struct {
	svc     *detector.Service
	metrics *monitoring.Metrics
	hub     *monitoring.Hub
	store   *db.Store
	logger  *zap.Logger
}

// Deps 处理器依赖
type Deps struct {
	Service *detector.Service
	Metrics *monitoring.Metrics
	Hub     *monitoring.Hub
	Store   *db.Store
	Logger  *zap.Logger
}

func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		svc:     deps.Service,
		metrics: deps.Metrics,
		hub:     deps.Hub,
		store:   deps.Store,
		logger:  logger,
	}
}

// Register 注册所有路由
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("POST /predict/malware", h.handlePredictMalware)
	mux.HandleFunc("POST /predict/spam", h.handlePredictSpam)
	mux.HandleFunc("GET /models/info", h.handleModelsInfo)
	mux.HandleFunc("GET /predictions/recent", h.handleRecent)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	if h.hub != nil {
		mux.HandleFunc("GET /ws/predictions", h.hub.HandleWebSocket)
	}
}

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "online",
		"service":   serviceName,
		"endpoints": []string{"/predict/malware", "/predict/spam"},
	})
}

func (h *Handlers) handlePredictMalware(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var record detector.MalwareRecord
	if !h.decode(w, r, detector.PipelineMalware, &record) {
		return
	}

	prediction, err := h.svc.PredictMalware(r.Context(), record)
	if err != nil {
		h.fail(w, r, detector.PipelineMalware, err)
		return
	}
	h.observe(r, detector.PipelineMalware, prediction, len(h.svc.Artifacts().MalwareFeatures), start)
	respondJSON(w, http.StatusOK, prediction)
}

func (h *Handlers) handlePredictSpam(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var record detector.SpamRecord
	if !h.decode(w, r, detector.PipelineSpam, &record) {
		return
	}

	prediction, err := h.svc.PredictSpam(r.Context(), record)
	if err != nil {
		h.fail(w, r, detector.PipelineSpam, err)
		return
	}
	if prediction.Cached {
		h.metrics.CacheHit()
	}
	h.observe(r, detector.PipelineSpam, prediction, len([]rune(record.EmailText)), start)
	respondJSON(w, http.StatusOK, prediction)
}

func (h *Handlers) handleModelsInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.ModelsInfo())
}

func (h *Handlers) handleRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondDetail(w, http.StatusServiceUnavailable, "Prediction history is disabled")
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": []detector.FieldError{{
					Loc:  []string{"query", "limit"},
					Msg:  "value is not a valid positive integer",
					Type: "type_error.integer",
				}},
			})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	records, err := h.store.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.logger.Error("query prediction history", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "History query failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":       len(records),
		"predictions": records,
	})
}

// decode 读取请求体并校验，失败时已写出响应
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, pipeline string, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		respondDetail(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if err := detector.Decode(body, dst); err != nil {
		h.metrics.ObserveError(pipeline, string(detector.KindValidation))
		var derr *detector.Error
		fields := []detector.FieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
		if errors.As(err, &derr) && len(derr.Fields) > 0 {
			fields = derr.Fields
		}
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": fields})
		return false
	}
	return true
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, pipeline string, err error) {
	h.metrics.ObserveError(pipeline, string(detector.KindPipeline))
	h.logger.Error("prediction failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("pipeline", pipeline),
		zap.Error(err),
	)

	detail := err.Error()
	var derr *detector.Error
	if errors.As(err, &derr) {
		detail = derr.Detail()
	}
	respondDetail(w, http.StatusInternalServerError, "Prediction error: "+detail)
}

// observe 记录指标、推送实时事件并写入审计表。审计写入失败只记录日志。
func (h *Handlers) observe(r *http.Request, pipeline string, p detector.Prediction, inputSize int, start time.Time) {
	h.metrics.ObservePrediction(pipeline, p.Prediction, time.Since(start))

	requestID := GetRequestID(r.Context())
	labels := labelsFor(pipeline)

	if h.hub != nil {
		h.hub.Publish(pipeline, map[string]any{
			"request_id":    requestID,
			"pipeline":      pipeline,
			"prediction":    p.Prediction,
			"confidence":    p.Confidence,
			"probabilities": p.Probabilities,
		})
	}

	if h.store != nil {
		rec := db.PredictionRecord{
			RequestID:    requestID,
			Pipeline:     pipeline,
			Label:        p.Prediction,
			Confidence:   p.Confidence,
			ProbNegative: p.Probabilities[labels[0]],
			ProbPositive: p.Probabilities[labels[1]],
			InputSize:    inputSize,
		}
		// 请求结束后仍需完成写入
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
		defer cancel()
		if err := h.store.SavePrediction(ctx, rec); err != nil {
			h.logger.Warn("save prediction", zap.String("request_id", requestID), zap.Error(err))
		}
	}
}

func labelsFor(pipeline string) [2]string {
	if pipeline == detector.PipelineMalware {
		return detector.MalwareLabels
	}
	return detector.SpamLabels
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	payload, err := sonic.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
