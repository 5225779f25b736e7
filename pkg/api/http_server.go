package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"riskcore/pkg/common"
	"riskcore/pkg/core"
	"riskcore/pkg/explain"
	"riskcore/pkg/model"
	"riskcore/pkg/profile"
	"riskcore/pkg/synth"
)

type Server struct {
	engine    *core.Engine
	explainer *explain.Client
}

func NewServer(engine *core.Engine, explainer *explain.Client) *Server {
	return &Server{engine: engine, explainer: explainer}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/train", s.handleTrain)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/importance", s.handleImportance)
	mux.HandleFunc("/api/sensitivity", s.handleSensitivity)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/metrics", s.handleMetrics)

	log.Printf("[API] Server listening on %s (Risk Dashboard API)...", addr)
	return http.ListenAndServe(addr, mux)
}

type predictRequest struct {
	Features common.FeatureVector `json:"features"`
	Profile  *profile.Profile     `json:"profile"`
	Explain  bool                 `json:"explain"`
}

type predictResponse struct {
	Seq         uint64               `json:"seq"`
	Label       int                  `json:"label"`
	LabelName   string               `json:"label_name"`
	Probability float64              `json:"probability"`
	Explanation *explain.Explanation `json:"explanation,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	features := req.Features
	if features == nil {
		if req.Profile == nil {
			http.Error(w, "Need features or profile", http.StatusBadRequest)
			return
		}
		if err := req.Profile.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		features = req.Profile.Encode()
	}

	start := time.Now()
	rec, err := s.engine.Predict(features)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	resp := predictResponse{
		Seq:         rec.Seq,
		Label:       int(rec.Label),
		LabelName:   rec.Label.String(),
		Probability: rec.Probability,
	}

	if req.Explain && s.explainer != nil && s.explainer.Enabled() {
		expl, err := s.explainer.Explain(r.Context(), rec)
		if err != nil {
			// the prediction stands even when the narrative service fails
			s.engine.Stats().RecordExplainError()
			log.Printf("[API] Explanation failed: %v", err)
		} else {
			resp.Explanation = expl
		}
	}

	log.Printf("[API] Predict seq=%d label=%s prob=%.3f latency=%v", rec.Seq, rec.Label, rec.Probability, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type trainRequest struct {
	Count    int                    `json:"count"`
	Features []common.FeatureVector `json:"features"`
	Labels   []common.RiskLabel     `json:"labels"`
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	var err error
	var size int
	if len(req.Features) > 0 || len(req.Labels) > 0 {
		size = len(req.Features)
		err = s.engine.Train(req.Features, req.Labels)
	} else {
		if req.Count <= 0 {
			http.Error(w, "Need count or features+labels", http.StatusBadRequest)
			return
		}
		size = req.Count
		err = s.engine.Retrain(req.Count)
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	log.Printf("[API] Trained on %d examples in %v", size, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"trained":  true,
		"examples": size,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil {
		http.Error(w, "Invalid count", http.StatusBadRequest)
		return
	}

	features, labels, err := s.engine.Generate(count)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"features": features,
		"labels":   labels,
	})
}

func (s *Server) handleImportance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"features":   common.FeatureNames,
		"importance": s.engine.Importance(),
		"trained":    s.engine.Trained(),
	})
}

type sensitivityRequest struct {
	Features common.FeatureVector `json:"features"`
	Feature  int                  `json:"feature"`
	Steps    int                  `json:"steps"`
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sensitivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	points, err := s.engine.Sensitivity(req.Features, req.Feature, req.Steps)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"feature": common.FeatureNames[req.Feature],
		"points":  points,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	n := 50
	if q := r.URL.Query().Get("n"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	recs := s.engine.History().Recent(n)
	out := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		out = append(out, map[string]interface{}{
			"seq":         rec.Seq,
			"timestamp":   rec.Timestamp.Format(time.RFC3339Nano),
			"features":    rec.Features,
			"label":       int(rec.Label),
			"label_name":  rec.Label.String(),
			"probability": rec.Probability,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":   s.engine.History().TotalCount(),
		"records": out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment;filename=riskcore_history.csv")

	if err := s.engine.History().ExportCSV(w); err != nil {
		log.Printf("[API] Export failed: %v", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	stats := s.engine.Stats()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"counters":        stats.Snapshot(),
		"high_risk_ratio": stats.HighRiskRatio(),
		"trained":         s.engine.Trained(),
		"history_total":   s.engine.History().TotalCount(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := s.engine.History().Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("History Reset Successful"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	counters := s.engine.Stats().Snapshot()
	fmt.Fprintf(w, "riskcore_predictions_total %d\n", counters["predictions"])
	fmt.Fprintf(w, "riskcore_trainings_total %d\n", counters["trainings"])
	fmt.Fprintf(w, "riskcore_high_risk_total %d\n", counters["high_risk"])
	fmt.Fprintf(w, "riskcore_explain_errors_total %d\n", counters["explain_errors"])
	fmt.Fprintf(w, "riskcore_high_risk_ratio %g\n", s.engine.Stats().HighRiskRatio())
	fmt.Fprintf(w, "riskcore_history_records %d\n", s.engine.History().TotalCount())
	trained := 0
	if s.engine.Trained() {
		trained = 1
	}
	fmt.Fprintf(w, "riskcore_model_trained %d\n", trained)
	for i, imp := range s.engine.Importance() {
		fmt.Fprintf(w, "riskcore_feature_importance{feature=%q} %g\n", common.FeatureNames[i], imp)
	}
}

// statusFor maps the core's typed errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotTrained):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalidTrainingData),
		errors.Is(err, model.ErrInvalidFeatureVector),
		errors.Is(err, synth.ErrInvalidCount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
