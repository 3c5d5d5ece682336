package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"solana-token-radar/internal/domain"
)

// Token listing bounds.
const (
	DefaultTokenLimit = 50
	MaxTokenLimit     = 1000
)

type healthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

type strategyView struct {
	Running           bool      `json:"running"`
	TotalDetected     int64     `json:"total_detected"`
	LastDetection     time.Time `json:"last_detection,omitempty"`
	ErrorCount        int64     `json:"error_count"`
	AvgProcessingTime string    `json:"avg_processing_time"`
}

type statusResponse struct {
	Running        bool                    `json:"running"`
	Preset         string                  `json:"preset"`
	StartedAt      time.Time               `json:"started_at"`
	LastCleanup    time.Time               `json:"last_cleanup"`
	DetectedCount  int                     `json:"detected_count"`
	DetectedCap    int                     `json:"detected_cap"`
	SignatureCount int                     `json:"signature_count"`
	SignatureCap   int                     `json:"signature_cap"`
	TotalReceived  int64                   `json:"total_received"`
	TotalAccepted  int64                   `json:"total_accepted"`
	TotalFiltered  int64                   `json:"total_filtered"`
	TotalInvalid   int64                   `json:"total_invalid"`
	Strategies     map[string]strategyView `json:"strategies"`
}

type txnView struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type tokenView struct {
	Address       string             `json:"address"`
	Name          string             `json:"name,omitempty"`
	Symbol        string             `json:"symbol,omitempty"`
	Decimals      int                `json:"decimals"`
	Source        string             `json:"source"`
	DetectedAt    time.Time          `json:"detected_at"`
	PairCreatedAt *time.Time         `json:"pair_created_at,omitempty"`
	LiquidityUSD  float64            `json:"liquidity_usd"`
	PriceUSD      float64            `json:"price_usd"`
	Volume        map[string]float64 `json:"volume"`
	PriceChange   map[string]float64 `json:"price_change"`
	Txns          map[string]txnView `json:"txns"`
	PairAddress   string             `json:"pair_address,omitempty"`
	Signature     string             `json:"signature,omitempty"`
	TrendingScore *float64           `json:"trending_score,omitempty"`
	RiskScore     *float64           `json:"risk_score,omitempty"`
}

type tokensResponse struct {
	Count  int         `json:"count"`
	Tokens []tokenView `json:"tokens"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.detector.HealthCheck(r.Context())
	resp := healthResponse{Status: "ok", Running: s.detector.Status().Running}
	code := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.detector.Status()
	resp := statusResponse{
		Running:        st.Running,
		Preset:         st.Preset,
		StartedAt:      st.StartedAt,
		LastCleanup:    st.LastCleanup,
		DetectedCount:  st.DetectedCount,
		DetectedCap:    st.DetectedCap,
		SignatureCount: st.SignatureCount,
		SignatureCap:   st.SignatureCap,
		TotalReceived:  st.TotalReceived,
		TotalAccepted:  st.TotalAccepted,
		TotalFiltered:  st.TotalFiltered,
		TotalInvalid:   st.TotalInvalid,
		Strategies:     make(map[string]strategyView, len(st.Strategies)),
	}
	for name, ss := range st.Strategies {
		resp.Strategies[name] = strategyView{
			Running:           ss.Running,
			TotalDetected:     ss.TotalDetected,
			LastDetection:     ss.LastDetection,
			ErrorCount:        ss.ErrorCount,
			AvgProcessingTime: ss.AvgProcessingTime.String(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	limit := DefaultTokenLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxTokenLimit)
	}

	recs := s.detector.DetectedTokens(limit)
	resp := tokensResponse{Count: len(recs), Tokens: make([]tokenView, 0, len(recs))}
	for _, rec := range recs {
		resp.Tokens = append(resp.Tokens, toTokenView(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toTokenView(r *domain.CandidateRecord) tokenView {
	v := tokenView{
		Address:      r.Address,
		Name:         r.Name,
		Symbol:       r.Symbol,
		Decimals:     r.Decimals,
		Source:       r.Source.String(),
		DetectedAt:   r.DetectedAt,
		LiquidityUSD: r.Liquidity.USD,
		PriceUSD:     r.PriceUSD,
		Volume:       map[string]float64{"m5": r.Volume.M5, "h1": r.Volume.H1, "h24": r.Volume.H24},
		PriceChange:  map[string]float64{"m5": r.PriceChange.M5, "h1": r.PriceChange.H1, "h24": r.PriceChange.H24},
		Txns: map[string]txnView{
			"m5":  {Buys: r.Txns.M5.Buys, Sells: r.Txns.M5.Sells},
			"h1":  {Buys: r.Txns.H1.Buys, Sells: r.Txns.H1.Sells},
			"h24": {Buys: r.Txns.H24.Buys, Sells: r.Txns.H24.Sells},
		},
		PairAddress:   r.PairAddress,
		Signature:     r.Signature,
		TrendingScore: r.TrendingScore,
		RiskScore:     r.RiskScore,
	}
	if !r.PairCreatedAt.IsZero() {
		created := r.PairCreatedAt
		v.PairCreatedAt = &created
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
