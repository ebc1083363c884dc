// routes/api_routes.go
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/pipeline"
	"github.com/LilVoxy/sales_dwh/ETL/quality"
	"github.com/LilVoxy/sales_dwh/ETL/snapshot"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Runner - операции конвейера, доступные через API
type Runner interface {
	RunBronzeToSilver(ctx context.Context) (*pipeline.StageResult, error)
	RunSilverToGold(ctx context.Context) (*pipeline.StageResult, error)
	LatestReport(ctx context.Context) (*quality.Report, error)
	RunStats(ctx context.Context, days int) ([]models.ETLRunLog, error)
}

const defaultStatsDays = 7

// SetupRoutes настраивает все маршруты API и WebSocket
func SetupRoutes(router *mux.Router, runner Runner, events http.HandlerFunc, logger *utils.ETLLogger) {
	router.Use(corsMiddleware)

	// Поток событий запусков
	router.HandleFunc("/ws/events", events)

	// API запусков
	router.HandleFunc("/api/runs/bronze-to-silver", RunStageHandler(runner.RunBronzeToSilver, logger)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/runs/silver-to-gold", RunStageHandler(runner.RunSilverToGold, logger)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/runs", RunStatsHandler(runner, logger)).Methods("GET", "OPTIONS")

	// Отчет контроля качества
	router.HandleFunc("/api/quality/latest", LatestReportHandler(runner, logger)).Methods("GET", "OPTIONS")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// RunStageHandler синхронно выполняет этап и возвращает его итог
func RunStageHandler(run func(ctx context.Context) (*pipeline.StageResult, error), logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := run(r.Context())
		if err != nil {
			logger.Error("Ошибка выполнения этапа: %v", err)
			writeError(w, stageStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res, logger)
	}
}

// RunStatsHandler возвращает журнал запусков за последние days дней
func RunStatsHandler(runner Runner, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := defaultStatsDays
		if s := r.URL.Query().Get("days"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "Неверный формат параметра days")
				return
			}
			days = n
		}

		runs, err := runner.RunStats(r.Context(), days)
		if err != nil {
			logger.Error("Ошибка при получении журнала запусков: %v", err)
			writeError(w, http.StatusInternalServerError, "Ошибка при получении журнала запусков")
			return
		}
		if runs == nil {
			runs = []models.ETLRunLog{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs}, logger)
	}
}

// LatestReportHandler возвращает последний отчет контроля качества
func LatestReportHandler(runner Runner, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := runner.LatestReport(r.Context())
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Отчетов контроля качества пока нет")
			return
		}
		if err != nil {
			logger.Error("Ошибка при чтении отчета качества: %v", err)
			writeError(w, http.StatusInternalServerError, "Ошибка при чтении отчета качества")
			return
		}
		writeJSON(w, http.StatusOK, report, logger)
	}
}

// stageStatus сопоставляет ошибку этапа с кодом ответа
func stageStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrStructural):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoSilver):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *utils.ETLLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Ошибка при кодировании JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
