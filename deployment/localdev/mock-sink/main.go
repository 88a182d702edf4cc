package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// report mirrors the fields the sink cares about; unknown fields are ignored.
type report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Score       struct {
		Overall   float64 `json:"overall"`
		Migration float64 `json:"migration"`
		Adoption  float64 `json:"adoption"`
		Quality   float64 `json:"quality"`
	} `json:"score"`
	OpenAlerts      []json.RawMessage `json:"open_alerts"`
	Recommendations []struct {
		Priority int    `json:"priority"`
		Action   string `json:"action"`
	} `json:"recommendations"`
}

func main() {
	logger := log.New(log.Writer(), "sink-mock ", log.LstdFlags|log.Lmicroseconds)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var rep report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			logger.Printf("bad report payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		logger.Printf("report received: overall=%.1f migration=%.1f adoption=%.1f quality=%.1f alerts=%d recommendations=%d",
			rep.Score.Overall, rep.Score.Migration, rep.Score.Adoption, rep.Score.Quality,
			len(rep.OpenAlerts), len(rep.Recommendations))
		for _, rec := range rep.Recommendations {
			logger.Printf("  [p%d] %s", rec.Priority, rec.Action)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	srv := &http.Server{
		Addr:    ":8085",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8085")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
