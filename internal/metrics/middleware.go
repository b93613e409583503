package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// metricsRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type metricsRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (mr *metricsRecorder) WriteHeader(code int) {
	if !mr.written {
		mr.statusCode = code
		mr.written = true
	}
	mr.ResponseWriter.WriteHeader(code)
}

func (mr *metricsRecorder) Write(b []byte) (int, error) {
	if !mr.written {
		mr.statusCode = http.StatusOK
		mr.written = true
	}
	return mr.ResponseWriter.Write(b)
}

// NewHTTPMiddleware はリクエストごとにHTTPメトリクスを記録するミドルウェアを返す。
// パスラベルにはchiのルートパターンを使用する（カーディナリティ抑制のため）。
func NewHTTPMiddleware(collector MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &metricsRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			collector.RecordHTTPRequest(r.Method, path, rec.statusCode)
			collector.RecordRequestLatency(time.Since(start))
		})
	}
}
