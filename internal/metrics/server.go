package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

var metricsLog = logrus.WithField("component", "metrics")

// Status 会话快照，由交易门面提供
type Status struct {
	SessionID   string `json:"session_id"`
	State       string `json:"state"`
	ConnID      int    `json:"conn_id"`
	Correlation string `json:"correlation"`
}

// StatusFunc 读取会话快照，不能阻塞
type StatusFunc func() Status

type deribitReport struct {
	Status   *Status          `json:"status,omitempty"`
	Counters map[string]int64 `json:"counters"`
}

func newMux(status StatusFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())

	// /debug/deribit：计数器 + 会话状态，便于脚本巡检
	mux.HandleFunc("/debug/deribit", func(w http.ResponseWriter, r *http.Request) {
		report := deribitReport{Counters: Snapshot()}
		if status != nil {
			st := status()
			report.Status = &st
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			metricsLog.Debugf("写入 /debug/deribit 失败: %v", err)
		}
	})

	// pprof 显式注册到自己的 mux，不使用 DefaultServeMux
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartAsync 非阻塞启动调试服务（/debug/vars、/debug/deribit、/debug/pprof），
// ctx 结束时优雅关闭。status 可为 nil，此时 /debug/deribit 只输出计数器。
func StartAsync(ctx context.Context, listenAddr string, status StatusFunc) (*http.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	s := &http.Server{
		Addr:              listenAddr,
		Handler:           newMux(status),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsLog.Errorf("调试服务异常退出: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	metricsLog.Infof("📊 调试服务已启动: http://%s/debug/deribit", ln.Addr())
	return s, nil
}
