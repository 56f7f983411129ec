package debug

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/mprof/pkg/logging"
	"github.com/danpilch/mprof/pkg/report"
)

// Snapshotter produces live reports. *profiler.Profiler implements it.
type Snapshotter interface {
	Snapshot(details bool) *report.Report
}

// Handler serves the live report at /debug/mprof/report and the Go runtime's
// own profiles under /debug/pprof/.
//
// The report endpoint accepts format (xml, tsv, json, pprof, folded) and
// details (a boolean) query parameters. Folded output also takes metric
// (bytes, time or calls).
func Handler(src Snapshotter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/mprof/report", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		format, err := report.ParseFormat(q.Get("format"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		details := false
		if v := q.Get("details"); v != "" {
			details, err = strconv.ParseBool(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid details %q", v), http.StatusBadRequest)
				return
			}
		}

		metric := report.MetricBytes
		if v := q.Get("metric"); v != "" {
			if metric, err = report.ParseMetric(v); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		var buf bytes.Buffer
		rep := src.Snapshot(details)
		if format == report.FormatFolded {
			err = report.WriteFolded(&buf, rep, metric)
		} else {
			err = report.Encode(&buf, rep, format)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType(format))
		_, _ = w.Write(buf.Bytes())
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatXML:
		return "application/xml"
	case report.FormatJSON:
		return "application/json"
	case report.FormatPprof:
		return "application/octet-stream"
	}
	return "text/plain; charset=utf-8"
}

// StartServer serves Handler(src) at addr. It returns a stop function that
// gracefully shuts the server down.
func StartServer(addr string, src Snapshotter, logger *logrus.Logger) (func(), error) {
	if addr == "" {
		addr = "localhost:6060"
	}
	log := logging.WithComponent(logger, "debug-server")

	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(src),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("debug server starting")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Give the server a moment to start and check for immediate errors
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("debug server failed: %w", err)
	case <-time.After(50 * time.Millisecond):
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("debug server shutdown")
		}
	}

	return stop, nil
}
