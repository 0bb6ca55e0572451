package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/chess-wager/internal/config"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

// Sampling rates applied while continuous profiling runs. Zero disables the
// runtime's mutex and block profiles again on shutdown.
const (
	mutexProfileFraction = 5
	blockProfileRate     = 5
)

// Telemetry owns the tracing exporter, the continuous profiler and the
// private pprof listener. Each part is optional.
type Telemetry struct {
	logger   *logging.Logger
	tracing  bool
	profiler *pyroscope.Profiler
	pprof    *http.Server
	pprofAt  string
}

// Start brings up every enabled telemetry sink. A failure leaves nothing
// running.
func Start(cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{logger: logger}

	if cfg.UptraceEnabled && cfg.UptraceDSN != "" {
		uptrace.ConfigureOpentelemetry(
			uptrace.WithDSN(cfg.UptraceDSN),
			uptrace.WithServiceName(cfg.ServiceName),
			uptrace.WithServiceVersion(cfg.ServiceVersion),
			uptrace.WithDeploymentEnvironment(cfg.AppEnv),
			uptrace.WithResourceAttributes(attribute.String("store.driver", cfg.StoreDriver)),
		)
		t.tracing = true
		logger.Info("uptrace enabled", "service_name", cfg.ServiceName, "environment", cfg.AppEnv)
	}

	if cfg.PyroscopeEnabled {
		profiler, err := startProfiler(cfg)
		if err != nil {
			_ = t.Shutdown(context.Background())
			return nil, err
		}
		t.profiler = profiler
		logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", cfg.PyroscopeAppName)
	}

	if cfg.PprofEnabled {
		ln, err := net.Listen("tcp", cfg.PprofAddr)
		if err != nil {
			_ = t.Shutdown(context.Background())
			return nil, err
		}
		t.pprof = &http.Server{Handler: pprofMux(), ReadHeaderTimeout: 5 * time.Second}
		t.pprofAt = ln.Addr().String()
		go func(srv *http.Server) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("pprof server failed", "error", err)
			}
		}(t.pprof)
		logger.Info("pprof server listening", "addr", t.pprofAt)
	}

	return t, nil
}

func startProfiler(cfg config.Config) (*pyroscope.Profiler, error) {
	runtime.SetMutexProfileFraction(mutexProfileFraction)
	runtime.SetBlockProfileRate(blockProfileRate)

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.PyroscopeAppName,
		ServerAddress:   cfg.PyroscopeServerAddress,
		AuthToken:       cfg.PyroscopeAuthToken,
		UploadRate:      cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":     cfg.AppEnv,
			"version": cfg.ServiceVersion,
			"store":   cfg.StoreDriver,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		runtime.SetMutexProfileFraction(0)
		runtime.SetBlockProfileRate(0)
		return nil, err
	}
	return profiler, nil
}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// PprofAddr reports the bound pprof address, or "" when pprof is off.
func (t *Telemetry) PprofAddr() string {
	if t == nil || t.pprof == nil {
		return ""
	}
	return t.pprofAt
}

// Shutdown stops the pprof listener, flushes spans and stops the profiler,
// joining every error.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.pprof != nil {
		errs = append(errs, t.pprof.Shutdown(ctx))
		t.pprof = nil
	}
	if t.tracing {
		errs = append(errs, uptrace.Shutdown(ctx))
		t.tracing = false
	}
	if t.profiler != nil {
		errs = append(errs, t.profiler.Stop())
		runtime.SetMutexProfileFraction(0)
		runtime.SetBlockProfileRate(0)
		t.profiler = nil
	}
	return errors.Join(errs...)
}
