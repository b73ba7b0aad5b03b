// Package telemetry starts and stops continuous profiling submission for
// the running nfs3d process.
package telemetry

import (
	"fmt"

	"github.com/grafana/pyroscope-go"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/config"
)

// StartProfiling begins submitting CPU and in-use heap profiles to the
// Pyroscope server named by cfg, tagged with version. When profiling is
// disabled it starts nothing and returns a shutdown func that does nothing.
func StartProfiling(cfg config.ProfilingConfig, version string) (shutdown func() error, err error) {
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddr,
		Tags:            map[string]string{"version": version},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: start profiler: %w", err)
	}

	return profiler.Stop, nil
}
