package profiling

import (
	"fmt"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/config"
	"github.com/swcolombo/waitlist-api/pkg/logger"
)

const defaultUploadInterval = 15 * time.Second

var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

var profileTypeMap = map[string][]pyroscope.ProfileType{
	"cpu":           {pyroscope.ProfileCPU},
	"alloc_space":   {pyroscope.ProfileAllocSpace},
	"alloc_objects": {pyroscope.ProfileAllocObjects},
	"inuse_space":   {pyroscope.ProfileInuseSpace},
	"goroutines":    {pyroscope.ProfileGoroutines},
	"mutex":         {pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration},
	"block":         {pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration},
}

// Start begins continuous profiling when enabled and returns a stop func.
// The stop func is never nil.
func Start(cfg *config.Config) (func(), error) {
	prof := cfg.Profiling
	if !prof.Enabled {
		logger.Info("Continuous profiling disabled")
		return func() {}, nil
	}

	endpoint := strings.TrimSpace(prof.Endpoint)
	if endpoint == "" {
		return func() {}, fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	profileTypes, err := parseProfileTypes(prof.SampleTypes)
	if err != nil {
		return func() {}, err
	}

	interval := time.Duration(prof.UploadIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultUploadInterval
	}

	appName := strings.TrimSpace(prof.AppName)
	if appName == "" {
		appName = cfg.Observability.ServiceName
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   endpoint,
		UploadRate:      interval,
		ProfileTypes:    profileTypes,
		Tags:            buildTags(cfg),
	})
	if err != nil {
		return func() {}, fmt.Errorf("failed to start profiler: %w", err)
	}

	logger.Info("Continuous profiling initialized",
		zap.String("application_name", appName),
		zap.Duration("upload_interval", interval),
	)

	return func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			logger.Error("Failed to stop profiler", zap.Error(stopErr))
		}
	}, nil
}

func parseProfileTypes(value string) ([]pyroscope.ProfileType, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultProfileTypes, nil
	}

	var types []pyroscope.ProfileType
	seen := make(map[pyroscope.ProfileType]bool)

	for _, raw := range strings.Split(value, ",") {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		mapped, ok := profileTypeMap[key]
		if !ok {
			return nil, fmt.Errorf("unsupported O11Y_PROFILING_SAMPLE_TYPES value: %q", key)
		}
		for _, t := range mapped {
			if !seen[t] {
				types = append(types, t)
				seen[t] = true
			}
		}
	}

	if len(types) == 0 {
		return defaultProfileTypes, nil
	}
	return types, nil
}

// buildTags labels every profile with the service identity; empty values are skipped
func buildTags(cfg *config.Config) map[string]string {
	tags := map[string]string{
		"service_name":    cfg.Observability.ServiceName,
		"namespace":       cfg.Observability.ServiceNamespace,
		"service_version": cfg.Observability.ServiceVersion,
		"instance":        cfg.Observability.ServiceInstanceID,
		"environment":     cfg.Server.AppEnv,
	}
	for k, v := range tags {
		if v == "" {
			delete(tags, k)
		}
	}
	return tags
}
