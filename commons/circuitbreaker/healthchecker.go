package circuitbreaker

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/LerianStudio/lib-breaker/commons/log"
)

// HealthCheckFunc probes a downstream service directly, bypassing the
// breaker. A nil error means the service recovered.
type HealthCheckFunc func(ctx context.Context) error

// HealthChecker periodically probes services whose circuit is open and
// force-closes the breaker when the probe succeeds, instead of waiting for
// live traffic to exercise the half-open state.
type HealthChecker struct {
	manager      *Manager
	services     map[string]HealthCheckFunc
	interval     time.Duration
	probeTimeout time.Duration
	logger       log.Logger
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	mu           sync.RWMutex
}

// NewHealthChecker creates a health checker over the given registry.
func NewHealthChecker(manager *Manager, interval time.Duration, logger log.Logger) *HealthChecker {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	return &HealthChecker{
		manager:      manager,
		services:     make(map[string]HealthCheckFunc),
		interval:     interval,
		probeTimeout: 5 * time.Second,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Register adds a service to health check.
func (hc *HealthChecker) Register(serviceName string, healthCheckFn HealthCheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.services[serviceName] = healthCheckFn
	hc.logger.Infof("Registered health check for service: %s", serviceName)
}

// Start begins the health check loop.
func (hc *HealthChecker) Start() {
	hc.wg.Add(1)

	go hc.healthCheckLoop()

	hc.logger.Infof("Health checker started - checking services every %v", hc.interval)
}

// Stop gracefully stops the health checker. Idempotent.
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() {
		close(hc.stopChan)
	})

	hc.wg.Wait()
	hc.logger.Info("Health checker stopped")
}

func (hc *HealthChecker) healthCheckLoop() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hc.performHealthChecks()
		case <-hc.stopChan:
			return
		}
	}
}

func (hc *HealthChecker) performHealthChecks() {
	hc.mu.RLock()
	// Snapshot so the lock is not held while probing.
	services := make(map[string]HealthCheckFunc, len(hc.services))
	maps.Copy(services, hc.services)
	hc.mu.RUnlock()

	for serviceName, healthCheckFn := range services {
		if hc.manager.IsHealthy(serviceName) {
			continue
		}

		hc.logger.Infof("Attempting to heal service: %s (circuit breaker is open)", serviceName)

		ctx, cancel := context.WithTimeout(context.Background(), hc.probeTimeout)
		err := healthCheckFn(ctx)

		cancel()

		if err == nil {
			hc.logger.Infof("Service %s recovered - resetting circuit breaker", serviceName)
			hc.manager.Reset(serviceName)
		} else {
			hc.logger.Warnf("Service %s still unhealthy: %v - will retry in %v", serviceName, err, hc.interval)
		}
	}
}

// Status returns the current circuit state of every registered service.
func (hc *HealthChecker) Status() map[string]string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := make(map[string]string, len(hc.services))

	for serviceName := range hc.services {
		state, _ := hc.manager.State(serviceName)
		status[serviceName] = state.String()
	}

	return status
}
