package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/pkg/config"
)

const breakerName = "ndvi-backend"

// newBreaker opens after FailureThreshold consecutive connectivity failures.
// Slow responses and HTTP error statuses never trip it: the backend answered.
func newBreaker(cfg config.BreakerConfig, logger *zap.Logger, observer Observer) *gobreaker.CircuitBreaker[*http.Response] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if observer != nil {
		observer.SetBreakerState(breakerName, gobreaker.StateClosed)
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isConnectivityFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if observer != nil {
				observer.SetBreakerState(name, to)
			}
		},
	})
}

// isConnectivityFailure reports transport errors that mean the backend could
// not be reached at all. Caller cancellation and read timeouts on an
// established connection do not count.
func isConnectivityFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if isTimeout(err) {
		return false
	}
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
