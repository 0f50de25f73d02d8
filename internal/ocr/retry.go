package ocr

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"
)

// shouldRetry determines if a status code is retryable
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusBadGateway: // 502
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	default:
		return false
	}
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	// Exponential backoff: initial * 2^attempt
	backoff := float64(initial) * math.Pow(2, float64(attempt))

	if backoff > float64(max) {
		backoff = float64(max)
	}

	return time.Duration(backoff)
}

// retryWithBackoff wraps an HTTP request with bounded retry logic.
// MaxRetries is the number of additional attempts after the first one;
// zero means each call is attempted exactly once. Only transport
// failures and retryable status codes are retried.
func (c *Client) retryWithBackoff(ctx context.Context, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()

		if err == nil {
			// Any response on the last attempt goes back to the
			// caller, which classifies the status code itself.
			if !shouldRetry(resp.StatusCode) || attempt == c.cfg.MaxRetries {
				return resp, nil
			}
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if resp.Body != nil {
				resp.Body.Close()
			}
		} else {
			lastErr = err
			if attempt == c.cfg.MaxRetries {
				break
			}
		}

		backoff := calculateBackoff(attempt, c.cfg.InitialBackoff, c.cfg.MaxBackoff)
		c.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", c.cfg.MaxRetries).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("inference request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}
