package client

import (
	"net/http"
	"time"

	"github.com/agora-social/agora/cli/pkg/config"
	"github.com/agora-social/agora/cli/pkg/logger"
	"github.com/go-resty/resty/v2"
)

// IdempotencyKeyHeader marks a mutation as safe to resend
const IdempotencyKeyHeader = "Idempotency-Key"

const userAgent = "Agora-CLI/0.1.0"

var httpClient *resty.Client

// Init builds the HTTP client from the api.* config keys
func Init() {
	httpClient = resty.New()

	httpClient.SetBaseURL(config.GetString("api.base_url"))
	httpClient.SetTimeout(time.Duration(config.GetInt("api.timeout")) * time.Second)
	httpClient.SetHeader("User-Agent", userAgent)

	httpClient.SetRetryCount(config.GetInt("api.retries"))
	httpClient.SetRetryWaitTime(200 * time.Millisecond)
	httpClient.SetRetryMaxWaitTime(2 * time.Second)
	httpClient.AddRetryCondition(shouldRetry)

	httpClient.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})

	httpClient.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response",
			"status", resp.StatusCode(),
			"attempt", resp.Request.Attempt,
			"replayed", resp.Header().Get("Idempotent-Replayed") == "true",
		)
		return nil
	})
}

// shouldRetry resends reads, and writes that carry an idempotency key,
// after a network error, a conflict or an unavailable server. Other
// writes are never resent since the server may already have applied them.
func shouldRetry(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil {
		return false
	}
	req := resp.Request
	if req.Method != http.MethodGet && req.Header.Get(IdempotencyKeyHeader) == "" {
		return false
	}
	if err != nil {
		return true
	}
	switch resp.StatusCode() {
	case http.StatusConflict, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// GetClient returns the HTTP client
func GetClient() *resty.Client {
	if httpClient == nil {
		Init()
	}
	return httpClient
}

// SetAuthToken sets the bearer token sent with every request
func SetAuthToken(token string) {
	GetClient().SetAuthToken(token)
}

// ClearAuthToken rebuilds the client without credentials
func ClearAuthToken() {
	Init()
}
