package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// HTTPConfig configures REST probes
type HTTPConfig struct {
	// Timeout bounds a single request attempt (default: 30 seconds)
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// RetryWaitMax caps the backoff between attempts
	RetryWaitMax time.Duration
}

// DefaultHTTPConfig returns the defaults used when no configuration is given
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryWaitMax: 10 * time.Second,
	}
}

// zerologAdapter routes retryablehttp logging to zerolog
type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (a zerologAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (a zerologAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (a zerologAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn().Fields(keysAndValues).Msg(msg)
}

var _ retryablehttp.LeveledLogger = zerologAdapter{}

// RESTClient performs authenticated JSON GETs against cluster REST APIs
type RESTClient struct {
	client *retryablehttp.Client
}

// NewRESTClient creates a REST client with retries
func NewRESTClient(config HTTPConfig) *RESTClient {
	if config.Timeout == 0 {
		config.Timeout = DefaultHTTPConfig().Timeout
	}

	client := retryablehttp.NewClient()
	client.Logger = zerologAdapter{logger: log.WithComponent("probe")}
	client.HTTPClient = &http.Client{Timeout: config.Timeout}
	client.RetryMax = config.MaxRetries
	if config.RetryWaitMax > 0 {
		client.RetryWaitMax = config.RetryWaitMax
		if client.RetryWaitMin > config.RetryWaitMax {
			client.RetryWaitMin = config.RetryWaitMax
		}
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &RESTClient{client: client}
}

// GetJSON fetches url with the cluster's HTTP credentials and decodes the
// JSON body into out
func (c *RESTClient) GetJSON(ctx context.Context, cluster *types.Cluster, url string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cluster.HTTP.Username != "" {
		req.SetBasicAuth(cluster.HTTP.Username, cluster.HTTP.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned HTTP %d %s", ErrUnexpectedResponse, url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", ErrUnexpectedResponse, url, err)
	}
	return nil
}
