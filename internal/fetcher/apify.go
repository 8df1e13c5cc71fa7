package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const apifyService = "apify"

const (
	runSucceeded = "SUCCEEDED"
	runRunning   = "RUNNING"
)

// Budget caps calls to a paid automation service.
type Budget interface {
	Spend(ctx context.Context) error
}

// ApifyFetcher is the apify-actor strategy: an actor scheduled elsewhere
// scrapes the page and the newest finished run's dataset holds the body.
type ApifyFetcher struct {
	client  *resty.Client
	actorID string
	budget  Budget
	retry   retry.RetryConfig
	logger  *observability.Logger
}

type apifyRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type apifyRunsResponse struct {
	Data struct {
		Items []apifyRun `json:"items"`
	} `json:"data"`
}

type apifyDatasetItem struct {
	Content string `json:"content"`
}

func NewApifyFetcher(cfg *config.Config, budget Budget, logger *observability.Logger) *ApifyFetcher {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.Apify.BaseURL, "/"))
	client.SetAuthToken(cfg.Apify.Token)
	client.SetTimeout(cfg.GetApifyTimeout())
	client.SetHeader("Accept", "application/json")

	return &ApifyFetcher{
		client:  client,
		actorID: cfg.Apify.ActorID,
		budget:  budget,
		retry: retry.RetryConfig{
			MaxAttempts: cfg.Apify.Attempts,
			Delay:       cfg.GetApifyRetryDelay(),
		},
		logger: logger,
	}
}

func (f *ApifyFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	if f.budget != nil {
		if err := f.budget.Spend(ctx); err != nil {
			return nil, &ExternalServiceError{Service: apifyService, Op: "budget", Err: err}
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var content string
	err := retry.WithRetry(ctx, f.retry, func() error {
		run, err := f.usableRun(ctx)
		if err != nil {
			f.logger.Debug("no usable actor run yet", "actor", f.actorID, "error", err)
			return err
		}
		content, err = f.datasetContent(ctx, run.DefaultDatasetID)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify(req.URL, ctx.Err())
		}
		return nil, err
	}

	return &Response{
		StatusCode: http.StatusOK,
		Body:       []byte(content),
		URL:        req.URL,
	}, nil
}

// usableRun returns the latest succeeded run. When the latest run is still
// going, the one before it is used if it succeeded.
func (f *ApifyFetcher) usableRun(ctx context.Context) (*apifyRun, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("actorId", f.actorID).
		SetQueryParams(map[string]string{"limit": "2", "desc": "1"}).
		Get("/acts/{actorId}/runs")
	if err != nil {
		return nil, &ExternalServiceError{Service: apifyService, Op: "list runs", Err: err}
	}
	if resp.IsError() {
		return nil, &ExternalServiceError{Service: apifyService, Op: "list runs", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	var runs apifyRunsResponse
	if err := json.Unmarshal(resp.Body(), &runs); err != nil {
		return nil, &ExternalServiceError{Service: apifyService, Op: "list runs", Err: fmt.Errorf("decode: %w", err)}
	}

	items := runs.Data.Items
	if len(items) == 0 {
		return nil, &ExternalServiceError{Service: apifyService, Op: "list runs", Err: fmt.Errorf("actor has no runs")}
	}

	run := items[0]
	if run.Status == runRunning && len(items) > 1 && items[1].Status == runSucceeded {
		run = items[1]
	}
	if run.Status != runSucceeded {
		return nil, &ExternalServiceError{Service: apifyService, Op: "list runs", Err: fmt.Errorf("run %s is %s", run.ID, run.Status)}
	}
	if run.DefaultDatasetID == "" {
		return nil, &ExternalServiceError{Service: apifyService, Op: "list runs", Err: fmt.Errorf("run %s has no dataset", run.ID)}
	}
	return &run, nil
}

func (f *ApifyFetcher) datasetContent(ctx context.Context, datasetID string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("datasetId", datasetID).
		SetQueryParam("clean", "true").
		Get("/datasets/{datasetId}/items")
	if err != nil {
		return "", &ExternalServiceError{Service: apifyService, Op: "read dataset", Err: err}
	}
	if resp.IsError() {
		return "", &ExternalServiceError{Service: apifyService, Op: "read dataset", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	var items []apifyDatasetItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return "", &ExternalServiceError{Service: apifyService, Op: "read dataset", Err: fmt.Errorf("decode: %w", err)}
	}
	for _, item := range items {
		if strings.TrimSpace(item.Content) != "" {
			return item.Content, nil
		}
	}
	return "", &ExternalServiceError{Service: apifyService, Op: "read dataset", Err: fmt.Errorf("dataset %s is empty", datasetID)}
}
