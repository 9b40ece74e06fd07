package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// resend tells a driver whether a request may be repeated against another node.
type resend int

const (
	// resendSafe requests are idempotent and may be sent again after any transport failure.
	resendSafe resend = iota
	// resendUnsent requests move on only when no node ever received them.
	resendUnsent
)

// exchanger performs one request against the cluster and returns the status and full body.
type exchanger interface {
	exchange(ctx context.Context, policy resend, method, path string, body []byte) (int, []byte, error)
}

// documents implements the document operations shared by every driver.
type documents struct {
	driver  string
	ex      exchanger
	refresh string
	logger  logger.Logger
}

// Ping verifies the cluster answers its root endpoint.
func (d *documents) Ping(ctx context.Context) error {
	status, body, err := d.ex.exchange(ctx, resendSafe, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return statusError(d.driver+" ping", status, body)
	}
	return nil
}

// HealthCheck reports an error when the cluster is unreachable or red.
func (d *documents) HealthCheck(ctx context.Context) error {
	status, body, err := d.ex.exchange(ctx, resendSafe, http.MethodGet, "/_cluster/health?local=true", nil)
	if err == nil && status >= http.StatusBadRequest {
		err = statusError(d.driver+" health check", status, body)
	}
	if err == nil && clusterStatus(body) == "red" {
		err = fmt.Errorf("%s health check: cluster status is red", d.driver)
	}
	if err != nil {
		d.logger.Error("search health check failed", "driver", d.driver, "error", err)
		return err
	}
	return nil
}

// IndexDocument stores doc under index/id, replacing any previous version.
func (d *documents) IndexDocument(ctx context.Context, index, id string, doc interface{}) error {
	if err := requireTarget(index, id); err != nil {
		return err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	status, body, err := d.ex.exchange(ctx, resendSafe, http.MethodPut, withRefresh(docPath(index, id), d.refresh), payload)
	if err != nil {
		return err
	}
	if !success(status) {
		return statusError(d.driver+" index", status, body)
	}
	return nil
}

// DeleteDocument removes index/id. Deleting a missing document succeeds.
func (d *documents) DeleteDocument(ctx context.Context, index, id string) error {
	if err := requireTarget(index, id); err != nil {
		return err
	}

	status, body, err := d.ex.exchange(ctx, resendSafe, http.MethodDelete, withRefresh(docPath(index, id), d.refresh), nil)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound && !success(status) {
		return statusError(d.driver+" delete", status, body)
	}
	return nil
}

// UpdateByScript runs script against the _source of index/id.
// A missing document is reported as document.ErrDocumentMissing.
func (d *documents) UpdateByScript(ctx context.Context, index, id string, script document.Script) (document.UpdateResult, error) {
	if err := requireTarget(index, id); err != nil {
		return document.UpdateResult{}, err
	}
	payload, err := scriptUpdateBody(script)
	if err != nil {
		return document.UpdateResult{}, err
	}

	status, body, err := d.ex.exchange(ctx, resendUnsent, http.MethodPost, updatePath(index, id, d.refresh), payload)
	if err != nil {
		return document.UpdateResult{}, err
	}
	return decodeUpdateResponse(status, body)
}

// GetSource returns the _source of index/id.
func (d *documents) GetSource(ctx context.Context, index, id string) (json.RawMessage, error) {
	if err := requireTarget(index, id); err != nil {
		return nil, err
	}

	status, body, err := d.ex.exchange(ctx, resendSafe, http.MethodGet, docPath(index, id), nil)
	if err != nil {
		return nil, err
	}
	return decodeSourceResponse(status, body)
}

// Search posts query to index/_search and returns the raw response.
func (d *documents) Search(ctx context.Context, index string, query interface{}) (json.RawMessage, error) {
	if strings.TrimSpace(index) == "" {
		return nil, fmt.Errorf("index is required")
	}
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	status, body, err := d.ex.exchange(ctx, resendSafe, http.MethodPost, "/"+url.PathEscape(index)+"/_search", payload)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, statusError(d.driver+" search", status, body)
	}
	return json.RawMessage(body), nil
}

func success(status int) bool { return status >= 200 && status < 300 }

func clusterStatus(body []byte) string {
	var health struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(body, &health) != nil {
		return ""
	}
	return health.Status
}

// performRequest sends a path-only request through an SDK client and reads the full reply.
func performRequest(ctx context.Context, perform func(*http.Request) (*http.Response, error), method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := perform(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
