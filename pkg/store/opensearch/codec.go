package opensearch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

const documentMissingType = "document_missing_exception"

// parseNodes merges URL and URLs into a deduplicated list of node base URLs.
func parseNodes(cfg Config) ([]url.URL, error) {
	var raw []string
	for _, u := range append([]string{cfg.URL}, cfg.URLs...) {
		if u = strings.TrimSpace(u); u != "" {
			raw = append(raw, u)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("search URL is required (set url or urls)")
	}

	nodes := make([]url.URL, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		u, err := url.Parse(item)
		if err != nil {
			return nil, fmt.Errorf("parse search URL %q: %w", item, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid search URL %q", item)
		}
		if seen[u.String()] {
			continue
		}
		seen[u.String()] = true
		nodes = append(nodes, *u)
	}
	return nodes, nil
}

// nodeAddresses is parseNodes in the string form the SDK clients take.
func nodeAddresses(cfg Config) ([]string, error) {
	nodes, err := parseNodes(cfg)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, len(nodes))
	for i, u := range nodes {
		addresses[i] = u.String()
	}
	return addresses, nil
}

func requireTarget(index, id string) error {
	switch {
	case strings.TrimSpace(index) == "":
		return fmt.Errorf("index is required")
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("document id is required")
	}
	return nil
}

func docPath(index, id string) string {
	return "/" + url.PathEscape(index) + "/_doc/" + url.PathEscape(id)
}

func updatePath(index, id, refresh string) string {
	return withRefresh("/"+url.PathEscape(index)+"/_update/"+url.PathEscape(id), refresh)
}

// withRefresh appends the refresh parameter unless it is empty or "false".
func withRefresh(path, refresh string) string {
	switch refresh = strings.TrimSpace(refresh); refresh {
	case "", "false":
		return path
	default:
		return path + "?refresh=" + url.QueryEscape(refresh)
	}
}

type updateRequest struct {
	Script struct {
		Source string                 `json:"source"`
		Lang   string                 `json:"lang"`
		Params map[string]interface{} `json:"params,omitempty"`
	} `json:"script"`
}

func scriptUpdateBody(script document.Script) ([]byte, error) {
	if strings.TrimSpace(script.Source) == "" {
		return nil, fmt.Errorf("script source is required")
	}
	var req updateRequest
	req.Script.Source = script.Source
	req.Script.Lang = script.Lang
	if req.Script.Lang == "" {
		req.Script.Lang = document.ScriptLangPainless
	}
	req.Script.Params = script.Params

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal script: %w", err)
	}
	return payload, nil
}

func decodeUpdateResponse(status int, body []byte) (document.UpdateResult, error) {
	if status == http.StatusNotFound {
		return document.UpdateResult{}, notFoundError("update", body)
	}
	if !success(status) {
		return document.UpdateResult{}, statusError("update", status, body)
	}

	var resp struct {
		Result  string `json:"result"`
		Version int64  `json:"_version"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return document.UpdateResult{}, fmt.Errorf("decode update response: %w", err)
	}
	switch result := document.Result(strings.ToLower(strings.TrimSpace(resp.Result))); result {
	case document.ResultCreated, document.ResultUpdated, document.ResultDeleted, document.ResultNoop:
		return document.UpdateResult{Result: result, Version: resp.Version}, nil
	default:
		return document.UpdateResult{}, fmt.Errorf("unexpected update result %q", resp.Result)
	}
}

func decodeSourceResponse(status int, body []byte) (json.RawMessage, error) {
	if status == http.StatusNotFound {
		return nil, notFoundError("get", body)
	}
	if !success(status) {
		return nil, statusError("get", status, body)
	}

	var resp struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !resp.Found {
		return nil, document.ErrDocumentMissing
	}
	return resp.Source, nil
}

// notFoundError tells a missing document apart from a missing index. Only the
// former is document.ErrDocumentMissing.
func notFoundError(op string, body []byte) error {
	var resp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &resp) != nil || resp.Error.Type == "" || resp.Error.Type == documentMissingType {
		return document.ErrDocumentMissing
	}
	return fmt.Errorf("%s failed: %s: %s", op, resp.Error.Type, resp.Error.Reason)
}

func statusError(op string, status int, body []byte) error {
	return fmt.Errorf("%s failed with status %d: %s", op, status, strings.TrimSpace(string(body)))
}
