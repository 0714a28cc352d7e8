package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

const (
	moduleName  = "remote"
	apiVersion  = "v3.0"
	contentType = "application/json"
)

// endpoints maps a section to its path segment where the two differ.
var endpoints = map[string]string{
	"researcher-url":      "researcher-urls",
	"keyword":             "keywords",
	"other-name":          "other-names",
	"external-identifier": "external-identifiers",
}

func endpoint(section string) string {
	if e, ok := endpoints[section]; ok {
		return e
	}
	return section
}

// HTTPRegistry talks JSON to the registry's member API.
type HTTPRegistry struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRegistry creates a registry client from the remote section of cfg.
func NewHTTPRegistry(cfg *config.Config) Registry {
	rc := cfg.RecordHub.Remote
	timeout := time.Duration(rc.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRegistry{
		baseURL: strings.TrimRight(rc.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRegistry) url(orcid string, segments ...string) string {
	parts := append([]string{apiVersion, url.PathEscape(orcid)}, segments...)
	return r.baseURL + "/" + path.Join(parts...)
}

func (r *HTTPRegistry) do(ctx context.Context, method, target, token string, body interface{}) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to encode payload", err, false)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to build request", err, false)
	}
	req.Header.Set("Accept", contentType)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	logger.Debugf("Remote %s %s", method, target)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("%s %s failed", method, target), err, true)
	}
	return resp, nil
}

// statusError turns a non-success response into a BatchError; 5xx and 429 are retryable.
func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	return exception.NewBatchError(moduleName,
		fmt.Sprintf("%s %s rejected", resp.Request.Method, resp.Request.URL.Path), cause, retryable)
}

func (r *HTTPRegistry) GetRemoteRecord(ctx context.Context, id Identity) (*tree.Node, error) {
	if id.ORCID == "" || id.AccessToken == "" {
		return nil, nil
	}
	resp, err := r.do(ctx, http.MethodGet, r.url(id.ORCID, "record"), id.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		logger.Infof("No access to the remote record of %s (status %d).", id.ORCID, resp.StatusCode)
		return nil, nil
	default:
		return nil, statusError(resp)
	}
	var doc interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to decode record of "+id.ORCID, err, true)
	}
	return tree.From(doc), nil
}

// CreateOrUpdateEntry posts a new entry, or puts over the entry named by e.PutCode.
// A created entry's put-code is the last segment of the Location header.
func (r *HTTPRegistry) CreateOrUpdateEntry(ctx context.Context, id Identity, e Entry) (WriteResult, error) {
	if id.ORCID == "" {
		return WriteResult{}, exception.NewBatchErrorf(moduleName, "cannot write %s entry without an ORCID iD", e.Section)
	}
	method, target := http.MethodPost, r.url(id.ORCID, endpoint(e.Section))
	body := tree.Map{}
	for k, v := range e.Payload {
		body[k] = v
	}
	if e.PutCode != "" {
		method, target = http.MethodPut, r.url(id.ORCID, endpoint(e.Section), e.PutCode)
		body["put-code"] = e.PutCode
	}
	resp, err := r.do(ctx, method, target, id.AccessToken, body)
	if err != nil {
		return WriteResult{}, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated:
		loc := resp.Header.Get("Location")
		pc := path.Base(strings.TrimRight(loc, "/"))
		if loc == "" || pc == "" || pc == "." {
			return WriteResult{}, exception.NewBatchErrorf(moduleName, "created %s entry without a Location header", e.Section)
		}
		return WriteResult{PutCode: pc, ORCID: id.ORCID, Created: true}, nil
	case http.StatusOK, http.StatusNoContent:
		return WriteResult{PutCode: e.PutCode, ORCID: id.ORCID}, nil
	}
	return WriteResult{}, statusError(resp)
}

// DeleteEntry removes an entry. An entry that no longer exists counts as deleted.
func (r *HTTPRegistry) DeleteEntry(ctx context.Context, id Identity, section, putCode string) error {
	if id.ORCID == "" || putCode == "" {
		return exception.NewBatchErrorf(moduleName, "cannot delete %s entry without an ORCID iD and put-code", section)
	}
	resp, err := r.do(ctx, http.MethodDelete, r.url(id.ORCID, endpoint(section), putCode), id.AccessToken, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError(resp)
}

var _ Registry = (*HTTPRegistry)(nil)
