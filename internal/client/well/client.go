// Package well is a client for the access control platform's open API. All
// write endpoints accept JSON arrays and answer with a {code,msg,data}
// envelope; codes 0 and 600 both mean success.
package well

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	personURL       = "/api-gating/api-gating/open-gating-user/batch/insert-or-update"
	personDeleteURL = "/api-gating/api-gating/open-gating-user/batch/delete"
	faceURL         = "/api-gating/api-gating/open-gating-face/batch/insert"
	grantURL        = "/api-gating/api-gating/open-gating-grant/batch/insert-or-update"
	singleGrantURL  = "/api-gating/api-gating/open-gating-single-grant/batch/insert-or-update"
	timeRuleURL     = "/api-gating/api-gating/open-gating-time-rule/batch/insert-or-update"
	timeRuleListURL = "/api-gating/api-gating/open-gating-time-rule/list"
	doorListURL     = "/api-gating/api-gating/open-gating-door/doorList"
	gateRecordURL   = "/api-gating/api-gating/open-dev-record/list"
)

// Batch limits keep request bodies small enough for the platform's gateway.
// Face payloads carry base64 photos, hence the much smaller batch.
const (
	personBatchSize = 50
	faceBatchSize   = 10
	grantBatchSize  = 50

	batchPause = 100 * time.Millisecond
)

type Client struct {
	host       string
	httpClient *http.Client
	appKey     string
	sign       string
	version    string
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, appKey, sign, version string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
		appKey:     appKey,
		sign:       sign,
		version:    version,
	}
}

type envelope struct {
	Code *int            `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (e *envelope) ok() bool {
	return e.Code != nil && (*e.Code == 0 || *e.Code == 600)
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("appKey", c.appKey)
	req.Header.Set("sign", c.sign)
	req.Header.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// call posts a payload and checks the envelope code.
func (c *Client) call(ctx context.Context, path string, payload any) error {
	raw, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.ok() {
		code := -1
		if env.Code != nil {
			code = *env.Code
		}
		return fmt.Errorf("well api %s: code %d msg %q", path, code, env.Msg)
	}
	return nil
}

// callBatched splits items into fixed size chunks and sends them one after
// another, pausing between chunks. Failed chunks are collected instead of
// aborting the rest.
func callBatched[T any](ctx context.Context, c *Client, path string, items []T, batchSize int) error {
	var result *multierror.Error
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := c.call(ctx, path, items[i:end]); err != nil {
			result = multierror.Append(result, fmt.Errorf("batch %d: %w", i/batchSize+1, err))
		}
		if end < len(items) {
			select {
			case <-ctx.Done():
				return multierror.Append(result, ctx.Err()).ErrorOrNil()
			case <-time.After(batchPause):
			}
		}
	}
	return result.ErrorOrNil()
}

// BatchUpsertPersons creates or updates persons keyed by their source number.
func (c *Client) BatchUpsertPersons(ctx context.Context, persons []PersonUpsert) error {
	if len(persons) == 0 {
		return nil
	}
	return callBatched(ctx, c, personURL, persons, personBatchSize)
}

// BatchDeletePersons removes persons by source number.
func (c *Client) BatchDeletePersons(ctx context.Context, sourceNos []string) error {
	if len(sourceNos) == 0 {
		return nil
	}
	return c.call(ctx, personDeleteURL, sourceNos)
}

// BatchInsertFaces uploads face photos for already registered persons.
func (c *Client) BatchInsertFaces(ctx context.Context, faces []FaceUpsert) error {
	if len(faces) == 0 {
		return nil
	}
	return callBatched(ctx, c, faceURL, faces, faceBatchSize)
}

// BatchUpsertGrants writes rule based door authorizations.
func (c *Client) BatchUpsertGrants(ctx context.Context, grants []Grant) error {
	if len(grants) == 0 {
		return nil
	}
	return callBatched(ctx, c, grantURL, grants, grantBatchSize)
}

// BatchUpsertSingleGrants writes standalone window authorizations used for
// temporary personnel.
func (c *Client) BatchUpsertSingleGrants(ctx context.Context, grants []SingleGrant) error {
	if len(grants) == 0 {
		return nil
	}
	return callBatched(ctx, c, singleGrantURL, grants, grantBatchSize)
}

// BatchUpsertTimeRules creates or updates passage time rules.
func (c *Client) BatchUpsertTimeRules(ctx context.Context, rules []TimeRuleUpsert) error {
	if len(rules) == 0 {
		return nil
	}
	return c.call(ctx, timeRuleURL, rules)
}

// ListTimeRules returns all passage time rules known to the platform.
func (c *Client) ListTimeRules(ctx context.Context) ([]TimeRuleInfo, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, timeRuleListURL, nil)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.ok() {
		return nil, fmt.Errorf("well api %s: code %v msg %q", timeRuleListURL, env.Code, env.Msg)
	}
	var rules []TimeRuleInfo
	if err := json.Unmarshal(env.Data, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode time rules: %w", err)
	}
	return rules, nil
}

// ListDoors returns every door the platform manages.
func (c *Client) ListDoors(ctx context.Context) ([]DoorInfo, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, doorListURL, nil)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.ok() {
		return nil, fmt.Errorf("well api %s: code %v msg %q", doorListURL, env.Code, env.Msg)
	}
	var doors []DoorInfo
	if err := json.Unmarshal(env.Data, &doors); err != nil {
		return nil, fmt.Errorf("failed to decode doors: %w", err)
	}
	return doors, nil
}

type gateRecordQuery struct {
	PageIndex      int   `json:"pageIndex"`
	PageSize       int   `json:"pageSize"`
	BeginTimestamp int64 `json:"beginTimestamp"`
	EndTimestamp   int64 `json:"endTimestamp"`
}

// ListGateRecords queries pass events in a millisecond epoch window.
func (c *Client) ListGateRecords(ctx context.Context, pageIndex, pageSize int, beginMs, endMs int64) ([]GateRecord, error) {
	raw, err := c.doRequest(ctx, http.MethodPost, gateRecordURL, gateRecordQuery{
		PageIndex:      pageIndex,
		PageSize:       pageSize,
		BeginTimestamp: beginMs,
		EndTimestamp:   endMs,
	})
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.ok() {
		return nil, fmt.Errorf("well api %s: code %v msg %q", gateRecordURL, env.Code, env.Msg)
	}
	var records []GateRecord
	if err := json.Unmarshal(env.Data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode gate records: %w", err)
	}
	return records, nil
}

// FindDoorIDsByGateName returns the IDs of doors whose place name contains
// the given gate name.
func FindDoorIDsByGateName(gateName string, doors []DoorInfo) []int {
	gateName = strings.TrimSpace(gateName)
	if gateName == "" {
		return nil
	}
	var ids []int
	for _, door := range doors {
		if strings.Contains(door.PlaceName, gateName) {
			ids = append(ids, door.DoorID)
		}
	}
	return ids
}
