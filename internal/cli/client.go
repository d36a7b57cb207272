package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не зависит от internal/api) ---

// RunResponse — run из API.
type RunResponse struct {
	ID          string            `json:"id"`
	FlowName    string            `json:"flow_name"`
	FlowPath    string            `json:"flow_path,omitempty"`
	Status      string            `json:"status"`
	Trigger     string            `json:"trigger"`
	Vars        map[string]string `json:"vars,omitempty"`
	StartedAt   string            `json:"started_at"`
	FinishedAt  string            `json:"finished_at,omitempty"`
	DurationSec float64           `json:"duration_sec"`
	LogPath     string            `json:"log_path,omitempty"`
	Error       string            `json:"error,omitempty"`
	Steps       []StepResponse    `json:"steps,omitempty"`
}

// StepResponse — шаг run из API.
type StepResponse struct {
	Index       int     `json:"index"`
	StepID      string  `json:"step_id"`
	Type        string  `json:"type"`
	Name        string  `json:"name,omitempty"`
	Status      string  `json:"status"`
	Output      any     `json:"output,omitempty"`
	Error       string  `json:"error,omitempty"`
	ExitCode    int     `json:"exit_code"`
	DurationSec float64 `json:"duration_sec"`
}

// TriggerResponse — триггер из API.
type TriggerResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	FlowPath     string `json:"flow_path"`
	ScheduleType string `json:"schedule_type,omitempty"`
	IntervalSec  int    `json:"interval_sec,omitempty"`
	DailyTime    string `json:"daily_time,omitempty"`
	CronExpr     string `json:"cron_expr,omitempty"`
	WatchFolder  string `json:"watch_folder,omitempty"`
	FilePattern  string `json:"file_pattern,omitempty"`
	Enabled      bool   `json:"enabled"`
	LastFiredAt  string `json:"last_fired_at,omitempty"`
}

// --- Request types ---

// CreateRunRequest — запуск flow на демоне.
type CreateRunRequest struct {
	Flow string            `json:"flow"`
	Vars map[string]string `json:"vars,omitempty"`
}

// CreateRunResponse — ответ на запуск.
type CreateRunResponse struct {
	RunID string `json:"run_id"`
	Flow  string `json:"flow"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	Flow   string
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API демона.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runs ---

// ListRuns возвращает историю runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Flow != "" {
		params.Set("flow", opts.Flow)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// CreateRun запускает flow на демоне.
func (c *Client) CreateRun(req CreateRunRequest) (*CreateRunResponse, error) {
	var resp CreateRunResponse
	err := c.post("/api/v1/runs", req, &resp)
	return &resp, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// --- Triggers ---

// ListTriggers возвращает триггеры демона.
func (c *Client) ListTriggers() ([]TriggerResponse, error) {
	var triggers []TriggerResponse
	err := c.list("/api/v1/triggers", nil, &triggers)
	return triggers, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
