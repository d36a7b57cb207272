package actions

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

const (
	// TypeHTTPRequest — тип действия HTTP запроса.
	TypeHTTPRequest = "http.request"

	// Значения по умолчанию.
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// HTTPAction — HTTP запрос к внешнему сервису.
//
// Параметры:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/report",
//	    "headers": {"Authorization": "Bearer {{ token }}"},
//	    "body": {"file": "{{ trigger.new_file }}"},
//	    "validate_ssl": true,
//	    "timeout_sec": 30,
//	    "output_var": "response"
//	}
//
// Поля результата: status_code, headers, body (JSON ответ — как объект).
// Статус ответа >= 400 даёт FAILED.
type HTTPAction struct {
	client *http.Client
}

// NewHTTPAction создаёт новый HTTPAction.
func NewHTTPAction() *HTTPAction {
	return &HTTPAction{
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Type возвращает тип действия.
func (a *HTTPAction) Type() string {
	return TypeHTTPRequest
}

// Describe возвращает описание действия.
func (a *HTTPAction) Describe() Spec {
	return Spec{
		Type:        TypeHTTPRequest,
		Category:    "http",
		DisplayName: "HTTP request",
		Description: "Sends an HTTP request; status >= 400 fails the step.",
		Params: []Param{
			{Name: "method", Type: "string", Default: http.MethodGet},
			{Name: "url", Type: "string", Required: true},
			{Name: "headers", Type: "map"},
			{Name: "body", Type: "any"},
			{Name: "validate_ssl", Type: "bool", Default: true},
			{Name: "timeout_sec", Type: "number", Default: int(defaultHTTPTimeout / time.Second)},
			{Name: "output_var", Type: "string", Description: "variable that receives the response body"},
		},
	}
}

// Execute выполняет HTTP запрос.
func (a *HTTPAction) Execute(ctx context.Context, req *Request) (*domain.StepResult, error) {
	url := req.String("url", "")
	if err := requireParam(TypeHTTPRequest, "url", url); err != nil {
		return nil, err
	}
	method := strings.ToUpper(req.String("method", http.MethodGet))

	headers := req.MapString("headers")
	if headers == nil {
		headers = make(map[string]string)
	}

	var bodyReader io.Reader
	if body, ok := req.Params["body"]; ok && body != nil {
		bodyBytes, err := serializeBody(body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, hasContentType := headers["Content-Type"]; !hasContentType {
			if _, isString := body.(string); !isString {
				headers["Content-Type"] = "application/json"
			}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := a.buildClient(req).Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrActionCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var body any = string(bodyBytes)
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed any
		if err := json.Unmarshal(bodyBytes, &parsed); err == nil {
			body = parsed
		}
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		respHeaders[key] = resp.Header.Get(key)
	}

	if outVar := req.String("output_var", ""); outVar != "" {
		req.Vars.Set(outVar, body)
	}

	result := &domain.StepResult{
		Status: domain.StepStatusSuccess,
		Output: string(bodyBytes),
		Data: map[string]any{
			"status_code": resp.StatusCode,
			"headers":     respHeaders,
			"body":        body,
		},
	}
	if resp.StatusCode >= 400 {
		result.Status = domain.StepStatusFailed
		result.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return result, nil
}

// buildClient возвращает клиента с учётом timeout_sec и validate_ssl.
func (a *HTTPAction) buildClient(req *Request) *http.Client {
	timeout := a.client.Timeout
	if sec := req.Int("timeout_sec", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	if req.Bool("validate_ssl", true) && timeout == a.client.Timeout {
		return a.client
	}

	client := &http.Client{Timeout: timeout}
	if !req.Bool("validate_ssl", true) {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}

// serializeBody сериализует body в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
