package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

// classifyTransport maps a failed round trip onto the client taxonomy. A
// timeout on a submission means the backend may still be working; anywhere
// else it is reported like an unreachable backend.
func classifyTransport(err error, timeoutIsProcessing bool) *appErrors.Error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return appErrors.Wrap(err, appErrors.CodeOffline, appErrors.ErrOffline.Status,
			"analysis backend is unreachable after repeated failures; running in offline/demo mode")
	case errors.Is(err, context.Canceled):
		return appErrors.Wrap(err, appErrors.CodeInternal, 499, "request cancelled")
	case isTimeout(err) && !isConnectivityFailure(err):
		if timeoutIsProcessing {
			return appErrors.Wrap(err, appErrors.CodeStillProcessing, appErrors.ErrStillProcessing.Status, appErrors.ErrStillProcessing.Message)
		}
		return appErrors.Wrap(err, appErrors.CodeOffline, appErrors.ErrOffline.Status, "analysis backend did not respond in time")
	default:
		return appErrors.Wrap(err, appErrors.CodeOffline, appErrors.ErrOffline.Status, appErrors.ErrOffline.Message)
	}
}

// errorBody covers the error shapes the backend emits: a plain detail
// string, a list of validation problems, or a message field.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type detailItem struct {
	Msg string        `json:"msg"`
	Loc []interface{} `json:"loc"`
}

func errorFromResponse(resp *http.Response) *appErrors.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	cause := fmt.Errorf("backend responded %s", resp.Status)

	base := statusError(resp.StatusCode)
	message := extractDetail(raw)
	if message == "" {
		message = statusMessage(resp.StatusCode)
	}
	if message == "" {
		message = statusLine(resp)
	}
	return appErrors.Wrap(cause, base.Code, base.Status, message)
}

func statusError(status int) *appErrors.Error {
	switch {
	case status == http.StatusNotFound:
		return appErrors.ErrNotFound
	case status == http.StatusRequestEntityTooLarge:
		return appErrors.ErrFileTooLarge
	case status == http.StatusUnauthorized:
		return appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		return appErrors.ErrForbidden
	case status == http.StatusConflict:
		return appErrors.ErrConflict
	case status >= 500:
		return appErrors.ErrServer
	default:
		return &appErrors.Error{Code: appErrors.CodeValidation, Status: status}
	}
}

func statusMessage(status int) string {
	switch {
	case status == http.StatusUnprocessableEntity:
		return "invalid input"
	case status == http.StatusRequestEntityTooLarge:
		return "file too large"
	case status == http.StatusNotFound:
		return "analysis not found; it may have been deleted"
	case status == http.StatusForbidden:
		return "only the user who ran this analysis can change it"
	case status >= 500:
		return "server error, try again later"
	default:
		return ""
	}
}

func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return "HTTP " + resp.Status
	}
	return fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func extractDetail(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if len(body.Detail) > 0 && string(body.Detail) != "null" {
		var text string
		if err := json.Unmarshal(body.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []detailItem
		if err := json.Unmarshal(body.Detail, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg == "" {
					continue
				}
				if field := locField(item.Loc); field != "" {
					parts = append(parts, field+": "+item.Msg)
				} else {
					parts = append(parts, item.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func locField(loc []interface{}) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
