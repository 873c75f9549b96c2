package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Terminal vocabulary of the long-running-operation protocol.
const (
	StateSucceeded = "Succeeded"
	StateCancelled = "Cancelled"
	StateFailed    = "Failed"
)

// defaultRetryAfter is the poll interval used when the provider omits the
// retry-after header.
const defaultRetryAfter = 10 * time.Second

// OperationResult is the outcome of a completed long-running operation. Data
// is the body of the original mutating response, not the status payload;
// status endpoints typically carry no resource body.
type OperationResult struct {
	Cancelled bool
	Data      json.RawMessage
}

// ResolveFunc is a caller-supplied fallback: when the initial response offers
// neither polling headers nor a provisioning state, a true return resolves the
// operation immediately.
type ResolveFunc func(resp *http.Response, body []byte) bool

// operationHandle captures the polling coordinates announced by the initial
// response to a mutating call.
type operationHandle struct {
	statusURL  string
	retryAfter time.Duration
	initial    json.RawMessage
}

// RunAsyncOperation issues a mutating call and drives it to a terminal state.
//
// The initial response is interpreted in order: an azure-asyncoperation or
// location header starts the polling loop; otherwise a provisioningState in
// the body is evaluated directly; otherwise the resolved fallback is
// consulted. Anything else is ErrUnknownResponse - an ambiguous response is
// never retried since that risks duplicate provisioning.
//
// The polling loop has no attempt cap; bound it through ctx.
func RunAsyncOperation(ctx context.Context, client *http.Client, method, url string, body []byte, header http.Header, resolved ResolveFunc) (*OperationResult, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	respBody, err := io.ReadAll(resp.Body)
	//nolint:errcheck
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, respBody)
	}

	if statusURL := pollLocation(resp.Header); statusURL != "" {
		handle := &operationHandle{
			statusURL:  statusURL,
			retryAfter: retryInterval(resp.Header),
			initial:    respBody,
		}
		return pollUntilDone(ctx, client, handle, header)
	}

	var probe struct {
		ProvisioningState string `json:"provisioningState"`
	}
	//nolint:errcheck // absence of provisioningState falls through to the fallback
	json.Unmarshal(respBody, &probe)

	switch probe.ProvisioningState {
	case StateSucceeded, StateCancelled:
		return &OperationResult{
			Cancelled: probe.ProvisioningState == StateCancelled,
			Data:      respBody,
		}, nil
	case StateFailed:
		return nil, ErrOperationFailed
	case "":
		if resolved != nil && resolved(resp, respBody) {
			return &OperationResult{Cancelled: false, Data: respBody}, nil
		}
		return nil, ErrUnknownResponse
	default:
		// An in-flight state with no polling URL offered; the operation
		// cannot be observed to completion.
		return nil, ErrUnknownResponse
	}
}

// PutAsync runs an asynchronous PUT (create/update semantics).
func PutAsync(ctx context.Context, client *http.Client, url string, body []byte, header http.Header, resolved ResolveFunc) (*OperationResult, error) {
	return RunAsyncOperation(ctx, client, http.MethodPut, url, body, header, resolved)
}

// PostAsync runs an asynchronous POST.
func PostAsync(ctx context.Context, client *http.Client, url string, body []byte, header http.Header, resolved ResolveFunc) (*OperationResult, error) {
	return RunAsyncOperation(ctx, client, http.MethodPost, url, body, header, resolved)
}

// DeleteAsync runs an asynchronous DELETE.
func DeleteAsync(ctx context.Context, client *http.Client, url string, header http.Header, resolved ResolveFunc) (*OperationResult, error) {
	return RunAsyncOperation(ctx, client, http.MethodDelete, url, nil, header, resolved)
}

// pollUntilDone waits the provider-dictated interval, GETs the status URL and
// evaluates the status field, repeating until a terminal state. The interval
// stays fixed; there is no exponential backoff in the protocol.
func pollUntilDone(ctx context.Context, client *http.Client, handle *operationHandle, header http.Header) (*OperationResult, error) {
	timer := time.NewTimer(handle.retryAfter)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		status, err := fetchStatus(ctx, client, handle.statusURL, header)
		if err != nil {
			return nil, err
		}

		switch status {
		case StateSucceeded, StateCancelled:
			return &OperationResult{
				Cancelled: status == StateCancelled,
				Data:      handle.initial,
			}, nil
		case StateFailed:
			return nil, ErrOperationFailed
		default:
			timer.Reset(handle.retryAfter)
		}
	}
}

// fetchStatus GETs the status endpoint and returns its status field.
func fetchStatus(ctx context.Context, client *http.Client, url string, header http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	copyHeader(req.Header, header)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(resp.Body)
	//nolint:errcheck
	resp.Body.Close()
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp.StatusCode, body)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}

	return payload.Status, nil
}

// pollLocation picks the status URL from the initial response headers.
// azure-asyncoperation wins over location when both are present.
func pollLocation(h http.Header) string {
	if u := h.Get("Azure-Asyncoperation"); u != "" {
		return u
	}
	return h.Get("Location")
}

// retryInterval reads the retry-after header in seconds, defaulting to 10.
func retryInterval(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}
