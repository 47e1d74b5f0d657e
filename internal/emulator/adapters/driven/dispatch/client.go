package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
)

const (
	coordinatePath = "/api/chair/coordinate"
	rideStatusPath = "/api/chair/rides/%s/status"
	activityPath   = "/api/chair/activity"
	evaluationPath = "/api/app/rides/%s/evaluation"
)

type statusRequest struct {
	Status model.RideStatus `json:"status"`
}

type activityRequest struct {
	IsActive bool `json:"is_active"`
}

type evaluationRequest struct {
	Evaluation int `json:"evaluation"`
}

// Client talks to the dispatch service over its JSON API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) ReportVehiclePosition(ctx context.Context, cred model.Credential, coord model.Coordinate) error {
	return c.do(ctx, cred, http.MethodPost, coordinatePath, dto.FromModelCoordinate(coord))
}

func (c *Client) PushRideStatus(ctx context.Context, cred model.Credential, rideID string, status model.RideStatus) error {
	path := fmt.Sprintf(rideStatusPath, url.PathEscape(rideID))
	return c.do(ctx, cred, http.MethodPost, path, statusRequest{Status: status})
}

func (c *Client) SetAvailability(ctx context.Context, cred model.Credential, active bool) error {
	return c.do(ctx, cred, http.MethodPost, activityPath, activityRequest{IsActive: active})
}

func (c *Client) SubmitEvaluation(ctx context.Context, cred model.Credential, rideID string, score int) error {
	path := fmt.Sprintf(evaluationPath, url.PathEscape(rideID))
	return c.do(ctx, cred, http.MethodPost, path, evaluationRequest{Evaluation: score})
}

func (c *Client) do(ctx context.Context, cred model.Credential, method, path string, body any) error {
	if cred.AccessToken == "" {
		return myerrors.ErrNoCredential
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", myerrors.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return statusError(resp)
}

// errorResponse is the error body of the dispatch service.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body errorResponse
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Error != "" {
			msg = body.Error
		}
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusConflict:
		sentinel = myerrors.ErrInvalidTransition
	case http.StatusNotFound:
		sentinel = myerrors.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = myerrors.ErrUnauthorized
	default:
		sentinel = myerrors.ErrTransport
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, msg)
}
