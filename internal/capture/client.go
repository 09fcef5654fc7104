package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for capture agent failures.
var (
	ErrAgentUnreachable = errors.New("capture agent unreachable")
	ErrAgentTimeout     = errors.New("capture agent timeout")
	ErrCaptureRejected  = errors.New("capture rejected")
	ErrCaptureUnknown   = errors.New("capture unknown to agent")
)

// Statuses the agent reports for a capture.
const (
	ReportRecording = "recording"
	ReportFinished  = "finished"
	ReportFailed    = "failed"
)

// Client is the interface for driving the external capture agent. The
// agent owns the actual stream recording processes; this service only
// starts and stops them and observes their reported status.
type Client interface {
	Start(ctx context.Context, req StartRequest) error
	Stop(ctx context.Context, jobID uuid.UUID) error
	Status(ctx context.Context, jobID uuid.UUID) (*StatusReport, error)
}

// StartRequest carries everything the agent needs to open a stream and
// write the encoded file.
type StartRequest struct {
	JobID           uuid.UUID `json:"job_id"`
	StationID       uuid.UUID `json:"station_id"`
	StreamURL       string    `json:"stream_url"`
	DurationMinutes int       `json:"duration_minutes"`
	BitrateKbps     int       `json:"bitrate_kbps"`
	OutputFormat    string    `json:"output_format"`
}

// StatusReport is what the agent knows about one capture.
type StatusReport struct {
	JobID      uuid.UUID `json:"job_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	FileURL    string    `json:"file_url,omitempty"`
	FileSizeMB float64   `json:"file_size_mb,omitempty"`
}

// HTTPClient implements Client using the agent's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new capture agent HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Start(ctx context.Context, req StartRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding start request: %w", err)
	}

	u := fmt.Sprintf("%s/api/v1/captures", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: status %d", ErrCaptureRejected, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) Stop(ctx context.Context, jobID uuid.UUID) error {
	u := fmt.Sprintf("%s/api/v1/captures/%s", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrCaptureUnknown
	default:
		return fmt.Errorf("%w: status %d", ErrCaptureRejected, resp.StatusCode)
	}
}

func (c *HTTPClient) Status(ctx context.Context, jobID uuid.UUID) (*StatusReport, error) {
	u := fmt.Sprintf("%s/api/v1/captures/%s", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCaptureUnknown
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrCaptureRejected, resp.StatusCode)
	}

	var report StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding status report: %w", err)
	}
	return &report, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrAgentTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrAgentTimeout, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrAgentUnreachable, err)
}
