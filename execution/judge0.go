package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codecollab/domain"
	"codecollab/errors"
)

const defaultHTTPTimeout = 15 * time.Second

// Judge0Config carries the endpoint and the RapidAPI credentials.
type Judge0Config struct {
	BaseURL string
	APIHost string
	APIKey  string
}

// Judge0Client talks to a Judge0 instance over its REST surface. Source is
// sent unencoded (base64_encoded=false), matching what the judge expects for
// plain-text submissions.
type Judge0Client struct {
	cfg    Judge0Config
	client *http.Client
}

func NewJudge0Client(cfg Judge0Config) *Judge0Client {
	return &Judge0Client{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type createRequest struct {
	SourceCode    string `json:"source_code"`
	LanguageID    int    `json:"language_id"`
	Stdin         string `json:"stdin"`
	Base64Encoded bool   `json:"base64_encoded"`
}

type createResponse struct {
	Token string `json:"token"`
}

type statusResponse struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Message       string `json:"message"`
}

// CreateSubmission registers one job and returns its opaque token.
func (c *Judge0Client) CreateSubmission(ctx context.Context, sourceCode string, languageID int, stdin string) (string, error) {
	body, err := json.Marshal(createRequest{
		SourceCode: sourceCode,
		LanguageID: languageID,
		Stdin:      stdin,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAPIHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrSubmissionRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: judge returned %d: %s", errors.ErrSubmissionRejected, resp.StatusCode, detail)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: decoding token: %v", errors.ErrSubmissionRejected, err)
	}
	if created.Token == "" {
		return "", fmt.Errorf("%w: empty token", errors.ErrSubmissionRejected)
	}
	return created.Token, nil
}

// GetSubmission fetches the current judge-side status of one job.
func (c *Judge0Client) GetSubmission(ctx context.Context, token string) (domain.StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/submissions/"+token, nil)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	c.setAPIHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("%w: poll: %v", errors.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.StatusSnapshot{}, fmt.Errorf("%w: poll returned %d", errors.ErrConnectivity, resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("%w: decoding status: %v", errors.ErrConnectivity, err)
	}

	return domain.StatusSnapshot{
		StatusID:          status.Status.ID,
		StatusDescription: status.Status.Description,
		Stdout:            status.Stdout,
		Stderr:            status.Stderr,
		CompileOutput:     status.CompileOutput,
		Message:           status.Message,
	}, nil
}

func (c *Judge0Client) setAPIHeaders(req *http.Request) {
	if c.cfg.APIHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.cfg.APIHost)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	}
}
