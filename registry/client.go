package registry

import (
	"bytes"
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

const (
	consultationsPath = "/api/consultations"
	defaultTimeout    = 10 * time.Second
	maxErrorBody      = 4 << 10
)

var validate = validator.New()

// Client creates consultation records through the registry REST API.
type Client struct {
	log         *slog.Logger
	baseURL     string
	credentials contract.CredentialSource
	http        *http.Client
}

func NewClient(log *slog.Logger, baseURL string, credentials contract.CredentialSource) *Client {
	return &Client{
		log:         log,
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		http:        &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.http = client
	return c
}

// Create posts the request and returns the id assigned by the registry.
func (c *Client) Create(ctx context.Context, request domain.ConsultationRequest) (domain.ConsultationID, error) {
	if err := validate.Struct(request); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	token, err := c.credentials.Credential(ctx)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+consultationsPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrRegistry, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrRegistry, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: reading response: %v", errors.ErrRegistry, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, fmt.Errorf("%w: registry answered %s", errors.ErrAuthRequired, resp.Status)
	case resp.StatusCode >= 300:
		return 0, fmt.Errorf("%w: %s body=%s", errors.ErrRegistry, resp.Status, truncate(raw))
	}

	id, err := parseID(raw)
	if err != nil {
		return 0, err
	}
	c.log.Info("Consultation created", "consultation", id.String(), "type", request.RequestType)
	return id, nil
}

// parseID accepts {"id":N} and {"consultationId":N}.
func parseID(raw []byte) (domain.ConsultationID, error) {
	if !gjson.ValidBytes(raw) {
		return 0, fmt.Errorf("%w: response is not JSON", errors.ErrRegistry)
	}
	result := gjson.GetManyBytes(raw, "id", "consultationId")
	for _, field := range result {
		if field.Type == gjson.Number && field.Int() > 0 {
			return domain.ConsultationID(field.Int()), nil
		}
	}
	return 0, fmt.Errorf("%w: response carries no consultation id", errors.ErrRegistry)
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return strings.TrimSpace(string(raw))
}
