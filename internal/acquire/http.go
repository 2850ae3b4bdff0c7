package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
)

// HTTPCollaborator adapts a remote analysis agent behind an HTTP endpoint.
// The agent answers GET <endpoint>?subject=<subject> with one SourceOutput
// as JSON. Timeouts come from the collector's per-call context, not the
// client.
type HTTPCollaborator struct {
	typ      signal.SourceType
	endpoint string
	client   *http.Client
}

// NewHTTPCollaborator creates a collaborator for one agent endpoint.
func NewHTTPCollaborator(typ signal.SourceType, endpoint string) *HTTPCollaborator {
	return &HTTPCollaborator{typ: typ, endpoint: endpoint, client: &http.Client{}}
}

func (h *HTTPCollaborator) Type() signal.SourceType { return h.typ }

// Process fetches the agent's report for one subject.
func (h *HTTPCollaborator) Process(ctx context.Context, subject string) (*signal.SourceOutput, error) {
	u, err := url.Parse(h.endpoint)
	if err != nil {
		return nil, fmt.Errorf("agent endpoint: %w", err)
	}
	q := u.Query()
	q.Set("subject", subject)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	var out signal.SourceOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode agent response: %w", err)
	}
	return &out, nil
}
