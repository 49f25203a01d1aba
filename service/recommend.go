package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/booktrack/server/apperr"
)

// Recommendation is one suggested title from the recommendation collaborator.
type Recommendation struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	CoverID string `json:"coverId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type recommendRequest struct {
	LibraryTitles []string `json:"library_titles"`
}

type recommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Count           int              `json:"count"`
	Reason          string           `json:"reason"`
}

// RecommendClient talks to the stateless recommendation service. Callers are
// expected to treat any returned error as "no recommendations right now";
// the orchestrator degrades rather than failing the request.
type RecommendClient struct {
	baseURL string
	client  *http.Client
}

func NewRecommendClient(baseURL string, timeout time.Duration) *RecommendClient {
	return &RecommendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Recommend posts the user's library titles and returns the suggested books.
func (c *RecommendClient) Recommend(ctx context.Context, userID string, titles []string) ([]Recommendation, error) {
	body, err := json.Marshal(recommendRequest{LibraryTitles: titles})
	if err != nil {
		return nil, err
	}
	u := c.baseURL + "/api/v1/recommendations/users/" + userID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Dependency("recommendation service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Dependency(fmt.Sprintf("recommendation service returned %d", resp.StatusCode), nil)
	}
	var data recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, apperr.Dependency("recommendation service sent a malformed response", err)
	}
	if data.Recommendations == nil {
		data.Recommendations = []Recommendation{}
	}
	return data.Recommendations, nil
}
