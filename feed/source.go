/*
source.go - HTTP holiday feed source

PURPOSE:
  Fetches one year of the published holiday feed over HTTP. The endpoint
  returns a JSON array; GET {url}?year=YYYY:

    [{"date": "2025-01-01", "name": "New Year's Day",
      "kind": "public_holiday", "is_holiday": true}, ...]

  Kinds map directly onto the marker leave types. Unknown kinds fail the
  whole fetch; a feed that starts publishing a new kind needs a deliberate
  mapping, not a silent skip.
*/
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leavebridge/engine/leave"
)

// =============================================================================
// HTTP SOURCE
// =============================================================================

// HTTPSource implements Source against a JSON feed endpoint.
type HTTPSource struct {
	url  string
	http *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type wireItem struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	IsHoliday bool   `json:"is_holiday"`
}

func (s *HTTPSource) FetchYear(ctx context.Context, year int) ([]Item, error) {
	u := fmt.Sprintf("%s?year=%d", s.url, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var ws []wireItem
	if err := json.NewDecoder(resp.Body).Decode(&ws); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items := make([]Item, 0, len(ws))
	for _, w := range ws {
		d, err := leave.ParseDate(w.Date)
		if err != nil {
			return nil, fmt.Errorf("feed item %q: bad date %q", w.Name, w.Date)
		}
		kind := leave.Type(w.Kind)
		if !kind.Valid() || !kind.Marker() {
			return nil, fmt.Errorf("feed item %q: unknown kind %q", w.Name, w.Kind)
		}
		items = append(items, Item{
			Date:    d,
			Name:    w.Name,
			Kind:    kind,
			Holiday: w.IsHoliday,
		})
	}
	return items, nil
}
