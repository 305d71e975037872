package alerts

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
)

const (
	defaultSuricataIndex = "suricata-*"
	defaultZeekIndex     = "zeek-*"
)

// SearchClient queries an Elasticsearch-compatible _search endpoint.
type SearchClient struct {
	base          *url.URL
	http          *http.Client
	suricataIndex string
	zeekIndex     string
	username      string
	password      string
}

type SearchOption func(*SearchClient)

func WithHTTPClient(c *http.Client) SearchOption {
	return func(s *SearchClient) {
		if c != nil {
			s.http = c
		}
	}
}

func WithIndices(suricata, zeek string) SearchOption {
	return func(s *SearchClient) {
		if suricata != "" {
			s.suricataIndex = suricata
		}
		if zeek != "" {
			s.zeekIndex = zeek
		}
	}
}

func WithBasicAuth(username, password string) SearchOption {
	return func(s *SearchClient) {
		s.username, s.password = username, password
	}
}

// NewSearchClient parses baseURL (for example http://elastic:9200). User
// info in the URL is used as basic auth.
func NewSearchClient(baseURL string, opts ...SearchOption) (*SearchClient, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("search url must be http or https, got %q", baseURL)
	}
	c := &SearchClient{
		base:          u,
		http:          &http.Client{Timeout: 10 * time.Second},
		suricataIndex: defaultSuricataIndex,
		zeekIndex:     defaultZeekIndex,
	}
	if u.User != nil {
		c.username = u.User.Username()
		c.password, _ = u.User.Password()
		u.User = nil
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *SearchClient) search(ctx context.Context, index string, limit int) (*searchResponse, error) {
	body, err := json.Marshal(map[string]any{
		"size": ClampLimit(limit),
		"sort": []any{map[string]any{"@timestamp": map[string]string{"order": "desc"}}},
	})
	if err != nil {
		return nil, err
	}
	endpoint := c.base.JoinPath(index, "_search")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, index, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrUpstream, index, err)
	}
	return &out, nil
}

type suricataDoc struct {
	Timestamp time.Time `json:"@timestamp"`
	SrcIP     string    `json:"src_ip"`
	DestIP    string    `json:"dest_ip"`
	DestPort  int       `json:"dest_port"`
	Proto     string    `json:"proto"`
	Alert     struct {
		Signature string `json:"signature"`
		Severity  int    `json:"severity"`
	} `json:"alert"`
}

func (c *SearchClient) SuricataAlerts(ctx context.Context, limit int) ([]SuricataAlert, error) {
	res, err := c.search(ctx, c.suricataIndex, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SuricataAlert, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc suricataDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode suricata hit %s: %v", ErrUpstream, hit.ID, err)
		}
		out = append(out, SuricataAlert{
			ID:        hit.ID,
			Timestamp: doc.Timestamp,
			SrcIP:     doc.SrcIP,
			DestIP:    doc.DestIP,
			DestPort:  doc.DestPort,
			Protocol:  doc.Proto,
			Signature: doc.Alert.Signature,
			Severity:  doc.Alert.Severity,
		})
	}
	return out, nil
}

type zeekDoc struct {
	Timestamp time.Time `json:"@timestamp"`
	SrcIP     string    `json:"src_ip"`
	DestIP    string    `json:"dest_ip"`
	DestPort  int       `json:"dest_port"`
	Proto     string    `json:"proto"`
	Service   string    `json:"service"`
	EventType string    `json:"event_type"`
}

func (c *SearchClient) ZeekLogs(ctx context.Context, limit int) ([]ZeekLog, error) {
	res, err := c.search(ctx, c.zeekIndex, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ZeekLog, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc zeekDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode zeek hit %s: %v", ErrUpstream, hit.ID, err)
		}
		out = append(out, ZeekLog{
			ID:        hit.ID,
			Timestamp: doc.Timestamp,
			SrcIP:     doc.SrcIP,
			DestIP:    doc.DestIP,
			DestPort:  doc.DestPort,
			Proto:     doc.Proto,
			Service:   doc.Service,
			EventType: doc.EventType,
		})
	}
	return out, nil
}

// Ping checks that the search backend answers.
func (c *SearchClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), nil)
	if err != nil {
		return err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return nil
}
