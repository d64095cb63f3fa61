package financials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tickerql/tickerql/internal/schema"
)

const dateLayout = "2006-01-02"

var statementSections = []string{"Balance_Sheet", "Cash_Flow", "Income_Statement"}

type HTTPSourceConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
	// Exchange is appended to tickers without one, e.g. AAPL -> AAPL.US.
	Exchange string
}

// HTTPSource reads the Financials section of a fundamentals API that
// serves balance sheet, cash flow and income statement data keyed by
// reporting date.
type HTTPSource struct {
	baseURL  string
	token    string
	exchange string
	client   *http.Client
}

func NewHTTPSource(cfg HTTPSourceConfig) (*HTTPSource, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, fmt.Errorf("api token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = "US"
	}
	return &HTTPSource{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:    strings.TrimSpace(cfg.APIToken),
		exchange: exchange,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, ticker string) ([]Statement, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	symbol := s.symbol(ticker)

	params := url.Values{}
	params.Set("api_token", s.token)
	params.Set("fmt", "json")
	params.Set("filter", "Financials")
	endpoint := fmt.Sprintf("%s/api/fundamentals/%s?%s", s.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build fundamentals request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The request URL carries the API token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("request fundamentals for %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fundamentals body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fundamentals for %s failed status=%d body=%s", symbol, resp.StatusCode, truncate(string(body), 256))
	}
	return decodeFinancials(ticker, symbol, body)
}

func (s *HTTPSource) symbol(ticker string) string {
	if strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + "." + s.exchange
}

type sectionPayload struct {
	Quarterly map[string]map[string]json.RawMessage `json:"quarterly"`
}

func decodeFinancials(ticker, symbol string, body []byte) ([]Statement, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode fundamentals for %s: %w", symbol, err)
	}

	byDate := map[string]*Statement{}
	for _, name := range statementSections {
		raw, ok := payload[name]
		if !ok || isJSONNull(raw) {
			continue
		}
		var section sectionPayload
		if err := json.Unmarshal(raw, &section); err != nil {
			return nil, fmt.Errorf("decode %s for %s: %w", name, symbol, err)
		}
		for dateKey, fields := range section.Quarterly {
			date, err := time.Parse(dateLayout, dateKey)
			if err != nil {
				return nil, fmt.Errorf("parse %s date %q for %s: %w", name, dateKey, symbol, err)
			}
			statement, ok := byDate[dateKey]
			if !ok {
				statement = &Statement{Ticker: ticker, Symbol: symbol, Date: date, Values: map[string]float64{}}
				byDate[dateKey] = statement
			}
			mergeValues(statement.Values, fields)
		}
	}

	statements := make([]Statement, 0, len(byDate))
	for _, statement := range byDate {
		statements = append(statements, *statement)
	}
	sort.Slice(statements, func(i, j int) bool {
		return statements[i].Date.Before(statements[j].Date)
	})
	return statements, nil
}

// mergeValues copies FLOAT columns into dst. The API encodes numbers as
// strings, numbers or null; anything unparseable is left out.
func mergeValues(dst map[string]float64, fields map[string]json.RawMessage) {
	for name, raw := range fields {
		fieldType, ok := schema.Lookup(name)
		if !ok || fieldType != schema.Float {
			continue
		}
		if value, ok := parseNumber(raw); ok {
			dst[name] = value
		}
	}
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	if isJSONNull(raw) {
		return 0, false
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return number, true
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
