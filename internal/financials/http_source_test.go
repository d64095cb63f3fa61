package financials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const fundamentalsFixture = `{
  "Balance_Sheet": {
    "currency_symbol": "USD",
    "quarterly": {
      "2024-03-31": {"date": "2024-03-31", "filing_date": "2024-05-03", "totalAssets": "337411000000.00", "totalLiab": "263217000000.00", "cash": null},
      "2023-12-31": {"date": "2023-12-31", "totalAssets": "353514000000.00"}
    },
    "yearly": {"2023-09-30": {"totalAssets": "1"}}
  },
  "Cash_Flow": {
    "quarterly": {
      "2024-03-31": {"freeCashFlow": 20694000000, "capitalExpenditures": "-1996000000.00"}
    }
  },
  "Income_Statement": {
    "quarterly": {
      "2024-03-31": {"totalRevenue": "90753000000.00", "grossProfit": "", "unknownMetric": "12"}
    }
  }
}`

func TestHTTPSourceFetchMergesSectionsByDate(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(fundamentalsFixture))
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPSourceConfig{BaseURL: server.URL, APIToken: "tok", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}
	statements, err := source.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/api/fundamentals/AAPL.US" {
		t.Fatalf("path = %q", gotPath)
	}
	for _, part := range []string{"api_token=tok", "fmt=json", "filter=Financials"} {
		if !strings.Contains(gotQuery, part) {
			t.Fatalf("query %q missing %q", gotQuery, part)
		}
	}

	if len(statements) != 2 {
		t.Fatalf("statements = %d", len(statements))
	}
	older, latest := statements[0], statements[1]
	if older.Date.Format(dateLayout) != "2023-12-31" || latest.Date.Format(dateLayout) != "2024-03-31" {
		t.Fatalf("dates = %s, %s", older.Date, latest.Date)
	}
	if latest.Ticker != "AAPL" || latest.Symbol != "AAPL.US" {
		t.Fatalf("ticker/symbol = %q/%q", latest.Ticker, latest.Symbol)
	}
	want := map[string]float64{
		"totalAssets":         337411000000,
		"totalLiab":           263217000000,
		"freeCashFlow":        20694000000,
		"capitalExpenditures": -1996000000,
		"totalRevenue":        90753000000,
	}
	if len(latest.Values) != len(want) {
		t.Fatalf("values = %#v", latest.Values)
	}
	for name, value := range want {
		if latest.Values[name] != value {
			t.Fatalf("%s = %v, want %v", name, latest.Values[name], value)
		}
	}
}

func TestHTTPSourceKeepsExplicitExchange(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPSourceConfig{BaseURL: server.URL, APIToken: "tok"})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}
	statements, err := source.Fetch(context.Background(), "SAP.XETRA")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotPath != "/api/fundamentals/SAP.XETRA" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(statements) != 0 {
		t.Fatalf("statements = %d", len(statements))
	}
}

func TestHTTPSourceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Ticker Not Found.", http.StatusNotFound)
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPSourceConfig{BaseURL: server.URL, APIToken: "tok"})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}
	_, err = source.Fetch(context.Background(), "NOPE")
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("Fetch() error = %v", err)
	}
	if strings.Contains(err.Error(), "tok") {
		t.Fatalf("error leaks token: %v", err)
	}
}

func TestNewHTTPSourceRequiresToken(t *testing.T) {
	if _, err := NewHTTPSource(HTTPSourceConfig{BaseURL: "https://example.com"}); err == nil {
		t.Fatal("expected missing token error")
	}
}
