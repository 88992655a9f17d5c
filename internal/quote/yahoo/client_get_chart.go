package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"quotebot/internal/httpx"
	"quotebot/internal/quote"
)

// Chart holds the slice of the chart API response the bot cares about: the
// latest market price, the previous close and a short close-price series.
type Chart struct {
	Symbol        string
	ShortName     string
	Currency      string
	Price         float64
	PreviousClose float64
	MarketTime    time.Time
	Closes        []float64
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetChart retrieves the chart for symbol over the given range and interval
// (API notation, e.g. "1d"/"5m" or "1mo"/"1d").
func (c *Client) GetChart(ctx context.Context, symbol, rng, interval string) (*Chart, error) {
	query := url.Values{}
	query.Set("range", rng)
	query.Set("interval", interval)
	query.Set("includePrePost", "false")

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", symbol, quote.ErrSymbolNotFound)
	default:
		return nil, &quote.StatusError{Code: res.StatusCode, Body: httpx.Snippet(res.Body)}
	}

	var parsed chartResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if e := parsed.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("%s: %w", symbol, quote.ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("chart error: code=%q description=%q", e.Code, e.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, quote.ErrSymbolNotFound)
	}

	r := parsed.Chart.Result[0]
	chart := &Chart{
		Symbol:        r.Meta.Symbol,
		ShortName:     r.Meta.ShortName,
		Currency:      r.Meta.Currency,
		Price:         r.Meta.RegularMarketPrice,
		PreviousClose: r.Meta.ChartPreviousClose,
	}
	if r.Meta.RegularMarketTime > 0 {
		chart.MarketTime = time.Unix(r.Meta.RegularMarketTime, 0).UTC()
	}
	if len(r.Indicators.Quote) > 0 {
		for _, close := range r.Indicators.Quote[0].Close {
			if close != nil {
				chart.Closes = append(chart.Closes, *close)
			}
		}
	}
	return chart, nil
}
