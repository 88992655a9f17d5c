package bot

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// ChartConfig controls the rendered chart image.
type ChartConfig struct {
	BaseURL string
	Width   int
	Height  int
}

type chartDataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	Fill        bool      `json:"fill"`
	BorderColor string    `json:"borderColor"`
	PointRadius int       `json:"pointRadius"`
}

type chartSpec struct {
	Type string `json:"type"`
	Data struct {
		Labels   []string       `json:"labels"`
		Datasets []chartDataset `json:"datasets"`
	} `json:"data"`
	Options map[string]any `json:"options"`
}

// ChartURL builds a charting-service image URL for a short time series.
// The series is encoded as a line-chart definition in the c query parameter.
func ChartURL(cfg ChartConfig, label string, closes []float64) (string, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://quickchart.io/chart"
	}
	if cfg.Width <= 0 {
		cfg.Width = 600
	}
	if cfg.Height <= 0 {
		cfg.Height = 300
	}

	color := "#d60000"
	if len(closes) >= 2 && closes[len(closes)-1] < closes[0] {
		color = "#0051c7"
	}

	var spec chartSpec
	spec.Type = "line"
	spec.Data.Labels = make([]string, len(closes))
	for i := range closes {
		spec.Data.Labels[i] = ""
	}
	spec.Data.Datasets = []chartDataset{{
		Label:       label,
		Data:        closes,
		BorderColor: color,
	}}
	spec.Options = map[string]any{
		"legend": map[string]any{"display": false},
		"title":  map[string]any{"display": true, "text": label},
	}

	raw, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("c", string(raw))
	v.Set("w", strconv.Itoa(cfg.Width))
	v.Set("h", strconv.Itoa(cfg.Height))
	return cfg.BaseURL + "?" + v.Encode(), nil
}
