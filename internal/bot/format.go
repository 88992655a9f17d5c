package bot

import (
	"fmt"
	"strconv"
	"strings"

	"quotebot/internal/quote"
)

// arrow returns the directional marker for a quote.
func arrow(d quote.Direction) string {
	switch d {
	case quote.Up:
		return "▲"
	case quote.Down:
		return "▼"
	default:
		return "―"
	}
}

func trendEmoji(d quote.Direction) string {
	switch d {
	case quote.Up:
		return "📈"
	case quote.Down:
		return "📉"
	default:
		return "➖"
	}
}

// FormatQuote renders a single quote as one chat-markup line:
//
//	📈 *코스피* 2,455.91 ▲23.33 (+0.96%)
func FormatQuote(label string, q quote.Quote) string {
	if label == "" {
		label = q.Name
	}
	if label == "" {
		label = q.Symbol
	}
	var b strings.Builder
	b.WriteString(trendEmoji(q.Direction))
	b.WriteString(" *")
	b.WriteString(label)
	b.WriteString("* ")
	b.WriteString(formatValue(q.Value))
	b.WriteByte(' ')
	b.WriteString(arrow(q.Direction))
	b.WriteString(formatValue(abs(q.Change)))
	b.WriteString(" (")
	b.WriteString(signedPct(q.ChangePct))
	b.WriteString(")")
	return b.String()
}

// FormatDigest renders the scheduled digest. Lines keep the given order;
// sources that failed are listed at the bottom as unavailable.
func FormatDigest(title string, lines []string, failed []string) string {
	var b strings.Builder
	b.WriteString("🔔 *")
	b.WriteString(title)
	b.WriteString("*\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if len(failed) > 0 {
		b.WriteString("⚠️ 조회 실패: ")
		b.WriteString(strings.Join(failed, ", "))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

const helpText = `사용법:
/kospi /kosdaq - 국내 지수
/usd /jpy - 환율
/dow /nasdaq /sp500 /btc - 해외 지수
/chart <지수> - 차트
/search <이름> - 종목 검색
/digest - 전체 시황`

// FormatHelp returns the command reference message.
func FormatHelp() string { return helpText }

// formatValue prints a number with thousands separators and up to two
// decimal places, trimming a trailing ".00".
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func signedPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
