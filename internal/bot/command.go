package bot

import "strings"

// Source identifies which quote backend serves an instrument.
type Source int

const (
	SourceIndex Source = iota
	SourceFX
	SourceGlobal
)

// Instrument is a resolvable market instrument with the symbol its source
// understands.
type Instrument struct {
	Symbol string
	Label  string
	Source Source
}

// Action is what a parsed message asks the bot to do.
type Action int

const (
	ActionNone Action = iota
	ActionQuote
	ActionSearch
	ActionDigest
	ActionChart
	ActionHelp
)

// Command is a parsed chat message.
type Command struct {
	Action     Action
	Instrument Instrument
	Query      string
}

var instruments = map[string]Instrument{
	"kospi":   {Symbol: "KOSPI", Label: "코스피", Source: SourceIndex},
	"kosdaq":  {Symbol: "KOSDAQ", Label: "코스닥", Source: SourceIndex},
	"usd":     {Symbol: "USD/KRW", Label: "달러", Source: SourceFX},
	"dollar":  {Symbol: "USD/KRW", Label: "달러", Source: SourceFX},
	"달러":      {Symbol: "USD/KRW", Label: "달러", Source: SourceFX},
	"jpy":     {Symbol: "JPY/KRW", Label: "엔화", Source: SourceFX},
	"yen":     {Symbol: "JPY/KRW", Label: "엔화", Source: SourceFX},
	"엔화":      {Symbol: "JPY/KRW", Label: "엔화", Source: SourceFX},
	"dow":     {Symbol: "^DJI", Label: "다우존스", Source: SourceGlobal},
	"다우":      {Symbol: "^DJI", Label: "다우존스", Source: SourceGlobal},
	"nasdaq":  {Symbol: "^IXIC", Label: "나스닥", Source: SourceGlobal},
	"나스닥":     {Symbol: "^IXIC", Label: "나스닥", Source: SourceGlobal},
	"sp500":   {Symbol: "^GSPC", Label: "S&P 500", Source: SourceGlobal},
	"snp":     {Symbol: "^GSPC", Label: "S&P 500", Source: SourceGlobal},
	"btc":     {Symbol: "BTC-USD", Label: "비트코인", Source: SourceGlobal},
	"bitcoin": {Symbol: "BTC-USD", Label: "비트코인", Source: SourceGlobal},
	"비트코인":    {Symbol: "BTC-USD", Label: "비트코인", Source: SourceGlobal},
	"eth":     {Symbol: "ETH-USD", Label: "이더리움", Source: SourceGlobal},
	"이더리움":    {Symbol: "ETH-USD", Label: "이더리움", Source: SourceGlobal},
	"코스피":     {Symbol: "KOSPI", Label: "코스피", Source: SourceIndex},
	"코스닥":     {Symbol: "KOSDAQ", Label: "코스닥", Source: SourceIndex},
}

// LookupInstrument resolves a single alias token. Matching is
// case-insensitive.
func LookupInstrument(token string) (Instrument, bool) {
	in, ok := instruments[strings.ToLower(strings.TrimSpace(token))]
	return in, ok
}

// DigestInstruments is the fixed set reported by the scheduled digest,
// in display order.
func DigestInstruments() []Instrument {
	keys := []string{"kospi", "kosdaq", "usd", "dow", "nasdaq", "sp500", "btc"}
	out := make([]Instrument, 0, len(keys))
	for _, k := range keys {
		out = append(out, instruments[k])
	}
	return out
}

// Parse turns a raw chat message into a Command. Slash prefixes and the
// "@botname" suffix on commands are stripped. Unrecognized text longer than
// one token, or an explicit search command, becomes a free-text search;
// anything else is ignored so the bot stays quiet in group chatter.
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{Action: ActionNone}
	}

	fields := strings.Fields(text)
	head := normalizeToken(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch head {
	case "help", "start", "도움말":
		return Command{Action: ActionHelp}
	case "digest", "brief", "시황":
		return Command{Action: ActionDigest}
	case "search", "검색":
		if rest == "" {
			return Command{Action: ActionHelp}
		}
		return Command{Action: ActionSearch, Query: rest}
	case "chart", "차트":
		if rest == "" {
			return Command{Action: ActionHelp}
		}
		if in, ok := LookupInstrument(rest); ok {
			return Command{Action: ActionChart, Instrument: in}
		}
		return Command{Action: ActionChart, Instrument: Instrument{Symbol: strings.ToUpper(rest), Label: rest, Source: SourceGlobal}}
	}

	if in, ok := LookupInstrument(head); ok && rest == "" {
		return Command{Action: ActionQuote, Instrument: in}
	}

	// Slash commands that resolve to nothing get help rather than silence.
	if strings.HasPrefix(fields[0], "/") {
		return Command{Action: ActionHelp}
	}
	if len(fields) > 1 {
		return Command{Action: ActionSearch, Query: text}
	}
	return Command{Action: ActionNone}
}

// normalizeToken strips the slash prefix and a trailing "@botname" from a
// command token and lowercases it.
func normalizeToken(tok string) string {
	tok = strings.TrimPrefix(tok, "/")
	if i := strings.IndexByte(tok, '@'); i >= 0 {
		tok = tok[:i]
	}
	return strings.ToLower(tok)
}
