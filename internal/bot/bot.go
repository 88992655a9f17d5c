// Package bot turns chat messages and scheduled triggers into quote lookups
// and formatted replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"quotebot/internal/chat"
	"quotebot/internal/quote"
)

// ChartSource returns recent closes for a symbol, for chart rendering.
type ChartSource interface {
	Series(ctx context.Context, symbol string) ([]float64, error)
}

// Searcher resolves a free-text query to a quote.
type Searcher interface {
	Search(ctx context.Context, text string) (quote.Quote, error)
}

type Bot struct {
	Index  quote.Fetcher
	FX     quote.Fetcher
	Global quote.Fetcher

	Charts   ChartSource
	ChartCfg ChartConfig
	Search   Searcher

	Sender chat.Sender
	Logger log.Logger

	DigestTitle string
	// Instruments overrides the default digest set when non-empty.
	Instruments []Instrument
}

func (b *Bot) fetcherFor(s Source) quote.Fetcher {
	switch s {
	case SourceIndex:
		return b.Index
	case SourceFX:
		return b.FX
	default:
		return b.Global
	}
}

// HandleUpdate processes one incoming webhook update. Errors are logged and
// reported to the chat where possible; the caller treats the update as
// consumed either way.
func (b *Bot) HandleUpdate(ctx context.Context, u *chat.Update) {
	if u == nil || u.Message == nil || u.Message.Text == "" {
		return
	}
	msg := u.Message
	cmd := Parse(msg.Text)
	if cmd.Action == ActionNone {
		return
	}

	b.Logger.Info().
		Int64("chat_id", msg.Chat.ID).
		Str("text", msg.Text).
		Int("action", int(cmd.Action)).
		Msg("handling command")

	var err error
	switch cmd.Action {
	case ActionHelp:
		err = b.Sender.SendMessage(ctx, msg.Chat.ID, FormatHelp())
	case ActionQuote:
		err = b.replyQuote(ctx, msg.Chat.ID, cmd.Instrument)
	case ActionSearch:
		err = b.replySearch(ctx, msg.Chat.ID, cmd.Query)
	case ActionChart:
		err = b.replyChart(ctx, msg.Chat.ID, cmd.Instrument)
	case ActionDigest:
		text := b.Digest(ctx)
		err = b.Sender.SendMessage(ctx, msg.Chat.ID, text)
	}
	if err != nil {
		b.Logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("command failed")
	}
}

func (b *Bot) replyQuote(ctx context.Context, chatID int64, in Instrument) error {
	q, err := b.fetchOne(ctx, in)
	if err != nil {
		return b.sendLookupError(ctx, chatID, in.Label, err)
	}
	return b.Sender.SendMessage(ctx, chatID, FormatQuote(in.Label, q))
}

func (b *Bot) replySearch(ctx context.Context, chatID int64, query string) error {
	if b.Search == nil {
		return b.Sender.SendMessage(ctx, chatID, "검색을 지원하지 않습니다.")
	}
	q, err := b.Search.Search(ctx, query)
	if err != nil {
		return b.sendLookupError(ctx, chatID, query, err)
	}
	return b.Sender.SendMessage(ctx, chatID, FormatQuote("", q))
}

func (b *Bot) replyChart(ctx context.Context, chatID int64, in Instrument) error {
	if b.Charts == nil {
		return b.Sender.SendMessage(ctx, chatID, "차트를 지원하지 않습니다.")
	}
	closes, err := b.Charts.Series(ctx, in.Symbol)
	if err != nil {
		return b.sendLookupError(ctx, chatID, in.Label, err)
	}
	if len(closes) == 0 {
		return b.sendLookupError(ctx, chatID, in.Label, quote.ErrSymbolNotFound)
	}
	u, err := ChartURL(b.ChartCfg, in.Label, closes)
	if err != nil {
		return fmt.Errorf("build chart url: %w", err)
	}
	return b.Sender.SendPhoto(ctx, chatID, u, FormatQuote(in.Label, quote.Quote{
		Value:     closes[len(closes)-1],
		Change:    closes[len(closes)-1] - closes[0],
		ChangePct: pctChange(closes),
		Direction: quote.DirectionFromDelta(closes[len(closes)-1] - closes[0]),
	}))
}

func pctChange(closes []float64) float64 {
	if len(closes) < 2 || closes[0] == 0 {
		return 0
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0] * 100
}

func (b *Bot) sendLookupError(ctx context.Context, chatID int64, what string, err error) error {
	msg := fmt.Sprintf("'%s' 조회에 실패했어요. 잠시 후 다시 시도해 주세요.", what)
	if errors.Is(err, quote.ErrSymbolNotFound) {
		msg = fmt.Sprintf("'%s' 종목을 찾을 수 없어요.", what)
	}
	b.Logger.Warn().Err(err).Str("instrument", what).Msg("lookup failed")
	return b.Sender.SendMessage(ctx, chatID, msg)
}

// Quote resolves one instrument through its source fetcher.
func (b *Bot) Quote(ctx context.Context, in Instrument) (quote.Quote, error) {
	return b.fetchOne(ctx, in)
}

// fetchOne resolves one instrument through its source fetcher.
func (b *Bot) fetchOne(ctx context.Context, in Instrument) (quote.Quote, error) {
	f := b.fetcherFor(in.Source)
	if f == nil {
		return quote.Quote{}, fmt.Errorf("no fetcher for %s", in.Symbol)
	}
	qs, err := f.Fetch(ctx, []string{in.Symbol})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(qs) == 0 {
		return quote.Quote{}, quote.ErrSymbolNotFound
	}
	return qs[0], nil
}

// Digest fetches the standing instrument set concurrently and renders the
// digest message. A failing source degrades to a footer note instead of
// failing the whole digest.
func (b *Bot) Digest(ctx context.Context) string {
	ins := b.Instruments
	if len(ins) == 0 {
		ins = DigestInstruments()
	}
	lines := make([]string, len(ins))
	failedAt := make([]bool, len(ins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	var mu sync.Mutex
	for i, in := range ins {
		g.Go(func() error {
			q, err := b.fetchOne(gctx, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.Logger.Warn().Err(err).Str("instrument", in.Label).Msg("digest lookup failed")
				failedAt[i] = true
				return nil
			}
			lines[i] = FormatQuote(in.Label, q)
			return nil
		})
	}
	_ = g.Wait()

	var ok []string
	var failed []string
	for i, in := range ins {
		if failedAt[i] {
			failed = append(failed, in.Label)
			continue
		}
		ok = append(ok, lines[i])
	}
	title := b.DigestTitle
	if title == "" {
		title = "오늘의 시황"
	}
	return FormatDigest(title, ok, failed)
}

// Broadcast sends the digest to every configured chat.
func (b *Bot) Broadcast(ctx context.Context, chatIDs []int64) {
	if len(chatIDs) == 0 {
		return
	}
	text := b.Digest(ctx)
	for _, id := range chatIDs {
		if err := b.Sender.SendMessage(ctx, id, text); err != nil {
			b.Logger.Error().Err(err).Int64("chat_id", id).Msg("digest delivery failed")
			continue
		}
		b.Logger.Info().Int64("chat_id", id).Msg("digest delivered")
	}
}
