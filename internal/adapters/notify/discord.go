package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"oregrid/internal/domain"
)

// Discord embed colors.
const (
	colorBlue    = 3447003
	colorGreen   = 3066993
	colorRed     = 15158332
	colorOrange  = 15105570
	colorDarkRed = 10038562
	colorGold    = 15844367
	colorPurple  = 9807270
)

// Discord posts events as webhook embeds. Warnings and errors go to the warn
// webhook, session statistics to the stats webhook, everything else to the
// main one. Empty URLs silently disable the corresponding channel.
type Discord struct {
	http            *http.Client
	webhookURL      string
	statsWebhookURL string
	warnWebhookURL  string
}

// NewDiscord builds a webhook notifier.
func NewDiscord(webhookURL, statsWebhookURL, warnWebhookURL string) *Discord {
	return &Discord{
		http:            &http.Client{Timeout: 10 * time.Second},
		webhookURL:      webhookURL,
		statsWebhookURL: statsWebhookURL,
		warnWebhookURL:  warnWebhookURL,
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Color       int          `json:"color"`
	Description string       `json:"description,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

func (d *Discord) NotifyBet(ctx context.Context, e domain.BetEvent) error {
	return d.send(ctx, d.webhookURL, embed{
		Title: "🎲 New Bet Placed",
		Color: colorBlue,
		Fields: []embedField{
			{Name: "Round", Value: fmt.Sprintf("#%d", e.RoundID), Inline: true},
			{Name: "Blocks", Value: fmt.Sprintf("%v", e.Squares), Inline: true},
			{Name: "Bet per Block", Value: formatSol(e.BetPerBlock), Inline: true},
			{Name: "Total Bet", Value: formatSol(e.TotalBet), Inline: true},
			{Name: "Consecutive Losses", Value: fmt.Sprintf("%d", e.ConsecutiveLosses), Inline: true},
		},
	})
}

func (d *Discord) NotifyWin(ctx context.Context, e domain.WinEvent) error {
	return d.send(ctx, d.webhookURL, embed{
		Title: "✅ WIN!",
		Color: colorGreen,
		Fields: []embedField{
			{Name: "Round", Value: fmt.Sprintf("#%d", e.RoundID), Inline: true},
			{Name: "Winning Block", Value: fmt.Sprintf("%d", e.WinningSquare), Inline: true},
			{Name: "ORE Reward", Value: formatOre(e.OreEarned), Inline: true},
			{Name: "SOL Reward", Value: formatSol(e.SolEarned), Inline: true},
			{Name: "Net Profit", Value: formatSolSigned(e.NetProfit), Inline: true},
		},
	})
}

func (d *Discord) NotifyLoss(ctx context.Context, e domain.LossEvent) error {
	return d.send(ctx, d.webhookURL, embed{
		Title: "❌ Loss",
		Color: colorRed,
		Fields: []embedField{
			{Name: "Round", Value: fmt.Sprintf("#%d", e.RoundID), Inline: true},
			{Name: "Winning Block", Value: fmt.Sprintf("%d", e.WinningSquare), Inline: true},
			{Name: "Consecutive Losses", Value: fmt.Sprintf("%d", e.ConsecutiveLosses), Inline: true},
			{Name: "Next Bet", Value: formatSol(e.NextBet) + " per block", Inline: true},
		},
	})
}

func (d *Discord) NotifyWarning(ctx context.Context, e domain.WarningEvent) error {
	return d.send(ctx, d.warnWebhookURL, embed{
		Title: "⚠️ Warning: High Consecutive Losses",
		Color: colorOrange,
		Fields: []embedField{
			{Name: "Consecutive Losses", Value: fmt.Sprintf("%d/%d", e.ConsecutiveLosses, e.MaxConsecutiveLosses), Inline: true},
			{Name: "Current Bet", Value: formatSol(e.CurrentBet) + " per block", Inline: true},
			{Name: "Status", Value: "Approaching max loss limit!", Inline: false},
		},
	})
}

func (d *Discord) NotifyClaim(ctx context.Context, e domain.ClaimEvent) error {
	return d.send(ctx, d.webhookURL, embed{
		Title: "💰 SOL Claimed",
		Color: colorGold,
		Fields: []embedField{
			{Name: "Claimed Amount", Value: formatSol(e.Amount), Inline: true},
			{Name: "New Balance", Value: formatSol(e.NewBalance), Inline: true},
		},
	})
}

func (d *Discord) NotifyStats(ctx context.Context, s domain.Stats) error {
	return d.send(ctx, d.statsWebhookURL, embed{
		Title: "📊 Bot Statistics",
		Color: colorPurple,
		Fields: []embedField{
			{Name: "Total Rounds", Value: fmt.Sprintf("%d", s.TotalRounds), Inline: true},
			{Name: "Wins", Value: fmt.Sprintf("%d", s.WinCount), Inline: true},
			{Name: "Losses", Value: fmt.Sprintf("%d", s.LossCount), Inline: true},
			{Name: "Win Rate", Value: fmt.Sprintf("%.2f%%", s.WinRate), Inline: true},
			{Name: "Total ORE Earned", Value: formatOre(s.TotalEarnedOre), Inline: true},
			{Name: "Net Profit", Value: formatSolSigned(s.NetProfit), Inline: true},
		},
	})
}

func (d *Discord) NotifyError(ctx context.Context, msg string) error {
	return d.send(ctx, d.warnWebhookURL, embed{
		Title:       "🚨 Error",
		Color:       colorDarkRed,
		Description: msg,
	})
}

// send posts one embed to a webhook. A missing URL is a no-op so operators
// can configure only the channels they care about.
func (d *Discord) send(ctx context.Context, url string, e embed) error {
	if url == "" {
		return nil
	}
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(map[string][]embed{"embeds": {e}})
	if err != nil {
		return fmt.Errorf("notify.Discord: marshal embed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.Discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify.Discord: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify.Discord: webhook status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
