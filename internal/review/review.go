// Package review asks a language model whether low-confidence fuzzy
// matches name the same organization. Verdicts are advisory only.
package review

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ketankauntia/gsoc-orgs/internal/align"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/pkg/anthropic"
)

// Verdict is the model's answer for one match.
type Verdict string

const (
	VerdictSame      Verdict = "same"
	VerdictDifferent Verdict = "different"
	VerdictUnsure    Verdict = "unsure"
)

const systemPrompt = `You compare Google Summer of Code organization records.
Given a scraped organization name with the years it appeared and an official organization name with its years, decide whether both refer to the same organization.
Answer with exactly one word on the first line: SAME, DIFFERENT or UNSURE. Optionally add one short sentence of reasoning on the second line.`

// Item is one match to adjudicate.
type Item struct {
	Match              align.Match `json:"match"`
	RecordYears        []int       `json:"record_years"`
	AuthoritativeYears []int       `json:"authoritative_years"`
}

// Decision is the outcome for one item.
type Decision struct {
	Item
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Options tunes a Reviewer.
type Options struct {
	Model         string
	MaxConcurrent int
	MaxTokens     int64
}

// Reviewer adjudicates matches through an anthropic.Client.
type Reviewer struct {
	client anthropic.Client
	opts   Options
}

// New creates a Reviewer.
func New(client anthropic.Client, opts Options) *Reviewer {
	if opts.Model == "" {
		opts.Model = anthropic.DefaultModel
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 128
	}
	return &Reviewer{client: client, opts: opts}
}

// Items builds review items for the review queue of an alignment result.
// Record years come from the merged record that was fuzzy-matched, not
// from the aligned record it was folded into.
func Items(res *align.Result, merged []model.Organization, authoritative []model.AuthoritativeOrg) []Item {
	authYears := make(map[string][]int, len(authoritative))
	for _, a := range authoritative {
		authYears[a.Name] = a.YearSet()
	}
	recYears := make(map[string][]int, len(merged))
	for _, org := range merged {
		if _, ok := recYears[org.Name]; !ok {
			recYears[org.Name] = model.NormalizeYears(org.YearsAppeared)
		}
	}
	items := make([]Item, 0, len(res.Review))
	for _, m := range res.Review {
		items = append(items, Item{
			Match:              m,
			RecordYears:        recYears[m.Name],
			AuthoritativeYears: authYears[m.Authoritative],
		})
	}
	return items
}

// Review adjudicates every item. The first request runs alone to warm
// the prompt cache; the rest run concurrently. A failed request yields
// an unsure decision carrying the error, so Review only fails when ctx
// is cancelled.
func (r *Reviewer) Review(ctx context.Context, items []Item) ([]Decision, error) {
	decisions := make([]Decision, len(items))
	if len(items) == 0 {
		return decisions, nil
	}

	var (
		mu    sync.Mutex
		usage anthropic.TokenUsage
	)
	decide := func(ctx context.Context, i int, primer bool) {
		var (
			resp *anthropic.MessageResponse
			err  error
		)
		req := r.request(items[i])
		if primer {
			resp, err = anthropic.Prime(ctx, r.client, req)
		} else {
			resp, err = r.client.CreateMessage(ctx, req)
		}
		d := Decision{Item: items[i], Verdict: VerdictUnsure}
		if err != nil {
			zap.L().Warn("review request failed",
				zap.String("name", items[i].Match.Name),
				zap.String("authoritative", items[i].Match.Authoritative),
				zap.Error(err))
			d.Error = err.Error()
		} else {
			d.Verdict, d.Reason = ParseVerdict(resp.Text())
			mu.Lock()
			usage = usage.Add(resp.Usage)
			mu.Unlock()
		}
		decisions[i] = d
	}

	decide(ctx, 0, true)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxConcurrent)
	for i := 1; i < len(items); i++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			decide(gctx, i, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "review: cancelled")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "review: cancelled")
	}

	usage.LogCost(r.opts.Model, "review")
	return decisions, nil
}

func (r *Reviewer) request(it Item) anthropic.MessageRequest {
	temp := 0.0
	return anthropic.MessageRequest{
		Model:       r.opts.Model,
		MaxTokens:   r.opts.MaxTokens,
		System:      anthropic.CachedSystem(systemPrompt, ""),
		Messages:    []anthropic.Message{{Role: "user", Content: Prompt(it)}},
		Temperature: &temp,
	}
}

// Prompt renders the user message for an item.
func Prompt(it Item) string {
	return fmt.Sprintf("Scraped name: %s\nScraped years: %v\nOfficial name: %s\nOfficial years: %v\nSimilarity: %.3f",
		it.Match.Name, it.RecordYears, it.Match.Authoritative, it.AuthoritativeYears, it.Match.Score)
}

var verdictRe = regexp.MustCompile(`(?i)\b(same|different|unsure)\b`)

// ParseVerdict extracts the verdict from a model answer. The first
// verdict word wins; anything else is unsure. Text after the first line
// is returned as the reason.
func ParseVerdict(text string) (Verdict, string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	reason := strings.TrimSpace(rest)

	m := verdictRe.FindStringSubmatch(first)
	if m == nil {
		m = verdictRe.FindStringSubmatch(text)
	}
	if m == nil {
		return VerdictUnsure, text
	}
	return Verdict(strings.ToLower(m[1])), reason
}

// Counts tallies decisions by verdict.
func Counts(ds []Decision) map[Verdict]int {
	out := map[Verdict]int{VerdictSame: 0, VerdictDifferent: 0, VerdictUnsure: 0}
	for _, d := range ds {
		out[d.Verdict]++
	}
	return out
}
