package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ketankauntia/gsoc-orgs/internal/align"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/pkg/anthropic"
	"github.com/ketankauntia/gsoc-orgs/pkg/anthropic/mocks"
)

func reply(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 3},
	}
}

func promptFor(name string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && strings.HasPrefix(req.Messages[0].Content, "Scraped name: "+name+"\n")
	})
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		text   string
		want   Verdict
		reason string
	}{
		{"SAME", VerdictSame, ""},
		{"Different\nThe years do not overlap.", VerdictDifferent, "The years do not overlap."},
		{"  unsure  ", VerdictUnsure, ""},
		{"I think these are the same organization.", VerdictSame, ""},
		{"no idea", VerdictUnsure, "no idea"},
		{"", VerdictUnsure, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, reason := ParseVerdict(tt.text)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestItems(t *testing.T) {
	merged := []model.Organization{
		{Name: "Kodi", YearsAppeared: []int{2016}},
		{Name: "Kodi Media Center", YearsAppeared: []int{2017, 2015}},
	}
	aligned := model.Organization{Name: "Kodi", YearsAppeared: []int{2015, 2016, 2017}}
	res := &align.Result{
		Outcomes: []align.Outcome{
			{Status: align.StatusMatched, Authoritative: "Kodi", Record: &aligned},
			{Status: align.StatusMissing, Authoritative: "GNOME"},
		},
		Review: []align.Match{{Name: "Kodi Media Center", Authoritative: "Kodi", Method: align.MethodFuzzy, Score: 0.9}},
	}
	auth := []model.AuthoritativeOrg{{Name: "Kodi", Years: map[string]model.AuthoritativeYear{"2016": {}, "2018": {}}}}

	items := Items(res, merged, auth)
	require.Len(t, items, 1)
	assert.Equal(t, []int{2015, 2017}, items[0].RecordYears, "years of the reviewed record only")
	assert.Equal(t, []int{2016, 2018}, items[0].AuthoritativeYears)
}

func TestReview(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, promptFor("Kodi Media Center")).Return(reply("SAME"), nil).Once()
	client.On("CreateMessage", mock.Anything, promptFor("Debian")).Return(reply("DIFFERENT\nUnrelated projects."), nil).Once()
	client.On("CreateMessage", mock.Anything, promptFor("Foo")).Return(nil, errors.New("overloaded")).Once()

	r := New(client, Options{MaxConcurrent: 2})
	items := []Item{
		{Match: align.Match{Name: "Kodi Media Center", Authoritative: "Kodi", Score: 0.9}},
		{Match: align.Match{Name: "Debian", Authoritative: "PEcAn", Score: 0.89}},
		{Match: align.Match{Name: "Foo", Authoritative: "FooBar", Score: 0.88}},
	}
	ds, err := r.Review(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, ds, 3)

	assert.Equal(t, VerdictSame, ds[0].Verdict)
	assert.Equal(t, VerdictDifferent, ds[1].Verdict)
	assert.Equal(t, "Unrelated projects.", ds[1].Reason)
	assert.Equal(t, VerdictUnsure, ds[2].Verdict)
	assert.Contains(t, ds[2].Error, "overloaded")

	assert.Equal(t, map[Verdict]int{VerdictSame: 1, VerdictDifferent: 1, VerdictUnsure: 1}, Counts(ds))
}

func TestReview_RequestShape(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "test-model" &&
			req.Temperature != nil && *req.Temperature == 0 &&
			len(req.System) == 1 && req.System[0].CacheControl != nil
	})).Return(reply("unsure"), nil).Once()

	r := New(client, Options{Model: "test-model"})
	ds, err := r.Review(context.Background(), []Item{{Match: align.Match{Name: "A", Authoritative: "B"}}})
	require.NoError(t, err)
	assert.Equal(t, VerdictUnsure, ds[0].Verdict)
}

func TestReview_Empty(t *testing.T) {
	r := New(mocks.NewMockClient(t), Options{})
	ds, err := r.Review(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestReview_Cancelled(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, context.Canceled).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(client, Options{}).Review(ctx, []Item{{}, {}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompt(t *testing.T) {
	p := Prompt(Item{
		Match:              align.Match{Name: "Kodi Media Center", Authoritative: "Kodi", Score: 0.91234},
		RecordYears:        []int{2016},
		AuthoritativeYears: []int{2016, 2017},
	})
	assert.Equal(t, "Scraped name: Kodi Media Center\nScraped years: [2016]\nOfficial name: Kodi\nOfficial years: [2016 2017]\nSimilarity: 0.912", p)
}
