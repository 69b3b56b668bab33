package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/ranker"
)

const playerMatchLimit = 10

// FPLMetrics is the subset of the FPL bootstrap-static payload player_stats
// surfaces (original_source/src/scripts/update_premier_league_data.py's
// fetch_fpl_data, element fields).
type FPLMetrics struct {
	Position        string
	NowCost         float64 // in millions, e.g. 7.5
	TotalPoints     int
	Form            string
	SelectedByPct   string
}

// FPLClient resolves fantasy-league metrics for a player by name. The
// default implementation hits the public bootstrap-static endpoint;
// PlayerStatsTool degrades to "fantasy metrics unavailable" on any error
// rather than failing the tool call, per spec.md §4.6's fail-soft tools.
type FPLClient interface {
	PlayerMetrics(ctx context.Context, name string) (FPLMetrics, error)
}

var fplPositions = map[int]string{
	1: "Goalkeeper",
	2: "Defender",
	3: "Midfielder",
	4: "Forward",
}

type bootstrapElement struct {
	FirstName       string  `json:"first_name"`
	SecondName      string  `json:"second_name"`
	ElementType     int     `json:"element_type"`
	NowCost         int     `json:"now_cost"` // tenths of a million
	TotalPoints     int     `json:"total_points"`
	Form            string  `json:"form"`
	SelectedByPct   string  `json:"selected_by_percent"`
}

type bootstrapStatic struct {
	Elements []bootstrapElement `json:"elements"`
}

// httpFPLClient fetches bootstrap-static once per call. It is intentionally
// simple: player_stats is called rarely enough relative to news_search that
// a per-request fetch with the standard client timeout is acceptable.
type httpFPLClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFPLClient builds an FPLClient against baseURL (e.g.
// "https://fantasy.premierleague.com/api").
func NewHTTPFPLClient(baseURL string, client *http.Client) FPLClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &httpFPLClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *httpFPLClient) PlayerMetrics(ctx context.Context, name string) (FPLMetrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bootstrap-static/", nil)
	if err != nil {
		return FPLMetrics{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return FPLMetrics{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return FPLMetrics{}, fmt.Errorf("fpl api returned %d", resp.StatusCode)
	}

	var data bootstrapStatic
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return FPLMetrics{}, err
	}

	needle := strings.ToLower(name)
	for _, el := range data.Elements {
		full := strings.ToLower(el.FirstName + " " + el.SecondName)
		if strings.Contains(full, needle) {
			return FPLMetrics{
				Position:      fplPositions[el.ElementType],
				NowCost:       float64(el.NowCost) / 10,
				TotalPoints:   el.TotalPoints,
				Form:          el.Form,
				SelectedByPct: el.SelectedByPct,
			}, nil
		}
	}
	return FPLMetrics{}, fmt.Errorf("no fpl entry for %q", name)
}

// PlayerStatsTool is the player_stats tool: resolves a name against the
// relational article store, disambiguates on multiple matches, and on a
// single match enriches with optional fantasy metrics and the two most
// recent related news hits (spec.md §4.6).
type PlayerStatsTool struct {
	articles articles.Store
	news     *NewsSearchTool
	fpl      FPLClient // nil disables fantasy-metric enrichment
}

// NewPlayerStatsTool builds the player_stats tool. fpl may be nil, in which
// case fantasy metrics are reported as unavailable.
func NewPlayerStatsTool(articleStore articles.Store, news *NewsSearchTool, fpl FPLClient) *PlayerStatsTool {
	return &PlayerStatsTool{articles: articleStore, news: news, fpl: fpl}
}

func (t *PlayerStatsTool) Name() string     { return "player_stats" }
func (t *PlayerStatsTool) ParamName() string { return "name" }
func (t *PlayerStatsTool) Description() string {
	return "Look up a player's recent news, biography, and fantasy football metrics by name."
}

func (t *PlayerStatsTool) Execute(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "player_stats requires a non-empty name"
	}

	matches, err := t.articles.SearchByTitleSubstring(ctx, name, playerMatchLimit)
	if err != nil {
		return fmt.Sprintf("player_stats failed: %v", err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("no information found for %q", name)
	}

	distinct := distinctTitles(matches)
	if len(distinct) > 1 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "multiple matches for %q, please narrow the query:\n", name)
		for i, title := range distinct {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	return t.profile(ctx, name, matches)
}

// distinctTitles collapses repeat title strings, preserving first-seen
// order, up to the match limit already applied by SearchByTitleSubstring.
func distinctTitles(matches []articles.Article) []string {
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, a := range matches {
		if seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		out = append(out, a.Title)
	}
	return out
}

func (t *PlayerStatsTool) profile(ctx context.Context, name string, matches []articles.Article) string {
	latest := matches[0]

	var sb strings.Builder
	fmt.Fprintf(&sb, "Player: %s\n", name)
	fmt.Fprintf(&sb, "Most recent mention: %s (%s)\n", latest.Title, latest.Source)

	sb.WriteString(fplSection(t.fpl, ctx, name))

	sb.WriteString("Recent news:\n")
	sb.WriteString(t.recentNews(ctx, name))
	return strings.TrimRight(sb.String(), "\n")
}

func fplSection(client FPLClient, ctx context.Context, name string) string {
	if client == nil {
		return "Fantasy metrics: unavailable\n"
	}
	metrics, err := client.PlayerMetrics(ctx, name)
	if err != nil {
		return "Fantasy metrics: unavailable\n"
	}
	return fmt.Sprintf("Fantasy metrics: position=%s price=£%sm points=%d form=%s selected_by=%s%%\n",
		metrics.Position, strconv.FormatFloat(metrics.NowCost, 'f', 1, 64),
		metrics.TotalPoints, metrics.Form, metrics.SelectedByPct)
}

const playerNewsTopK = 2

// recentNews runs the shared news_search pipeline at a reduced top-k for
// the "most recent 2 news hits via C8" requirement.
func (t *PlayerStatsTool) recentNews(ctx context.Context, name string) string {
	if t.news == nil {
		return "(news lookup unavailable)"
	}
	candidates, err := t.news.candidates(ctx, name)
	if err != nil {
		return "(news lookup unavailable)"
	}
	if len(candidates) == 0 {
		return "(no recent news found)"
	}
	ranked := t.news.ranker.Rank(name, candidates, ranker.StrategyHybrid, playerNewsTopK)
	return formatCandidates(ranked)
}
