package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cell is one table cell as the KBO web services return it; Text may hold HTML
type cell struct {
	Text    string `json:"Text"`
	Class   string `json:"Class"`
	RowSpan string `json:"RowSpan"`
}

type row struct {
	Row []cell `json:"row"`
}

type table struct {
	Headers []row `json:"headers"`
	Rows    []row `json:"rows"`
}

// scheduleListResponse is the GetScheduleList payload
type scheduleListResponse struct {
	Rows []row  `json:"rows"`
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type hitterTables struct {
	Table1 string `json:"table1"` // order, position, name
	Table2 string `json:"table2"` // per-inning results
	Table3 string `json:"table3"` // at-bats, hits, RBI, runs
}

type pitcherTables struct {
	Table string `json:"table"`
}

// boxScoreResponse is the GetBoxScoreScroll payload; tables arrive as JSON strings
type boxScoreResponse struct {
	Code     string          `json:"code"`
	Msg      string          `json:"msg"`
	Stadium  string          `json:"S_NM"`
	Crowd    string          `json:"CROWD_CN"`
	Start    string          `json:"START_TM"`
	End      string          `json:"END_TM"`
	UseTime  string          `json:"USE_TM"`
	Table1   string          `json:"table1"` // team names
	Table2   string          `json:"table2"` // innings
	Table3   string          `json:"table3"` // R H E B
	TableEtc string          `json:"tableEtc"`
	Hitters  []hitterTables  `json:"arrHitter"`
	Pitchers []pitcherTables `json:"arrPitcher"`
}

// decodeTable unmarshals an embedded table, an empty string yields an empty table
func decodeTable(raw string) (table, error) {
	var t table
	if strings.TrimSpace(raw) == "" {
		return t, nil
	}
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return t, fmt.Errorf("failed to decode table: %w", err)
	}
	return t, nil
}

// headerIndex maps header labels to column positions using the last header row
func (t table) headerIndex() map[string]int {
	idx := make(map[string]int)
	if len(t.Headers) == 0 {
		return idx
	}
	for i, c := range t.Headers[len(t.Headers)-1].Row {
		idx[text(c.Text)] = i
	}
	return idx
}

// text strips markup from a cell and collapses whitespace
func text(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// fragment parses a cell's HTML for selector queries
func fragment(html string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &goquery.Selection{}
	}
	return doc.Selection
}

func cellText(r row, i int) string {
	if i < 0 || i >= len(r.Row) {
		return ""
	}
	return text(r.Row[i].Text)
}
