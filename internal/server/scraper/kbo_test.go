package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kbodata/internal/server/config"
	"kbodata/internal/server/core"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tableJSON(t *testing.T, headers []string, rows ...[]string) string {
	t.Helper()

	var tbl table
	if headers != nil {
		var h row
		for _, label := range headers {
			h.Row = append(h.Row, cell{Text: label})
		}
		tbl.Headers = []row{h}
	}
	for _, r := range rows {
		var rr row
		for _, v := range r {
			rr.Row = append(rr.Row, cell{Text: v})
		}
		tbl.Rows = append(tbl.Rows, rr)
	}

	b, err := json.Marshal(tbl)
	require.NoError(t, err)
	return string(b)
}

func scheduleFixture() scheduleListResponse {
	return scheduleListResponse{
		Code: "100",
		Rows: []row{
			{Row: []cell{
				{Text: "09.01(월)", Class: "day", RowSpan: "2"},
				{Text: "<b>18:30</b>", Class: "time"},
				{Text: `<span>두산</span><em><span class="lose">2</span><span>vs</span><span class="win">5</span></em><span>LG</span>`, Class: "play"},
				{Text: `<a href="/Schedule/GameCenter/Main.aspx?gameDate=20250901&gameId=20250901OBLG0&section=REVIEW">리뷰</a>`, Class: "relay"},
				{Text: "잠실"},
				{Text: "-"},
			}},
			{Row: []cell{
				{Text: "<b>18:30</b>", Class: "time"},
				{Text: `<span>KIA</span><em><span>vs</span></em><span>삼성</span>`, Class: "play"},
				{Text: `<a href="/Schedule/GameCenter/Main.aspx?gameDate=20250901&gameId=20250901HTSS0&section=PREVIEW">프리뷰</a>`, Class: "relay"},
				{Text: "대구"},
				{Text: "우천취소"},
			}},
			{Row: []cell{
				{Text: "09.02(화)", Class: "day", RowSpan: "1"},
				{Text: "<b>18:30</b>", Class: "time"},
				{Text: `<span>NC</span><em><span>vs</span></em><span>KT</span>`, Class: "play"},
				{Text: `<a href="/Schedule/GameCenter/Main.aspx?gameDate=20250902&gameId=20250902NCKT0&section=PREVIEW">프리뷰</a>`, Class: "relay"},
				{Text: "수원"},
				{Text: "-"},
			}},
		},
	}
}

func boxScoreFixture(t *testing.T) boxScoreResponse {
	return boxScoreResponse{
		Code:    "100",
		Stadium: "잠실",
		Crowd:   "23,750",
		Start:   "18:30",
		End:     "21:41",
		UseTime: "3:11",
		Table1:  tableJSON(t, []string{"팀"}, []string{"두산"}, []string{"LG"}),
		Table2: tableJSON(t, nil,
			[]string{"0", "1", "0", "0", "1", "0", "0", "0", "0", "-", "-", "-"},
			[]string{"2", "0", "0", "3", "0", "0", "0", "0", "-", "-", "-", "-"},
		),
		Table3:   tableJSON(t, []string{"R", "H", "E", "B"}, []string{"2", "7", "1", "3"}, []string{"5", "9", "0", "4"}),
		TableEtc: tableJSON(t, nil, []string{"결승타", "오지환(1회 2사 2루서 우중간 2루타)"}, []string{"홈런", "박동원12호(4회2점 곽빈)"}),
		Hitters: []hitterTables{
			{
				Table1: tableJSON(t, nil, []string{"1", "중", "정수빈"}, []string{"2", "유", "이유찬"}),
				Table2: tableJSON(t, nil, []string{"좌안", "", "삼진"}, []string{"4구", "", "2"}),
				Table3: tableJSON(t, nil, []string{"4", "1", "0", "1"}, []string{"3", "0", "0", "0"}),
			},
			{
				Table1: tableJSON(t, nil, []string{"1", "중", "박해민"}),
				Table2: tableJSON(t, nil, []string{"1", "", "-"}),
				Table3: tableJSON(t, nil, []string{"4", "2", "1", "1"}),
			},
		},
		Pitchers: []pitcherTables{
			{Table: tableJSON(t, []string{"선수명", "등판", "결과", "이닝", "삼진", "실점", "자책"},
				[]string{"곽빈", "선발", "패", "5 2/3", "6", "5", "5"},
				[]string{"TOTAL", "", "", "8", "8", "5", "5"},
			)},
			{Table: tableJSON(t, []string{"선수명", "등판", "결과", "이닝", "삼진", "실점", "자책"},
				[]string{"임찬규", "선발", "승", "7", "5", "2", "2"},
				[]string{"유영찬", "9", "세", "1", "2", "0", "0"},
			)},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(schedulePath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("gameMonth") != "09" {
			json.NewEncoder(w).Encode(scheduleListResponse{Code: "100"})
			return
		}
		json.NewEncoder(w).Encode(scheduleFixture())
	})
	mux.HandleFunc(boxScorePath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "20250901OBLG0", r.Form.Get("gameId"))
		require.Equal(t, "2025", r.Form.Get("seasonId"))
		w.Header().Set("Content-Type", "text/plain")
		json.NewEncoder(w).Encode(boxScoreFixture(t))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *KBOClient {
	return NewKBOClient(config.ScraperConfig{
		BaseURL:   url,
		Timeout:   5 * time.Second,
		UserAgent: "kbodata-test",
	}, zap.NewNop())
}

func TestDailySchedule(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv.URL)

	entries, err := c.DailySchedule(context.Background(), 2025, 9, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, ScheduleEntry{
		Status:   StatusFinished,
		Date:     "2025-09-01",
		Week:     "월",
		Home:     "LG",
		Away:     "두산",
		DBHeader: "0",
		GameID:   "20250901OBLG0",
		Stadium:  "잠실",
	}, entries[0])

	require.Equal(t, StatusCancelled, entries[1].Status)
	require.Equal(t, "삼성", entries[1].Home)
	require.False(t, entries[1].Finished())
}

func TestYearlySchedule(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv.URL)

	entries, err := c.YearlySchedule(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "2025-09-02", entries[2].Date)
	require.Equal(t, StatusScheduled, entries[2].Status)
}

func TestGameData(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv.URL)
	ctx := context.Background()

	entries, err := c.DailySchedule(ctx, 2025, 9, 1)
	require.NoError(t, err)

	games, err := c.GameData(ctx, entries)
	require.NoError(t, err)
	require.Len(t, games, 1)

	g := games[0]
	require.Equal(t, "20250901OBLG0", g.MatchCode)
	require.Len(t, g.Scoreboard, 2)

	away := g.Scoreboard[0]
	require.Equal(t, "두산", away["team"])
	require.Equal(t, "-1", away["result"])
	require.Equal(t, "2", away["r"])
	require.Equal(t, "1", away["i_2"])
	require.Equal(t, "-", away["i_10"])
	require.Equal(t, 2025, away["year"])
	require.Equal(t, 9, away["month"])
	require.Equal(t, 1, away["day"])
	require.Equal(t, "월", away["week"])
	require.Equal(t, "1", g.Scoreboard[1]["result"])

	require.Equal(t, "23,750", g.ETCInfo["관중"])
	require.Equal(t, "잠실", g.ETCInfo["구장"])
	require.Contains(t, g.ETCInfo["결승타"], "오지환")

	batters := g.Batters()
	require.Len(t, batters, 3)
	require.Equal(t, 2, batters[2]["idx"])
	require.Equal(t, "LG", batters[2]["team"])
	require.Equal(t, "박해민", batters[2]["name"])

	pitchers := g.Pitchers()
	require.Len(t, pitchers, 3)
	require.Equal(t, "곽빈", pitchers[0]["name"])
	require.Equal(t, "5 2/3", pitchers[0]["inning"])
	require.Equal(t, 1, pitchers[0]["mound"])
	require.Equal(t, 2, pitchers[2]["idx"])
	require.Equal(t, 2, pitchers[2]["mound"])
}

func TestScrapeErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)
	_, err := c.DailySchedule(context.Background(), 2025, 9, 1)
	require.Error(t, err)
	require.Equal(t, core.KindScrape, core.KindOf(err))
}

func TestDBHeader(t *testing.T) {
	require.Equal(t, "0", dbHeader("20250901OBLG0"))
	require.Equal(t, "2", dbHeader("20250901OBLG2"))
	require.Equal(t, "", dbHeader(""))
	require.Equal(t, "", dbHeader("ABC"))
}
