package normalize

import (
	"testing"

	"kbodata/internal/server/scraper"
	"kbodata/internal/server/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestScoreboardExample(t *testing.T) {
	rows := []scraper.Record{{
		"r": 4, "h": 8, "e": 1, "b": 3,
		"year": 2025, "month": 9, "day": 1, "week": "월",
	}}

	got := Scoreboard(rows, "20250901OBLG0")

	want := []storage.ScoreboardRecord{{
		MatchCode: "20250901OBLG0",
		Run:       ptr(int64(4)),
		Hit:       ptr(int64(8)),
		Err:       ptr(int64(1)),
		Balls:     ptr(int64(3)),
		MatchDate: ptr("2025-09-01"),
		MatchDay:  ptr("월"),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scoreboard mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreboardMatchDate(t *testing.T) {
	testCases := []struct {
		name string
		row  scraper.Record
		want *string
	}{
		{name: "ints", row: scraper.Record{"year": 2025, "month": 3, "day": 22}, want: ptr("2025-03-22")},
		{name: "strings", row: scraper.Record{"year": "2025", "month": "10", "day": "5"}, want: ptr("2025-10-05")},
		{name: "floats", row: scraper.Record{"year": 2024.0, "month": 7.0, "day": 9.0}, want: ptr("2024-07-09")},
		{name: "missing day", row: scraper.Record{"year": 2025, "month": 9}},
		{name: "missing all", row: scraper.Record{"r": 1}},
		{name: "placeholder", row: scraper.Record{"year": 2025, "month": "-", "day": 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Scoreboard([]scraper.Record{tc.row}, "X")
			require.Len(t, got, 1)
			require.Equal(t, tc.want, got[0].MatchDate)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	require.Empty(t, Scoreboard(nil, "X"))
	require.Empty(t, Scoreboard([]scraper.Record{}, "X"))
	require.Empty(t, GameInfo(nil, "X"))
	require.Empty(t, GameInfo(scraper.Record{}, "X"))
	require.Empty(t, Batters(nil, "X"))
	require.Empty(t, Pitchers([]scraper.Record{}, "X"))
	require.Empty(t, Schedule(nil, 2025))
}

func TestPlaceholderIsNull(t *testing.T) {
	batters := Batters([]scraper.Record{{
		"idx": 0, "name": "정수빈", "i_1": "-", "i_2": "1", "i_10": "-", "hit": "-", "bat_num": "4",
	}}, "X")
	require.Len(t, batters, 1)

	b := batters[0]
	require.Nil(t, b.Innings[0])
	require.Equal(t, int64(1), *b.Innings[1])
	require.Nil(t, b.Innings[9])
	require.Nil(t, b.Hit)
	require.Equal(t, int64(4), *b.BatNum)
	require.Equal(t, "정수빈", *b.PlayerName)

	scoreboard := Scoreboard([]scraper.Record{{"r": "-", "i_9": "-", "i_1": 0}}, "X")
	require.Nil(t, scoreboard[0].Run)
	require.Nil(t, scoreboard[0].Innings[8])
	// zero stays zero
	require.Equal(t, int64(0), *scoreboard[0].Innings[0])
}

func TestGameInfo(t *testing.T) {
	info := scraper.Record{
		LabelStadium: "잠실",
		LabelCrowd:   "23,750",
		LabelHomeRun: []any{"박동원12호(4회2점 곽빈)", "오스틴30호(6회1점 이영하)"},
		LabelSB:      []string{"정수빈", "", "박해민"},
		LabelGWRBI:   "오지환(1회 2사 2루서 우중간 2루타)",
	}

	got := GameInfo(info, "20250901OBLG0")
	require.Len(t, got, 1)

	g := got[0]
	require.Equal(t, "20250901OBLG0", g.MatchCode)
	require.Equal(t, "23750", *g.Crowd)
	require.Equal(t, "박동원12호(4회2점 곽빈), 오스틴30호(6회1점 이영하)", *g.HomeRun)
	require.Equal(t, "정수빈, 박해민", *g.SB)
	require.Equal(t, "잠실", *g.Stadium)
	require.Nil(t, g.Referee)
	require.Nil(t, g.WildPitch)
}

func TestPitchers(t *testing.T) {
	got := Pitchers([]scraper.Record{
		{"idx": 0, "name": "곽빈", "team": "두산", "mound": 1, "inning": "5 2/3", "result": "패", "strikeout": "6", "earnedrun": "5"},
		{"idx": 1, "name": "이영하", "team": "두산", "mound": "2", "inning": "⅓", "result": "", "strikeout": "-"},
	}, "20250901OBLG0")
	require.Len(t, got, 2)

	require.InDelta(t, 5.6667, *got[0].Inning, 0.001)
	require.Equal(t, int64(1), *got[0].Mound)
	require.Equal(t, "패", *got[0].Result)
	require.Equal(t, int64(5), *got[0].EarnedRun)
	require.Nil(t, got[0].HomeRun)

	require.InDelta(t, 0.3333, *got[1].Inning, 0.001)
	require.Equal(t, int64(2), *got[1].Mound)
	require.Nil(t, got[1].Result)
	require.Nil(t, got[1].Strikeout)
}

func TestSchedule(t *testing.T) {
	got := Schedule([]scraper.ScheduleEntry{{
		Status: scraper.StatusFinished, Date: "2025-09-01", Home: "LG", Away: "두산", DBHeader: "0", GameID: "20250901OBLG0",
	}}, 2025)

	want := []storage.ScheduleRecord{{
		MatchStatus: scraper.StatusFinished, MatchDate: "2025-09-01", Home: "LG", Away: "두산", DBHeader: "0", GameID: "20250901OBLG0", Year: 2025,
	}}
	require.Equal(t, want, got)
}

func TestCoercion(t *testing.T) {
	require.Nil(t, Int("abc"))
	require.Nil(t, Int(2.5))
	require.Nil(t, Int(""))
	require.Equal(t, int64(23750), *Int("23,750"))
	require.Equal(t, int64(7), *Int(" 7 "))

	require.Nil(t, Float("-"))
	require.Nil(t, Float("a/b"))
	require.InDelta(t, 6.6667, *Float("6⅔"), 0.001)
	require.Equal(t, 7.0, *Float("7"))

	require.Nil(t, Text(""))
	require.Nil(t, Text([]any{}))
	require.Equal(t, "3", *Text(3))
}
