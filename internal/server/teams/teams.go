// Package teams maps KBO franchise names, codes and home stadiums.
package teams

import (
	"sort"
	"strings"
)

// Every name a franchise has played under, keyed to its franchise code
var nameToCode = map[string]string{
	"OB":  "OB",
	"두산":  "OB",
	"삼성":  "SS",
	"MBC": "LG",
	"LG":  "LG",
	"해태":  "HT",
	"KIA": "HT",
	"롯데":  "LT",
	"삼미":  "HD",
	"청보":  "HD",
	"태평양": "HD",
	"현대":  "HD",
	"빙그레": "HH",
	"한화":  "HH",
	"쌍방울": "SB",
	"SK":  "SK",
	"SSG": "SK",
	"우리":  "WO",
	"넥센":  "WO",
	"키움":  "WO",
	"NC":  "NC",
	"KT":  "KT",
}

// Current (or final) name of each franchise
var codeToName = map[string]string{
	"OB": "두산",
	"SS": "삼성",
	"LG": "LG",
	"HT": "KIA",
	"LT": "롯데",
	"HD": "현대",
	"HH": "한화",
	"SB": "쌍방울",
	"SK": "SSG",
	"WO": "키움",
	"NC": "NC",
	"KT": "KT",
}

var homeStadium = map[string]string{
	"롯데":  "부산 사직 야구장",
	"NC":  "창원NC파크",
	"SSG": "인천SSG랜더스필드",
	"삼성":  "대구삼성라이온즈파크",
	"두산":  "서울종합운동장 야구장(잠실)",
	"LG":  "서울종합운동장 야구장(잠실)",
	"키움":  "고척스카이돔",
	"한화":  "대전 한화생명 이글스파크",
	"KIA": "광주기아챔피언스필드",
	"KT":  "수원KT위즈파크",
}

// Short stadium names in match order; the first contained key wins
var stadiumShort = []struct{ short, full string }{
	{"사직", "부산 사직 야구장"},
	{"부산", "부산 사직 야구장"},
	{"창원", "창원NC파크"},
	{"마산", "창원NC파크"},
	{"문학", "인천SSG랜더스필드"},
	{"인천", "인천SSG랜더스필드"},
	{"대구", "대구삼성라이온즈파크"},
	{"잠실", "서울종합운동장 야구장(잠실)"},
	{"서울", "서울종합운동장 야구장(잠실)"},
	{"고척", "고척스카이돔"},
	{"대전", "대전 한화생명 이글스파크"},
	{"광주", "광주기아챔피언스필드"},
	{"수원", "수원KT위즈파크"},
}

// CodeToName returns the current name for a franchise code, or the input when unknown
func CodeToName(code string) string {
	if name, ok := codeToName[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return name
	}
	return code
}

// NameToCode returns the franchise code for any historical team name, or the input when unknown
func NameToCode(name string) string {
	if code, ok := nameToCode[strings.TrimSpace(name)]; ok {
		return code
	}
	return name
}

// Resolve accepts a franchise code or any name the franchise played under
func Resolve(team string) (code string, ok bool) {
	team = strings.TrimSpace(team)
	if code, ok := nameToCode[team]; ok {
		return code, true
	}
	if upper := strings.ToUpper(team); codeToName[upper] != "" {
		return upper, true
	}
	return "", false
}

// Names lists every name of a franchise, sorted
func Names(code string) []string {
	var names []string
	for name, c := range nameToCode {
		if c == code {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HomeStadium returns the full name of a team's home stadium, empty when unknown
func HomeStadium(team string) string {
	return homeStadium[strings.TrimSpace(team)]
}

// NormalizeStadium expands a short stadium name such as "잠실" to its full name
func NormalizeStadium(stadium string) string {
	stadium = strings.TrimSpace(stadium)
	if stadium == "" {
		return ""
	}
	for _, full := range homeStadium {
		if full == stadium {
			return stadium
		}
	}
	for _, s := range stadiumShort {
		if strings.Contains(stadium, s.short) {
			return s.full
		}
	}
	return stadium
}

// MatchTeams splits a game id such as 20250901OBLG0 into away and home codes
func MatchTeams(gameID string) (away, home string, ok bool) {
	if len(gameID) < 12 {
		return "", "", false
	}
	return gameID[8:10], gameID[10:12], true
}
