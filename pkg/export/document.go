package export

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstation/cardmap/pkg/cards"
)

// Document is the exported shape of one canonical card. Numeric fields hold
// an int when the source value parses as a number, the original string when
// it does not, and nil when it is empty.
type Document struct {
	UniqueID      string   `json:"uniqueId"`
	CardNumber    string   `json:"cardNumber"`
	CardName      string   `json:"cardName"`
	Furigana      string   `json:"furigana"`
	Rarity        string   `json:"rarity"`
	CardType      string   `json:"cardType"`
	Color         []string `json:"color"`
	CostLifeType  string   `json:"costLifeType"`
	CostLifeValue any      `json:"costLifeValue"`
	Power         any      `json:"power"`
	Counter       any      `json:"counter"`
	Attribute     string   `json:"attribute"`
	Features      []string `json:"features"`
	Block         any      `json:"block"`
	EffectText    string   `json:"effectText"`
	Trigger       string   `json:"trigger"`
	GetInfo       string   `json:"getInfo"`
	SeriesTitle   string   `json:"seriesTitle"`
	SeriesCode    string   `json:"seriesCode"`
	ImageFileID   string   `json:"imageFileId"`
}

var seriesPattern = regexp.MustCompile(`(.*)【(.*)】`)

// SplitSeries splits acquisition info of the form "<title>【<code>】". When
// the pattern does not match, the whole field is the title.
func SplitSeries(info string) (title, code string) {
	info = strings.TrimSpace(info)
	m := seriesPattern.FindStringSubmatch(info)
	if m == nil {
		return info, ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// Number coerces a numeric-looking field. Integers and floats become an
// int (floats are truncated), other text is returned unchanged, and empty
// or "nan" values become nil.
func Number(v string) any {
	s := strings.TrimSpace(v)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return v
	}
	return int(f)
}

// SplitList splits a "/"-separated field, trimming segments and dropping
// empty ones. The result is never nil.
func SplitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, "/") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func project(c cards.Card, uniqueID, furigana string) Document {
	title, code := SplitSeries(c.SetInfo)
	return Document{
		UniqueID:      uniqueID,
		CardNumber:    strings.TrimSpace(c.CardNumber),
		CardName:      strings.TrimSpace(c.Name),
		Furigana:      strings.TrimSpace(furigana),
		Rarity:        strings.TrimSpace(c.Rarity),
		CardType:      strings.TrimSpace(c.Type),
		Color:         SplitList(c.Color),
		CostLifeType:  strings.TrimSpace(c.CostLifeType),
		CostLifeValue: Number(c.CostLifeValue),
		Power:         Number(c.Power),
		Counter:       Number(c.Counter),
		Attribute:     strings.TrimSpace(c.Attribute),
		Features:      SplitList(c.Features),
		Block:         Number(c.Block),
		EffectText:    strings.TrimSpace(c.EffectText),
		Trigger:       strings.TrimSpace(c.Trigger),
		GetInfo:       strings.TrimSpace(c.SetInfo),
		SeriesTitle:   title,
		SeriesCode:    code,
		ImageFileID:   strings.TrimSpace(c.ImageFileID),
	}
}
