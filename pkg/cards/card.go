// Package cards defines card records and merges per-source records into a
// canonical catalog.
//
// A card number is not unique across rarities: the same number is printed as
// a normal card and as special (SP) variants. Merge keeps every record and
// marks exactly one of them per card number as canonical, preferring a
// normal-rarity record over an SP one.
package cards

import "strings"

// SpecialMarker is the rarity substring that marks a special variant.
const SpecialMarker = "SP"

// Card is one record as produced by the collector. Missing fields are empty
// strings. Source names the collector source the record came from.
type Card struct {
	CardNumber       string `json:"cardNumber"       yaml:"card_number"`
	Name             string `json:"name"             yaml:"name"`
	Rarity           string `json:"rarity"           yaml:"rarity"`
	Type             string `json:"type"             yaml:"type"`
	Color            string `json:"color"            yaml:"color"`
	CostLifeType     string `json:"costLifeType"     yaml:"cost_life_type"`
	CostLifeValue    string `json:"costLifeValue"    yaml:"cost_life_value"`
	Power            string `json:"power"            yaml:"power"`
	Counter          string `json:"counter"          yaml:"counter"`
	Attribute        string `json:"attribute"        yaml:"attribute"`
	Features         string `json:"features"         yaml:"features"`
	Block            string `json:"block"            yaml:"block"`
	EffectText       string `json:"effectText"       yaml:"effect_text"`
	Trigger          string `json:"trigger"          yaml:"trigger"`
	SetInfo          string `json:"setInfo"          yaml:"set_info"`
	ImageFileID      string `json:"imageFileId"      yaml:"image_file_id"`
	ImageFileIDSmall string `json:"imageFileIdSmall" yaml:"image_file_id_small"`
	Source           string `json:"source,omitempty" yaml:"source,omitempty"`
}

// IsSpecial reports whether the card's rarity carries the special marker.
func (c Card) IsSpecial() bool {
	return strings.Contains(c.Rarity, SpecialMarker)
}

// priorityRank orders normal variants before special ones.
func (c Card) priorityRank() int {
	if c.IsSpecial() {
		return 1
	}
	return 0
}

// CollectorHeader is the column order written by the collector.
var CollectorHeader = []string{
	"CardID", "Name", "Rarity", "Type", "Color", "Cost_Life_Type", "Cost_Life_Value",
	"Power", "Counter", "Attribute", "Feature", "Block", "Text", "Trigger", "SetInfo",
	"ImageFileID", "ImageFileID_small",
}

// fieldPointers maps collector column names and camelCase record names to
// the matching field of c.
func fieldPointers(c *Card) map[string]*string {
	return map[string]*string{
		"CardID":            &c.CardNumber,
		"cardNumber":        &c.CardNumber,
		"Name":              &c.Name,
		"name":              &c.Name,
		"Rarity":            &c.Rarity,
		"rarity":            &c.Rarity,
		"Type":              &c.Type,
		"type":              &c.Type,
		"Color":             &c.Color,
		"color":             &c.Color,
		"Cost_Life_Type":    &c.CostLifeType,
		"costLifeType":      &c.CostLifeType,
		"Cost_Life_Value":   &c.CostLifeValue,
		"costLifeValue":     &c.CostLifeValue,
		"Power":             &c.Power,
		"power":             &c.Power,
		"Counter":           &c.Counter,
		"counter":           &c.Counter,
		"Attribute":         &c.Attribute,
		"attribute":         &c.Attribute,
		"Feature":           &c.Features,
		"features":          &c.Features,
		"Block":             &c.Block,
		"block":             &c.Block,
		"Text":              &c.EffectText,
		"effectText":        &c.EffectText,
		"Trigger":           &c.Trigger,
		"trigger":           &c.Trigger,
		"SetInfo":           &c.SetInfo,
		"setInfo":           &c.SetInfo,
		"ImageFileID":       &c.ImageFileID,
		"imageFileId":       &c.ImageFileID,
		"ImageFileID_small": &c.ImageFileIDSmall,
		"imageFileIdSmall":  &c.ImageFileIDSmall,
	}
}

// Row returns the card's values in CollectorHeader order.
func (c Card) Row() []string {
	return []string{
		c.CardNumber, c.Name, c.Rarity, c.Type, c.Color, c.CostLifeType, c.CostLifeValue,
		c.Power, c.Counter, c.Attribute, c.Features, c.Block, c.EffectText, c.Trigger,
		c.SetInfo, c.ImageFileID, c.ImageFileIDSmall,
	}
}

// FromRow builds a card from values in CollectorHeader order. Short rows
// leave the remaining fields empty.
func FromRow(row []string, source string) Card {
	return FromFields(CollectorHeader, row, source)
}

// FromFields builds a card from parallel header and value slices. Unknown
// headers are ignored and values are trimmed of surrounding whitespace.
func FromFields(header, row []string, source string) Card {
	c := Card{Source: source}
	fields := fieldPointers(&c)
	for i, name := range header {
		if i >= len(row) {
			break
		}
		if p, ok := fields[strings.TrimSpace(name)]; ok {
			*p = strings.TrimSpace(row[i])
		}
	}
	return c
}
