package cards

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/agentstation/cardmap/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeResult is the outcome of decoding one collector source.
type DecodeResult struct {
	Cards   []Card
	Skipped int
	// Problems describes each skipped record.
	Problems []string
}

func (r *DecodeResult) skip(format string, args ...any) {
	r.Skipped++
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// DecodeCSV reads collector CSV output. The first row is the header and an
// optional UTF-8 byte order mark is ignored. Rows without a card number and
// rows that cannot be parsed are skipped and counted.
func DecodeCSV(r io.Reader, source string) (*DecodeResult, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &DecodeResult{}, nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", source, err)
	}

	result := &DecodeResult{}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.skip("row %d: %v", line, err)
			continue
		}
		card := FromFields(header, row, source)
		if card.CardNumber == "" {
			result.skip("row %d: missing card number", line)
			continue
		}
		result.Cards = append(result.Cards, card)
	}
	return result, nil
}

// DecodeJSON reads a JSON array of objects keyed by collector column names
// or camelCase record names. Non-object elements and objects without a card
// number are skipped and counted.
func DecodeJSON(r io.Reader, source string) (*DecodeResult, error) {
	var raw []json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.WrapParse("json", source, err)
	}

	result := &DecodeResult{}
	for i, msg := range raw {
		var obj map[string]any
		if err := json.Unmarshal(msg, &obj); err != nil || obj == nil {
			result.skip("element %d: not an object", i)
			continue
		}

		header := objectKeys(obj)
		row := make([]string, 0, len(header))
		for _, k := range header {
			row = append(row, stringValue(obj[k]))
		}
		card := FromFields(header, row, source)
		if card.CardNumber == "" {
			result.skip("element %d: missing card number", i)
			continue
		}
		result.Cards = append(result.Cards, card)
	}
	return result, nil
}

// objectKeys returns the keys of obj in a fixed order: other keys sorted,
// then collector column names in CollectorHeader order, so a collector
// name wins over its camelCase alias.
func objectKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if !slices.Contains(CollectorHeader, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range CollectorHeader {
		if _, ok := obj[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// EncodeCSV writes cards in the collector layout with a UTF-8 byte order mark.
func EncodeCSV(w io.Writer, cards []Card) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CollectorHeader); err != nil {
		return err
	}
	for _, c := range cards {
		if err := cw.Write(c.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
