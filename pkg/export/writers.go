package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/cardmap/pkg/cards"
)

// DuplicateMark is the duplicate flag value in the merged table.
const DuplicateMark = "重複"

// TableHeader is the merged table layout of the original spreadsheet.
var TableHeader = []string{
	"カード番号", "カード名", "フリガナ", "レアリティ", "種類", "色",
	"コスト/ライフ種別", "コスト/ライフ値", "パワー", "カウンター", "属性",
	"特徴", "ブロック", "効果テキスト", "トリガー", "入手情報",
	"重複フラグ", "ImageFileID", "ImageFileID_small",
}

// TableRows returns every catalog entry, duplicates included, in
// TableHeader order.
func TableRows(catalog *cards.Catalog, dict Lookup) [][]string {
	rows := make([][]string, 0, catalog.Len())
	for _, e := range catalog.Entries {
		reading, _ := dict.Get(e.Name)
		flag := ""
		if e.Duplicate {
			flag = DuplicateMark
		}
		rows = append(rows, []string{
			e.CardNumber, e.Name, reading, e.Rarity, e.Type, e.Color,
			e.CostLifeType, e.CostLifeValue, e.Power, e.Counter, e.Attribute,
			e.Features, e.Block, e.EffectText, e.Trigger, e.SetInfo,
			flag, e.ImageFileID, e.ImageFileIDSmall,
		})
	}
	return rows
}

// WriteJSON writes documents as an indented UTF-8 JSON array.
func WriteJSON(w io.Writer, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// WriteCSV writes the merged table with a UTF-8 byte order mark so that
// spreadsheet applications detect the encoding.
func WriteCSV(w io.Writer, catalog *cards.Catalog, dict Lookup) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(TableRows(catalog, dict)); err != nil {
		return err
	}
	return cw.Error()
}

// SheetName is the worksheet holding the merged table.
const SheetName = "Cards"

// WriteXLSX writes the merged table as a single-sheet workbook.
func WriteXLSX(w io.Writer, catalog *cards.Catalog, dict Lookup) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	for i, h := range TableHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	for r, row := range TableRows(catalog, dict) {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 12) // card number
	_ = f.SetColWidth(SheetName, "B", "C", 28) // name, reading
	_ = f.SetColWidth(SheetName, "L", "L", 30) // features
	_ = f.SetColWidth(SheetName, "N", "N", 60) // effect text
	_ = f.SetColWidth(SheetName, "P", "P", 40) // acquisition info

	_, err := f.WriteTo(w)
	return err
}
