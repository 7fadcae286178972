package tablecheck

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
)

// ratingTolerance 评分与准确率换算结果允许的误差
const ratingTolerance = 0.05

var disclaimerHints = []string{
	"disclaimer",
	"not financial advice",
	"not investment advice",
	"personal research",
	"professional advice",
	"own research",
}

// AnalystRow 表一的一行
type AnalystRow struct {
	Analyst    string  `validate:"required"`
	Firm       string  `validate:"required"`
	Accuracy   float64 `validate:"gte=0,lte=100"`
	Stock      string  `validate:"required"`
	Prediction string  `validate:"required"`
	Date       string  `validate:"required"`
}

// RatingRow 表二的一行
type RatingRow struct {
	Analyst string  `validate:"required"`
	Rating  float64 `validate:"gte=0,lte=10"`
}

var (
	parser   = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	validate = validator.New()
)

// Check 检查财务分析是否满足两张表加免责声明的格式
// 表一每行的 Tentative Date 必须晚于 asOf 当天
func Check(markdown string, asOf time.Time) model.ContractStatus {
	status := model.ContractStatus{Checked: true}
	issue := func(format string, args ...interface{}) {
		status.Issues = append(status.Issues, fmt.Sprintf(format, args...))
	}

	source := []byte(markdown)
	doc := parser.Parse(text.NewReader(source))

	analystTable, ratingTable := findTables(doc, source)
	if analystTable == nil {
		issue("analyst table not found")
	}
	if ratingTable == nil {
		issue("rating table not found")
	}
	if analystTable == nil || ratingTable == nil {
		return status
	}

	analysts := parseAnalystRows(analystTable, source, issue)
	checkDates(analysts, truncateDay(asOf), issue)
	if len(analysts) < prompt.MinAnalystRows {
		issue("analyst table has %d rows, want at least %d", len(analysts), prompt.MinAnalystRows)
	}
	ratings := parseRatingRows(ratingTable, source, issue)

	accuracy := make(map[string]float64, len(analysts))
	for _, row := range analysts {
		accuracy[normalizeName(row.Analyst)] = row.Accuracy
	}
	if len(ratings) != len(analysts) {
		issue("rating table has %d rows, analyst table has %d", len(ratings), len(analysts))
	}
	for _, row := range ratings {
		acc, ok := accuracy[normalizeName(row.Analyst)]
		if !ok {
			issue("analyst %q in rating table is missing from analyst table", row.Analyst)
			continue
		}
		want := prompt.RatingFromAccuracy(acc)
		if math.Abs(row.Rating-want) > ratingTolerance {
			issue("rating for %s is %.1f, want %.1f", row.Analyst, row.Rating, want)
		}
	}

	if !hasDisclaimer(ratingTable, source) {
		issue("disclaimer not found after tables")
	}

	status.Valid = len(status.Issues) == 0
	return status
}

// findTables 返回第一张表头匹配的表一和其后第一张匹配的表二
func findTables(doc ast.Node, source []byte) (analyst, rating *east.Table) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		table, ok := n.(*east.Table)
		if !ok {
			return ast.WalkContinue, nil
		}
		header := headerCells(table, source)
		switch {
		case analyst == nil && sameColumns(header, prompt.AnalystColumns):
			analyst = table
		case analyst != nil && rating == nil && sameColumns(header, prompt.RatingColumns):
			rating = table
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	return analyst, rating
}

func parseAnalystRows(table *east.Table, source []byte, issue func(string, ...interface{})) []AnalystRow {
	var rows []AnalystRow
	for i, cells := range bodyRows(table, source) {
		if len(cells) < len(prompt.AnalystColumns) {
			issue("analyst row %d has %d cells", i+1, len(cells))
			continue
		}
		acc, err := parseNumber(cells[2])
		if err != nil {
			issue("analyst row %d: invalid accuracy %q", i+1, cells[2])
			continue
		}
		row := AnalystRow{
			Analyst:    cells[0],
			Firm:       cells[1],
			Accuracy:   acc,
			Stock:      cells[3],
			Prediction: cells[4],
			Date:       cells[5],
		}
		if err := validate.Struct(row); err != nil {
			issue("analyst row %d: %v", i+1, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func checkDates(rows []AnalystRow, asOf time.Time, issue func(string, ...interface{})) {
	for _, row := range rows {
		end, err := PeriodEnd(row.Date)
		if err != nil {
			issue("analyst %s: unrecognized tentative date %q", row.Analyst, row.Date)
			continue
		}
		if !end.After(asOf) {
			issue("analyst %s: tentative date %q is not after %s", row.Analyst, row.Date, asOf.Format(time.DateOnly))
		}
	}
}

func parseRatingRows(table *east.Table, source []byte, issue func(string, ...interface{})) []RatingRow {
	var rows []RatingRow
	for i, cells := range bodyRows(table, source) {
		if len(cells) < len(prompt.RatingColumns) {
			issue("rating row %d has %d cells", i+1, len(cells))
			continue
		}
		rating, err := parseNumber(cells[1])
		if err != nil {
			issue("rating row %d: invalid rating %q", i+1, cells[1])
			continue
		}
		row := RatingRow{Analyst: cells[0], Rating: rating}
		if err := validate.Struct(row); err != nil {
			issue("rating row %d: %v", i+1, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func headerCells(table *east.Table, source []byte) []string {
	for n := table.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*east.TableHeader); ok {
			return cellTexts(h, source)
		}
	}
	return nil
}

func bodyRows(table *east.Table, source []byte) [][]string {
	var rows [][]string
	for n := table.FirstChild(); n != nil; n = n.NextSibling() {
		if r, ok := n.(*east.TableRow); ok {
			rows = append(rows, cellTexts(r, source))
		}
	}
	return rows
}

func cellTexts(row ast.Node, source []byte) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, strings.TrimSpace(nodeText(c, source)))
	}
	return cells
}

// nodeText 拼接节点下所有文本
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return false
		}
	}
	return true
}

// parseNumber 解析 "87%"、"8.7"、"87 %" 之类的数值
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return strconv.ParseFloat(s, 64)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func hasDisclaimer(after ast.Node, source []byte) bool {
	for n := after.NextSibling(); n != nil; n = n.NextSibling() {
		body := strings.ToLower(nodeText(n, source))
		for _, hint := range disclaimerHints {
			if strings.Contains(body, hint) {
				return true
			}
		}
	}
	return false
}
