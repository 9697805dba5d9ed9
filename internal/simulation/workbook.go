package simulation

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SheetOverview  = "投資概要"
	SheetCashflows = "年次キャッシュフロー"
	SheetSale      = "売却シミュレーション"

	// XLSXMimeType is the content type of the generated workbook.
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	yenFormat = "#,##0"
	pctFormat = "0.00%"
	dcrFormat = "0.00"
)

// CashflowHeaders are the column headers of the cash-flow sheet.
var CashflowHeaders = []string{"年度", "GPI", "空室損", "EGI", "OPEX", "NOI", "ADS", "BTCFo"}

// FileName returns the workbook filename for a property.
func FileName(number, station string) string {
	return fmt.Sprintf("投資シミュレーション_%s_%s.xlsx", number, station)
}

type styles struct {
	title, section, header, label, yen, pct, dcr, text, pass, fail, total, evenYen int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	yenFmt, pctFmt, dcrFmt := yenFormat, pctFormat, dcrFormat
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	s := &styles{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&s.section, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}},
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
			Fill:      fill("4472C4"),
			Border:    border,
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
		{&s.label, &excelize.Style{Border: border}},
		{&s.yen, &excelize.Style{Border: border, CustomNumFmt: &yenFmt}},
		{&s.pct, &excelize.Style{Border: border, CustomNumFmt: &pctFmt}},
		{&s.dcr, &excelize.Style{Border: border, CustomNumFmt: &dcrFmt}},
		{&s.text, &excelize.Style{Border: border}},
		{&s.pass, &excelize.Style{Border: border, Fill: fill("C6EFCE")}},
		{&s.fail, &excelize.Style{Border: border, Fill: fill("FFC7CE")}},
		{&s.total, &excelize.Style{Border: border, Font: &excelize.Font{Bold: true}, CustomNumFmt: &yenFmt}},
		{&s.evenYen, &excelize.Style{Border: border, Fill: fill("D9E2F3"), CustomNumFmt: &yenFmt}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create workbook style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

// sheetWriter writes cells to one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		w.err = w.f.SetCellStyle(w.sheet, cell, cell, style)
	}
}

func (w *sheetWriter) width(col string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(w.sheet, col, col, width)
}

// Workbook renders r as a three-sheet workbook: overview, annual cash flows
// and sale simulation.
func Workbook(r *Result, number, station string, now time.Time) (*excelize.File, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no simulation result", ErrInvalidInput)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetCashflows, SheetSale} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for _, write := range []func(*excelize.File, *styles, *Result, string, string, time.Time) error{
		writeOverview, writeCashflows, writeSale,
	} {
		if err := write(f, st, r, number, station, now); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
	}
	return f, nil
}

// WorkbookBytes renders the workbook and serializes it.
func WorkbookBytes(r *Result, number, station string, now time.Time) ([]byte, error) {
	f, err := Workbook(r, number, station, now)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOverview(f *excelize.File, st *styles, r *Result, number, station string, now time.Time) error {
	w := &sheetWriter{f: f, sheet: SheetOverview}
	p, m, d := r.Params, r.Metrics, r.Decision

	w.width("A", 25)
	w.width("B", 20)
	w.width("C", 15)

	row := 1
	w.set(1, row, "投資シミュレーション", st.title)
	row++
	w.set(1, row, fmt.Sprintf("物件番号: %s  駅: %s", number, station), 0)
	row++
	w.set(1, row, "作成日: "+now.Format("2006-01-02"), 0)
	row += 2

	w.set(1, row, "投資パラメータ", st.section)
	row++
	params := []struct {
		label string
		value any
		style int
	}{
		{"購入価格", p.PurchasePrice, st.yen},
		{fmt.Sprintf("諸費用（%s）", wholePercent(DefaultPurchaseExpenseRate)), p.PurchaseExpenses, st.yen},
		{"総投資額", p.TotalPurchaseCost, st.yen},
		{fmt.Sprintf("借入額（LTV %s）", wholePercent(p.LTV)), p.LoanAmount, st.yen},
		{"自己資金", p.Equity, st.yen},
		{"金利", p.InterestRate, st.pct},
		{"借入期間", fmt.Sprintf("%d年", p.LoanTermYears), st.text},
		{"月額返済額", p.MonthlyPayment, st.yen},
		{"年間返済額（ADS）", p.ADS, st.yen},
		{"空室率", p.VacancyRate, st.pct},
		{"賃料下落率（年率）", p.RentDeclineRate, st.pct},
		{"保有期間", fmt.Sprintf("%d年", p.HoldingPeriod), st.text},
		{"期待収益率（割引率）", p.ExpectedReturn, st.pct},
		{"満室想定賃料（月額）", p.MonthlyRent, st.yen},
		{"満室想定賃料（年額）", p.AnnualRent, st.yen},
	}
	for _, pr := range params {
		w.set(1, row, pr.label, st.label)
		w.set(2, row, pr.value, pr.style)
		row++
	}
	row++

	w.set(1, row, "投資指標", st.section)
	row++
	for col, h := range []string{"指標", "算出値", "判定"} {
		w.set(col+1, row, h, st.header)
	}
	row++

	optional := func(v *float64) any {
		if v == nil {
			return "計算不可"
		}
		return *v
	}
	metrics := []struct {
		label     string
		value     any
		style     int
		criterion string
	}{
		{"表面利回り", m.GrossYield, st.pct, ""},
		{"FCR（総収益率）", m.FCR, st.pct, CriterionFCRvsK},
		{"K%（ローン定数）", m.KPercent, st.pct, ""},
		{"CCR（自己資本配当率）", m.CCR, st.pct, CriterionCCRvsFCR},
		{"レバレッジ分析", m.Leverage, st.text, ""},
		{"DCR（借入償還余裕率）", m.DCR, st.dcr, CriterionDCR},
		{"BER（損益分岐入居率）", m.BER, st.pct, CriterionBER},
		{"IRR（内部収益率）", optional(m.IRR), st.pct, CriterionIRR},
		{"NPV（正味現在価値）", optional(m.NPV), st.yen, CriterionNPV},
	}
	for _, mr := range metrics {
		w.set(1, row, mr.label, st.label)
		style := mr.style
		if _, ok := mr.value.(string); ok {
			style = st.text
		}
		w.set(2, row, mr.value, style)
		if mr.criterion != "" {
			if d.Criterion(mr.criterion).Pass {
				w.set(3, row, "○ PASS", st.pass)
			} else {
				w.set(3, row, "× FAIL", st.fail)
			}
		}
		row++
	}
	row++

	w.set(1, row, "総合判定", st.section)
	verdict := st.fail
	if d.AllPass {
		verdict = st.pass
	}
	w.set(2, row, fmt.Sprintf("%s（%d/%d項目クリア）", d.Recommendation, d.PassCount, d.TotalCount), verdict)
	return w.err
}

func writeCashflows(f *excelize.File, st *styles, r *Result, _, _ string, _ time.Time) error {
	w := &sheetWriter{f: f, sheet: SheetCashflows}

	w.width("A", 8)
	for _, col := range []string{"B", "C", "D", "E", "F", "G", "H"} {
		w.width(col, 18)
	}
	for col, h := range CashflowHeaders {
		w.set(col+1, 1, h, st.header)
	}

	var totals [7]float64
	for i, cf := range r.Cashflows {
		row := i + 2
		style := st.yen
		if i%2 == 1 {
			style = st.evenYen
		}
		w.set(1, row, cf.Year, st.label)
		values := []float64{cf.GPI, cf.VacancyLoss, cf.EGI, cf.OPEX, cf.NOI, cf.ADS, cf.BTCFo}
		for j, v := range values {
			w.set(j+2, row, v, style)
			totals[j] += v
		}
	}

	totalRow := len(r.Cashflows) + 2
	w.set(1, totalRow, "合計", st.total)
	for j, v := range totals {
		w.set(j+2, totalRow, v, st.total)
	}

	if w.err != nil {
		return w.err
	}
	return f.SetPanes(SheetCashflows, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSale(f *excelize.File, st *styles, r *Result, _, _ string, _ time.Time) error {
	w := &sheetWriter{f: f, sheet: SheetSale}
	p, sale, cfs := r.Params, r.Sale, r.Cashflows

	w.width("A", 25)
	w.width("B", 20)

	row := 1
	w.set(1, row, "売却シミュレーション", st.title)
	row += 2

	var finalNOI float64
	if len(cfs) > 0 {
		finalNOI = cfs[len(cfs)-1].NOI
	}
	rows := []struct {
		label string
		value any
		style int
	}{
		{"保有期間", fmt.Sprintf("%d年", p.HoldingPeriod), st.text},
		{"出口キャップレート", p.ExitCapRate, st.pct},
		{"最終年NOI", finalNOI, st.yen},
		{"売却想定価格", sale.Price, st.yen},
		{fmt.Sprintf("売却諸費用（%s）", wholePercent(DefaultSaleExpenseRate)), sale.Expenses, st.yen},
		{"残債", sale.LoanBalance, st.yen},
		{"売却手取り", sale.NetProceeds, st.yen},
	}
	for _, sr := range rows {
		w.set(1, row, sr.label, st.label)
		w.set(2, row, sr.value, sr.style)
		row++
	}
	row++

	w.set(1, row, "IRR計算用キャッシュフロー", st.section)
	row++
	w.set(1, row, "年度", st.header)
	w.set(2, row, "キャッシュフロー", st.header)
	row++

	for i, v := range EquityCashflows(cfs, p.Equity, sale) {
		label := fmt.Sprintf("%d", i)
		switch {
		case i == 0:
			label = "0（初期投資）"
		case i == len(cfs):
			label += "（売却含む）"
		}
		w.set(1, row, label, st.label)
		w.set(2, row, v, st.yen)
		row++
	}
	return w.err
}
