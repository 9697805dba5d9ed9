package simulation

import "fmt"

func mark(pass bool) string {
	if pass {
		return "○"
	}
	return "×"
}

// SummaryLines renders r as report lines. A nil result renders the
// not-runnable notice.
func SummaryLines(r *Result) []string {
	if r == nil {
		return []string{"", "【投資シミュレーション】", "シミュレーション実行不可（データ不足）"}
	}

	p, m, d := r.Params, r.Metrics, r.Decision
	lines := []string{
		"",
		"【投資シミュレーション結果】",
		fmt.Sprintf("総投資額: %s円（購入価格 %s円 + 諸費用 %s円）", yen(p.TotalPurchaseCost), yen(p.PurchasePrice), yen(p.PurchaseExpenses)),
		fmt.Sprintf("借入: %s円（LTV %s）/ 自己資金: %s円", yen(p.LoanAmount), wholePercent(p.LTV), yen(p.Equity)),
		fmt.Sprintf("金利: %s / 期間: %d年 / ADS: %s円/年", percent(p.InterestRate), p.LoanTermYears, yen(p.ADS)),
		"",
		"【投資指標】",
		fmt.Sprintf("表面利回り: %s（参考値）", percent(m.GrossYield)),
		fmt.Sprintf("FCR（総収益率）: %s  %s", percent(m.FCR), mark(d.Criterion(CriterionFCRvsK).Pass)),
		fmt.Sprintf("K%%（ローン定数）: %s", percent(m.KPercent)),
		fmt.Sprintf("CCR（自己資本配当率）: %s  %s", percent(m.CCR), mark(d.Criterion(CriterionCCRvsFCR).Pass)),
		fmt.Sprintf("レバレッジ分析: %s", m.Leverage),
		fmt.Sprintf("DCR（借入償還余裕率）: %.2f  %s", m.DCR, mark(d.Criterion(CriterionDCR).Pass)),
		fmt.Sprintf("BER（損益分岐入居率）: %s  %s", percent(m.BER), mark(d.Criterion(CriterionBER).Pass)),
	}

	if m.IRR != nil {
		lines = append(lines, fmt.Sprintf("IRR（内部収益率）: %s  %s", percent(*m.IRR), mark(d.Criterion(CriterionIRR).Pass)))
	} else {
		lines = append(lines, "IRR（内部収益率）: 計算不可  ×")
	}
	if m.NPV != nil {
		lines = append(lines, fmt.Sprintf("NPV（正味現在価値）: %s円  %s", yen(*m.NPV), mark(d.Criterion(CriterionNPV).Pass)))
	} else {
		lines = append(lines, "NPV（正味現在価値）: 計算不可  ×")
	}

	lines = append(lines, "", fmt.Sprintf("総合判定: %s（%d/%d項目クリア）", d.Recommendation, d.PassCount, d.TotalCount))

	if len(r.Warnings) > 0 {
		lines = append(lines, "", "※ 注意事項:")
		for _, w := range r.Warnings {
			lines = append(lines, "  - "+w)
		}
	}
	return lines
}
