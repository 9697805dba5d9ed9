package simulation

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultLTV                 = 0.90
	DefaultInterestRate        = 0.0225
	DefaultLoanTermYears       = 30
	DefaultVacancyRate         = 0.05
	DefaultRentDeclineRate     = 0.005
	DefaultHoldingPeriod       = 10
	DefaultExpectedReturn      = 0.02
	DefaultPurchaseExpenseRate = 0.08
	DefaultOpexRatio           = 0.15
	DefaultExitCapRateSpread   = 0.005
	DefaultSaleExpenseRate     = 0.04

	// MinExitCapRate floors the exit cap rate.
	MinExitCapRate = 0.03

	ThresholdDCR = 1.2
	ThresholdBER = 0.80
)

const (
	RecommendInvest = "投資検討推奨"
	RecommendPass   = "投資見送り推奨"

	LeveragePositive = "Positive"
	LeverageNegative = "Negative"
)

// ErrInvalidInput is returned when the price or rent is missing.
var ErrInvalidInput = errors.New("simulation: invalid input")

// Input is the property data the simulation needs.
type Input struct {
	Price         float64 `json:"price"`
	MonthlyRent   float64 `json:"full_occupancy_rent"`
	ManagementFee float64 `json:"management_fee,omitempty"`
	ReserveFund   float64 `json:"reserve_fund,omitempty"`
	TotalUnits    int     `json:"total_units,omitempty"`
}

// ValidateInputs checks in. A missing price or rent is an error; missing
// optional fields produce warnings.
func ValidateInputs(in Input) ([]string, error) {
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: 購入価格（price）が未設定または不正", ErrInvalidInput)
	}
	if in.MonthlyRent <= 0 {
		return nil, fmt.Errorf("%w: 満室想定賃料（full_occupancy_rent）が未設定または不正", ErrInvalidInput)
	}

	var warnings []string
	if in.ManagementFee <= 0 {
		warnings = append(warnings, "管理費が未抽出のためOPEXは概算率のみで計算")
	}
	if in.ReserveFund <= 0 {
		warnings = append(warnings, "修繕積立金が未抽出のためOPEXは概算率のみで計算")
	}
	if in.TotalUnits <= 0 {
		warnings = append(warnings, "総戸数が未抽出")
	}
	return warnings, nil
}

// LoanPayment returns the monthly level payment for principal.
func LoanPayment(principal, annualRate float64, years int) float64 {
	if principal <= 0 || annualRate <= 0 || years <= 0 {
		return 0
	}
	r := annualRate / 12
	growth := math.Pow(1+r, float64(years*12))
	return principal * r * growth / (growth - 1)
}

// RemainingBalance returns the loan balance after paidMonths payments.
func RemainingBalance(principal, annualRate float64, totalMonths, paidMonths int) float64 {
	if principal <= 0 || annualRate <= 0 {
		return 0
	}
	r := annualRate / 12
	total := math.Pow(1+r, float64(totalMonths))
	paid := math.Pow(1+r, float64(paidMonths))
	return math.Max(principal*(total-paid)/(total-1), 0)
}

// Params are the derived simulation parameters.
type Params struct {
	PurchasePrice     float64 `json:"purchase_price"`
	PurchaseExpenses  float64 `json:"purchase_expenses"`
	TotalPurchaseCost float64 `json:"total_purchase_cost"`
	LoanAmount        float64 `json:"loan_amount"`
	Equity            float64 `json:"equity"`
	LTV               float64 `json:"ltv"`
	InterestRate      float64 `json:"interest_rate"`
	LoanTermYears     int     `json:"loan_term"`
	MonthlyPayment    float64 `json:"monthly_payment"`
	ADS               float64 `json:"ads"`
	VacancyRate       float64 `json:"vacancy_rate"`
	RentDeclineRate   float64 `json:"rent_decline_rate"`
	HoldingPeriod     int     `json:"holding_period"`
	OpexRatio         float64 `json:"opex_ratio"`
	ExitCapRate       float64 `json:"exit_cap_rate"`
	ExpectedReturn    float64 `json:"expected_return"`

	MonthlyRent          float64 `json:"full_occupancy_rent_monthly"`
	AnnualRent           float64 `json:"full_occupancy_rent_annual"`
	ManagementFeeMonthly float64 `json:"management_fee_monthly"`
	ReserveFundMonthly   float64 `json:"reserve_fund_monthly"`
}

// Cashflow is one year of operation.
type Cashflow struct {
	Year        int     `json:"year"`
	GPI         float64 `json:"gpi"`
	VacancyLoss float64 `json:"vacancy_loss"`
	EGI         float64 `json:"egi"`
	OPEX        float64 `json:"opex"`
	NOI         float64 `json:"noi"`
	ADS         float64 `json:"ads"`
	BTCFo       float64 `json:"btcfo"`
}

// AnnualCashflows builds the holding-period cash flows: GPI declines yearly,
// vacancy comes off GPI, OPEX is a share of GPI plus the annual management
// fee and reserve fund, and debt service comes off NOI.
func AnnualCashflows(p Params) []Cashflow {
	fixed := (p.ManagementFeeMonthly + p.ReserveFundMonthly) * 12
	cfs := make([]Cashflow, 0, p.HoldingPeriod)
	for year := 1; year <= p.HoldingPeriod; year++ {
		gpi := p.AnnualRent * math.Pow(1-p.RentDeclineRate, float64(year-1))
		vacancy := gpi * p.VacancyRate
		egi := gpi - vacancy
		opex := gpi*p.OpexRatio + fixed
		noi := egi - opex
		cfs = append(cfs, Cashflow{
			Year:        year,
			GPI:         gpi,
			VacancyLoss: vacancy,
			EGI:         egi,
			OPEX:        opex,
			NOI:         noi,
			ADS:         p.ADS,
			BTCFo:       noi - p.ADS,
		})
	}
	return cfs
}

// Sale is the exit at the end of the holding period.
type Sale struct {
	Price       float64 `json:"sale_price"`
	Expenses    float64 `json:"sale_expenses"`
	LoanBalance float64 `json:"loan_balance"`
	NetProceeds float64 `json:"net_proceeds"`
}

// SaleProceeds values the property at finalNOI / exitCapRate and deducts
// sale expenses and the outstanding loan.
func SaleProceeds(finalNOI, exitCapRate, loanBalance float64) Sale {
	if exitCapRate <= 0 {
		exitCapRate = MinExitCapRate
	}
	price := finalNOI / exitCapRate
	expenses := price * DefaultSaleExpenseRate
	return Sale{
		Price:       price,
		Expenses:    expenses,
		LoanBalance: loanBalance,
		NetProceeds: price - expenses - loanBalance,
	}
}

// Metrics are the investment indicators. IRR and NPV are nil when they
// cannot be computed.
type Metrics struct {
	GrossYield float64  `json:"gross_yield"`
	FCR        float64  `json:"fcr"`
	KPercent   float64  `json:"k_percent"`
	CCR        float64  `json:"ccr"`
	DCR        float64  `json:"dcr"`
	BER        float64  `json:"ber"`
	Leverage   string   `json:"leverage"`
	IRR        *float64 `json:"irr"`
	NPV        *float64 `json:"npv"`
}

// EquityCashflows returns the IRR/NPV series: the equity outlay followed by
// each year's BTCFo, with the net sale proceeds added to the final year.
func EquityCashflows(cfs []Cashflow, equity float64, sale Sale) []float64 {
	series := make([]float64, 0, len(cfs)+1)
	series = append(series, -equity)
	for i, cf := range cfs {
		v := cf.BTCFo
		if i == len(cfs)-1 {
			v += sale.NetProceeds
		}
		series = append(series, v)
	}
	return series
}

// ComputeMetrics derives the indicators from the first year and the equity
// cash-flow series.
func ComputeMetrics(cfs []Cashflow, equity float64, sale Sale, totalCost, loanAmount, ads, discountRate float64) Metrics {
	var m Metrics
	if len(cfs) == 0 {
		return m
	}
	year1 := cfs[0]

	if totalCost > 0 {
		m.FCR = year1.NOI / totalCost
		m.GrossYield = year1.GPI / totalCost
	}
	if loanAmount > 0 {
		m.KPercent = ads / loanAmount
	}
	if equity > 0 {
		m.CCR = year1.BTCFo / equity
	}
	if ads > 0 {
		m.DCR = year1.NOI / ads
	} else {
		m.DCR = math.Inf(1)
	}
	if year1.GPI > 0 {
		m.BER = (year1.OPEX + ads) / year1.GPI
	} else {
		m.BER = 1
	}

	m.Leverage = LeverageNegative
	if m.FCR > m.KPercent {
		m.Leverage = LeveragePositive
	}

	series := EquityCashflows(cfs, equity, sale)
	if irr, ok := IRR(series); ok {
		m.IRR = &irr
	}
	if npv := NPV(discountRate, series); !math.IsNaN(npv) && !math.IsInf(npv, 0) {
		m.NPV = &npv
	}
	return m
}

// Criterion is one pass/fail check of the decision.
type Criterion struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
	Pass   bool   `json:"pass"`
}

// Decision is the overall recommendation.
type Decision struct {
	Criteria       []Criterion `json:"criteria"`
	PassCount      int         `json:"pass_count"`
	TotalCount     int         `json:"total_count"`
	AllPass        bool        `json:"all_pass"`
	Recommendation string      `json:"recommendation"`
}

// Criterion returns the criterion with key, or the zero value.
func (d Decision) Criterion(key string) Criterion {
	for _, c := range d.Criteria {
		if c.Key == key {
			return c
		}
	}
	return Criterion{}
}

// Criterion keys.
const (
	CriterionFCRvsK   = "fcr_vs_k"
	CriterionCCRvsFCR = "ccr_vs_fcr"
	CriterionDCR      = "dcr"
	CriterionBER      = "ber"
	CriterionIRR      = "irr"
	CriterionNPV      = "npv"
)

// Decide evaluates the six criteria. Investment is recommended only when
// all pass.
func Decide(m Metrics) Decision {
	irrDetail := "IRR 計算不可"
	if m.IRR != nil {
		irrDetail = "IRR " + percent(*m.IRR)
	}
	npvDetail := "NPV 計算不可"
	if m.NPV != nil {
		npvDetail = "NPV " + yen(*m.NPV) + "円"
	}

	criteria := []Criterion{
		{
			Key:    CriterionFCRvsK,
			Label:  "FCR > K%",
			Detail: fmt.Sprintf("FCR %s vs K%% %s", percent(m.FCR), percent(m.KPercent)),
			Pass:   m.FCR > m.KPercent,
		},
		{
			Key:    CriterionCCRvsFCR,
			Label:  "CCR > FCR",
			Detail: fmt.Sprintf("CCR %s vs FCR %s", percent(m.CCR), percent(m.FCR)),
			Pass:   m.CCR > m.FCR,
		},
		{
			Key:    CriterionDCR,
			Label:  fmt.Sprintf("DCR >= %.1f", ThresholdDCR),
			Detail: fmt.Sprintf("DCR %.2f", m.DCR),
			Pass:   m.DCR >= ThresholdDCR,
		},
		{
			Key:    CriterionBER,
			Label:  fmt.Sprintf("BER <= %.0f%%", ThresholdBER*100),
			Detail: "BER " + percent(m.BER),
			Pass:   m.BER <= ThresholdBER,
		},
		{
			Key:    CriterionIRR,
			Label:  fmt.Sprintf("IRR > %.1f%%", DefaultExpectedReturn*100),
			Detail: irrDetail,
			Pass:   m.IRR != nil && *m.IRR > DefaultExpectedReturn,
		},
		{
			Key:    CriterionNPV,
			Label:  "NPV > 0",
			Detail: npvDetail,
			Pass:   m.NPV != nil && *m.NPV > 0,
		},
	}

	d := Decision{Criteria: criteria, TotalCount: len(criteria)}
	for _, c := range criteria {
		if c.Pass {
			d.PassCount++
		}
	}
	d.AllPass = d.PassCount == d.TotalCount
	d.Recommendation = RecommendPass
	if d.AllPass {
		d.Recommendation = RecommendInvest
	}
	return d
}

// Result is a complete simulation.
type Result struct {
	Params    Params     `json:"params"`
	Cashflows []Cashflow `json:"cashflows"`
	Sale      Sale       `json:"sale"`
	Metrics   Metrics    `json:"metrics"`
	Decision  Decision   `json:"decision"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Run validates in and runs the simulation with the default assumptions.
func Run(in Input) (*Result, error) {
	warnings, err := ValidateInputs(in)
	if err != nil {
		return nil, err
	}

	p := Params{
		PurchasePrice:        in.Price,
		PurchaseExpenses:     in.Price * DefaultPurchaseExpenseRate,
		LTV:                  DefaultLTV,
		InterestRate:         DefaultInterestRate,
		LoanTermYears:        DefaultLoanTermYears,
		VacancyRate:          DefaultVacancyRate,
		RentDeclineRate:      DefaultRentDeclineRate,
		HoldingPeriod:        DefaultHoldingPeriod,
		OpexRatio:            DefaultOpexRatio,
		ExpectedReturn:       DefaultExpectedReturn,
		MonthlyRent:          in.MonthlyRent,
		AnnualRent:           in.MonthlyRent * 12,
		ManagementFeeMonthly: math.Max(in.ManagementFee, 0),
		ReserveFundMonthly:   math.Max(in.ReserveFund, 0),
	}
	p.TotalPurchaseCost = p.PurchasePrice + p.PurchaseExpenses
	p.LoanAmount = p.PurchasePrice * p.LTV
	p.Equity = p.TotalPurchaseCost - p.LoanAmount
	p.MonthlyPayment = LoanPayment(p.LoanAmount, p.InterestRate, p.LoanTermYears)
	p.ADS = p.MonthlyPayment * 12

	cfs := AnnualCashflows(p)

	entryCap := 0.05
	if p.TotalPurchaseCost > 0 {
		entryCap = cfs[0].NOI / p.TotalPurchaseCost
	}
	p.ExitCapRate = math.Max(entryCap+DefaultExitCapRateSpread, MinExitCapRate)

	balance := RemainingBalance(p.LoanAmount, p.InterestRate, p.LoanTermYears*12, p.HoldingPeriod*12)
	sale := SaleProceeds(cfs[len(cfs)-1].NOI, p.ExitCapRate, balance)

	metrics := ComputeMetrics(cfs, p.Equity, sale, p.TotalPurchaseCost, p.LoanAmount, p.ADS, p.ExpectedReturn)

	return &Result{
		Params:    p,
		Cashflows: cfs,
		Sale:      sale,
		Metrics:   metrics,
		Decision:  Decide(metrics),
		Warnings:  warnings,
	}, nil
}
