package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
)

const maxOverdraftDays = 31

var (
	monthNameRe = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?[ \t]+(?:\d{1,2}(?:st|nd|rd|th)?,?[ \t]+)?(\d{4})\b`)
	usDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	// Groups: open paren, leading minus, dollar sign, number, close paren, trailing minus.
	currencyRe = regexp.MustCompile(`(\()?(-)?(\$)?[ \t]?(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+\.\d{2}|\d+)\b(\))?(-)?`)

	nsfRe         = regexp.MustCompile(`(?i)\b(?:nsf|insufficient funds|non-sufficient funds|returned item|returned check)\b`)
	feeRe         = regexp.MustCompile(`(?i)\b(?:fee|charge)s?\b`)
	balanceLineRe = regexp.MustCompile(`(?i)\b(?:opening|beginning|closing|ending|starting)[ \t]+balance\b`)
	depositRe     = regexp.MustCompile(`(?i)\b(?:deposit|credit|transfer in|payroll|refund|interest paid|incoming)\b`)
	withdrawalRe  = regexp.MustCompile(`(?i)\b(?:withdrawal|debit|check|cheque|payment|purchase|fee|atm|pos|transfer out|outgoing)\b`)

	accountNumberRe = regexp.MustCompile(`(?im)account[ \t]*(?:number|no\.?|#)[ \t]*:?[ \t]*([X*0-9][X*0-9\-]{3,})`)
	accountTypeRe   = regexp.MustCompile(`(?i)\b(business checking|business savings|money market|checking|savings)\b`)
	bankLabelRe     = regexp.MustCompile(`(?im)^[ \t]*(?:bank|bank name|financial institution)[ \t]*:[ \t]*(.+?)[ \t]*$`)
	bankLineRe      = regexp.MustCompile(`(?im)^[ \t]*([A-Za-z&.' ]*\b(?:bank|credit union|bancorp)\b[A-Za-z&.' ]*)$`)
	periodRe        = regexp.MustCompile(`(?i)(?:statement period|period|from)[ \t]*:?[ \t]*(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|[a-z]{3,9}\.?[ \t]+\d{1,2},?[ \t]+\d{4})[ \t]*(?:-|to|through|thru)[ \t]*(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|[a-z]{3,9}\.?[ \t]+\d{1,2},?[ \t]+\d{4})`)
)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

type monthKey struct {
	year  int
	month int
}

func (k monthKey) before(o monthKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.month < o.month
}

// monthTotals is the running state for one month while lines are folded in.
type monthTotals struct {
	balances       []decimal.Decimal
	nsfCount       int
	nsfFees        decimal.Decimal
	overdraftLines int
	transactions   int
	deposits       decimal.Decimal
	withdrawals    decimal.Decimal
}

// statementFold accumulates lines; finalize turns it into immutable per-month records.
type statementFold struct {
	months  map[monthKey]*monthTotals
	current *monthTotals
}

func newStatementFold() *statementFold {
	return &statementFold{months: map[monthKey]*monthTotals{}}
}

// ParseStatement folds statement text line by line into chronologically sorted months.
func ParseStatement(text string) []models.MonthlyBankStats {
	fold := newStatementFold()
	for line := range strings.Lines(text) {
		fold.step(line)
	}
	return fold.finalize()
}

func (f *statementFold) step(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if key, ok := findMonth(line); ok {
		t, exists := f.months[key]
		if !exists {
			t = &monthTotals{}
			f.months[key] = t
		}
		f.current = t
	}
	if f.current == nil {
		return
	}

	amounts := currencyTokens(line)
	isNSF := nsfRe.MatchString(line)
	if isNSF {
		f.current.nsfCount++
		if feeRe.MatchString(line) && len(amounts) > 0 {
			f.current.nsfFees = f.current.nsfFees.Add(amounts[0].Abs())
		}
	}
	if len(amounts) == 0 {
		return
	}

	balanceLine := balanceLineRe.MatchString(line)
	if balanceLine || len(amounts) >= 2 {
		balance := amounts[len(amounts)-1]
		f.current.balances = append(f.current.balances, balance)
		if balance.IsNegative() {
			f.current.overdraftLines++
		}
	}
	if balanceLine {
		return
	}

	f.current.transactions++
	amount := amounts[0]
	switch {
	case depositRe.MatchString(line) && !withdrawalRe.MatchString(line):
		f.current.deposits = f.current.deposits.Add(amount.Abs())
	case withdrawalRe.MatchString(line) || isNSF:
		f.current.withdrawals = f.current.withdrawals.Add(amount.Abs())
	case amount.IsNegative():
		f.current.withdrawals = f.current.withdrawals.Add(amount.Abs())
	default:
		f.current.deposits = f.current.deposits.Add(amount)
	}
}

func (f *statementFold) finalize() []models.MonthlyBankStats {
	keys := make([]monthKey, 0, len(f.months))
	for k := range f.months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].before(keys[j]) })

	stats := make([]models.MonthlyBankStats, 0, len(keys))
	for _, k := range keys {
		t := f.months[k]
		m := models.MonthlyBankStats{
			Month:            k.month,
			Year:             k.year,
			NSFCount:         t.nsfCount,
			NSFFees:          t.nsfFees.InexactFloat64(),
			OverdraftDays:    min(t.overdraftLines, maxOverdraftDays),
			TransactionCount: t.transactions,
			TotalDeposits:    t.deposits.InexactFloat64(),
			TotalWithdrawals: t.withdrawals.InexactFloat64(),
		}
		if n := len(t.balances); n > 0 {
			lo, hi, sum := t.balances[0], t.balances[0], decimal.Zero
			for _, b := range t.balances {
				lo = decimal.Min(lo, b)
				hi = decimal.Max(hi, b)
				sum = sum.Add(b)
			}
			m.OpeningBalance = t.balances[0].InexactFloat64()
			m.ClosingBalance = t.balances[n-1].InexactFloat64()
			m.MinBalance = lo.InexactFloat64()
			m.MaxBalance = hi.InexactFloat64()
			m.AverageBalance = sum.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
		}
		stats = append(stats, m)
	}
	return stats
}

// findMonth returns the earliest month/year token on the line.
func findMonth(line string) (monthKey, bool) {
	best := -1
	var key monthKey

	consider := func(idx int, year, month int) {
		if month < 1 || month > 12 || year < 1900 || year > 2100 {
			return
		}
		if best == -1 || idx < best {
			best = idx
			key = monthKey{year: year, month: month}
		}
	}

	if m := monthNameRe.FindStringSubmatchIndex(line); m != nil {
		name := strings.ToLower(line[m[2]:m[3]])
		year, _ := strconv.Atoi(line[m[4]:m[5]])
		consider(m[0], year, monthNumbers[name[:3]])
	}
	if m := usDateRe.FindStringSubmatchIndex(line); m != nil {
		month, _ := strconv.Atoi(line[m[2]:m[3]])
		year, _ := strconv.Atoi(line[m[6]:m[7]])
		consider(m[0], year, month)
	}
	if m := isoDateRe.FindStringSubmatchIndex(line); m != nil {
		year, _ := strconv.Atoi(line[m[2]:m[3]])
		month, _ := strconv.Atoi(line[m[4]:m[5]])
		consider(m[0], year, month)
	}

	return key, best >= 0
}

// currencyTokens returns the currency-shaped amounts on a line in order. Bare integers
// without a dollar sign, decimals or thousands separators are ignored.
func currencyTokens(line string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range currencyRe.FindAllStringSubmatch(line, -1) {
		num := m[4]
		if m[3] != "$" && !strings.ContainsAny(num, ".,") {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(num, ",", ""))
		if err != nil {
			continue
		}
		if m[2] == "-" || m[6] == "-" || (m[1] == "(" && m[5] == ")") {
			d = d.Neg()
		}
		out = append(out, d)
	}
	return out
}

// ParseStatementMetadata reads account and period details with anchored patterns.
func ParseStatementMetadata(text string) models.StatementMetadata {
	var meta models.StatementMetadata

	if m := accountNumberRe.FindStringSubmatch(text); m != nil {
		meta.AccountNumber = strings.TrimRight(m[1], "-")
	}
	if m := accountTypeRe.FindStringSubmatch(text); m != nil {
		meta.AccountType = strings.ToLower(m[1])
	}
	if m := bankLabelRe.FindStringSubmatch(text); m != nil {
		meta.BankName = m[1]
	} else if m := bankLineRe.FindStringSubmatch(text); m != nil {
		meta.BankName = strings.TrimSpace(m[1])
	}
	if m := periodRe.FindStringSubmatch(text); m != nil {
		meta.PeriodStart = strings.TrimSpace(m[1])
		meta.PeriodEnd = strings.TrimSpace(m[2])
	}

	return meta
}
