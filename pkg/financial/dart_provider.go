package financial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"corp-tax-agent-be/internal/entity"

	"github.com/shopspring/decimal"
)

// DartProvider reads single-company financial statements from Open DART.
// Subjects are DART corp codes.
type DartProvider struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

var _ Provider = &DartProvider{}

func NewDartProvider(apiKey, baseURL string) *DartProvider {
	if baseURL == "" {
		baseURL = "https://opendart.fss.or.kr/api"
	}
	return &DartProvider{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type dartResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	List    []dartAccount `json:"list"`
}

type dartAccount struct {
	CorpCode     string `json:"corp_code"`
	AccountName  string `json:"account_nm"`
	FsDiv        string `json:"fs_div"`
	SjDiv        string `json:"sj_div"`
	ThisTermAmnt string `json:"thstrm_amount"`
}

// Account names as filed, mapped to line items. The first match wins.
var dartAccounts = []struct {
	prefix string
	item   string
}{
	{"매출액", entity.ItemRevenue},
	{"수익(매출액)", entity.ItemRevenue},
	{"영업수익", entity.ItemRevenue},
	{"영업이익", entity.ItemOperatingIncome},
	{"당기순이익", entity.ItemNetIncome},
}

const (
	dartStatusOK     = "000"
	dartStatusNoData = "013"
)

var (
	dartYear    = regexp.MustCompile(`^(\d{4})`)
	dartQuarter = regexp.MustCompile(`[Qq]([1-4])$`)
)

// reportCode picks the DART report for a period label: annual by default,
// quarterly or half-year reports for "YYYYQn".
func reportCode(period string) (year, code string, err error) {
	m := dartYear.FindStringSubmatch(period)
	if m == nil {
		return "", "", fmt.Errorf("period %q has no year", period)
	}
	year = m[1]
	code = "11011"
	if q := dartQuarter.FindStringSubmatch(period); q != nil {
		switch q[1] {
		case "1":
			code = "11013"
		case "2":
			code = "11012"
		case "3":
			code = "11014"
		}
	}
	return year, code, nil
}

func (p *DartProvider) Name() string {
	return "dart"
}

func (p *DartProvider) Fetch(ctx context.Context, subject, period string) (*entity.FinancialFacts, error) {
	year, code, err := reportCode(period)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("crtfc_key", p.APIKey)
	q.Set("corp_code", subject)
	q.Set("bsns_year", year)
	q.Set("reprt_code", code)
	q.Set("fs_div", "CFS")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/fnlttSinglAcntAll.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: dart status %d", ErrUnreachable, resp.StatusCode)
	}

	var parsed dartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}
	switch parsed.Status {
	case dartStatusOK:
	case dartStatusNoData:
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, subject, period)
	default:
		return nil, fmt.Errorf("%w: dart status %s: %s", ErrUnreachable, parsed.Status, parsed.Message)
	}

	return &entity.FinancialFacts{
		Subject:    subject,
		Period:     period,
		Items:      parseDartAccounts(parsed.List),
		Provenance: entity.ProvenanceLive,
	}, nil
}

// parseDartAccounts keeps the first amount seen for each line item. Amounts
// are reported in KRW with thousands separators.
func parseDartAccounts(list []dartAccount) map[string]decimal.Decimal {
	items := make(map[string]decimal.Decimal)
	for _, acc := range list {
		name := strings.TrimSpace(acc.AccountName)
		for _, m := range dartAccounts {
			if !strings.HasPrefix(name, m.prefix) {
				continue
			}
			if _, seen := items[m.item]; seen {
				break
			}
			raw := strings.ReplaceAll(strings.TrimSpace(acc.ThisTermAmnt), ",", "")
			if amount, err := decimal.NewFromString(raw); err == nil {
				items[m.item] = amount
			}
			break
		}
	}
	return items
}
