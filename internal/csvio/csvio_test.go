package csvio_test

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/verte-zerg/kpicalc/internal/csvio"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
)

const header = "Date;Salv(TM);Salv(SCR);SEON;Fraud Repo;Zendesk opened;Zendesk closed;Jira closed;SAR repo;RFI repo;AML Onboarding;Downtime;Total KPI;% of Total KPI Done"

func TestHeaderLine(t *testing.T) {
	gt.Equal(t, csvio.HeaderLine(), header)
}

func TestEncode(t *testing.T) {
	entries := []model.HistoryEntry{
		{Date: "14/10/2026", Points: map[model.Category]int{model.SalvTM: 28, model.SarRepo: 105}},
		{Date: "15/10/2026"},
	}
	var buf bytes.Buffer
	gt.NoError(t, csvio.Encode(&buf, entries))

	want := header + "\n" +
		"14/10/2026;28;0;0;0;0;0;0;105;0;0;0;133;31.67%\n" +
		"15/10/2026;0;0;0;0;0;0;0;0;0;0;0;0;0.00%\n"
	gt.Equal(t, buf.String(), want)
}

func TestRoundTripIntoEmptyLedger(t *testing.T) {
	src := ledger.New([]model.HistoryEntry{
		{Date: "25/01/2024", Points: map[model.Category]int{model.Seon: 7, model.Downtime: 30}},
		{Date: "01/12/2024", Points: map[model.Category]int{model.RfiRepo: 42, model.AmlOnboarding: 10}},
	})
	var buf bytes.Buffer
	gt.NoError(t, csvio.Encode(&buf, src.Entries()))

	res, err := csvio.Decode(&buf)
	gt.NoError(t, err)
	gt.Equal(t, res.Skipped, 0)

	dst := ledger.New(nil)
	added, dropped := csvio.Merge(dst, res.Entries)
	gt.Equal(t, added, 2)
	gt.Equal(t, dropped, 0)

	want := src.Entries()
	got := dst.Entries()
	gt.A(t, got).Length(len(want))
	for i := range want {
		gt.Equal(t, got[i].Date, want[i].Date)
		for _, key := range model.Keys() {
			gt.Equal(t, got[i].Point(key), want[i].Point(key))
		}
		gt.Equal(t, ledger.Total(got[i]), ledger.Total(want[i]))
		gt.Equal(t, ledger.FormatPercent(got[i]), ledger.FormatPercent(want[i]))
	}
}

func TestDecodeRejectsHeaderMismatch(t *testing.T) {
	bad := strings.Replace(header, "Salv(TM)", "Salv (TM)", 1)
	input := bad + "\n14/10/2026;1;0;0;0;0;0;0;0;0;0;0;1;0.24%\n"

	_, err := csvio.Decode(strings.NewReader(input))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, csvio.ErrInvalidHeader))
}

func TestDecodeRejectsExtraHeaderColumn(t *testing.T) {
	input := header + ";Extra\n14/10/2026;1;0;0;0;0;0;0;0;0;0;0;1;0.24%;x\n"
	_, err := csvio.Decode(strings.NewReader(input))
	gt.True(t, errors.Is(err, csvio.ErrInvalidHeader))
}

func TestDecodeRejectsEmpty(t *testing.T) {
	for _, input := range []string{"", "\n\n", header + "\n"} {
		_, err := csvio.Decode(strings.NewReader(input))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, csvio.ErrEmptyImport))
	}
}

func TestDecodeSkipsShortRowsAndParsesLeniently(t *testing.T) {
	input := header + "\r\n" +
		"14/10/2026;1;2;3\r\n" +
		"\r\n" +
		"15/10/2026;14abc;;-7;21;0;0;0;0;0;0;5;x;y\r\n"

	res, err := csvio.Decode(strings.NewReader(input))
	gt.NoError(t, err)
	gt.Equal(t, res.Skipped, 1)
	gt.A(t, res.Entries).Length(1)

	e := res.Entries[0]
	gt.Equal(t, e.Date, "15/10/2026")
	gt.Equal(t, e.Point(model.SalvTM), 14)
	gt.Equal(t, e.Point(model.SalvSCR), 0)
	gt.Equal(t, e.Point(model.Seon), 0)
	gt.Equal(t, e.Point(model.FraudRepo), 21)
	gt.Equal(t, e.Point(model.Downtime), 5)
}

func TestMergeKeepsExistingDates(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{
		{Date: "14/10/2026", Points: map[model.Category]int{model.Seon: 7}},
	})
	incoming := []model.HistoryEntry{
		{Date: "14/10/2026", Points: map[model.Category]int{model.Seon: 700}},
		{Date: "15/10/2026", Points: map[model.Category]int{model.Seon: 14}},
	}
	added, dropped := csvio.Merge(l, incoming)
	gt.Equal(t, added, 1)
	gt.Equal(t, dropped, 1)

	kept, ok := l.Find("14/10/2026")
	gt.True(t, ok)
	gt.Equal(t, kept.Point(model.Seon), 7)
	gt.Equal(t, l.Len(), 2)
}

func TestReportFileName(t *testing.T) {
	gt.Equal(t, csvio.ReportFileName("14/10/2026"), "history_14-10-2026.csv")
}

func TestLeadingInt(t *testing.T) {
	cases := map[string]int{
		"12":    12,
		" 7 ":   7,
		"12abc": 12,
		"-3":    -3,
		"+4":    4,
		"abc":   0,
		"":      0,
		"-":     0,
	}
	for in, want := range cases {
		gt.Equal(t, csvio.LeadingInt(in), want)
	}
}

func TestLeadingIntClampsOversizedDigits(t *testing.T) {
	gt.Equal(t, csvio.LeadingInt("99999999999999999999"), model.MaxCount)
	gt.Equal(t, csvio.LeadingInt("-99999999999999999999"), -model.MaxCount)
	gt.Equal(t, csvio.LeadingInt(strconv.Itoa(model.MaxCount+1)+"x"), model.MaxCount)

	input := header + "\r\n" + "15/10/2026;99999999999999999999;0;0;0;0;0;0;0;0;0;0;0;0\r\n"
	res, err := csvio.Decode(strings.NewReader(input))
	gt.NoError(t, err)
	gt.A(t, res.Entries).Length(1)
	gt.Equal(t, res.Entries[0].Point(model.SalvTM), model.MaxCount)
}
