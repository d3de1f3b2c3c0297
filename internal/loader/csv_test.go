package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `user_id,amount,country,time
101,200,CA,2026-01-18 10:00:00
102,7000,CA,2026-01-18 10:05:00
101,50,UK,2026-01-18 10:00:45
103,300,US,2026-01-18 11:00:00
`

func TestParseCSV(t *testing.T) {
	txns, err := ParseCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, txns, 4)

	first := txns[0]
	assert.Equal(t, "101", first.UserID)
	assert.Equal(t, 200.0, first.Amount)
	assert.Equal(t, "CA", first.Country)
	assert.Equal(t, time.Date(2026, 1, 18, 10, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 2, first.Line)
	assert.Nil(t, first.Extra)

	// Order is the file's order.
	assert.Equal(t, []string{"101", "102", "101", "103"},
		[]string{txns[0].UserID, txns[1].UserID, txns[2].UserID, txns[3].UserID})
	assert.Equal(t, "UK", txns[2].Country)
	assert.Equal(t, 5, txns[3].Line)
}

func TestParseCSV_ExtraColumnsAndHeaderOrder(t *testing.T) {
	data := "merchant,Time,country,Amount,user_id,channel\n" +
		"Acme,2026-01-18T10:00:00Z,US,12.50,u1,web\n"

	txns, err := ParseCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, txns, 1)

	assert.Equal(t, "u1", txns[0].UserID)
	assert.Equal(t, 12.5, txns[0].Amount)
	assert.Equal(t, map[string]string{"merchant": "Acme", "channel": "web"}, txns[0].Extra)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	txns, err := ParseCSV(context.Background(), strings.NewReader("user_id,amount,country,time\n"))
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestParseCSV_Malformed(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantColumn string
		wantLine   int
	}{
		{
			name:       "missing column",
			data:       "user_id,amount,time\n1,10,2026-01-01 10:00:00\n",
			wantColumn: ColumnCountry,
		},
		{
			name:       "empty input",
			data:       "",
			wantColumn: ColumnUserID,
		},
		{
			name:       "unparseable time",
			data:       "user_id,amount,country,time\n1,10,US,2026-01-01 10:00:00\n2,10,US,yesterday\n",
			wantColumn: ColumnTime,
			wantLine:   3,
		},
		{
			name:       "unparseable amount",
			data:       "user_id,amount,country,time\n1,ten,US,2026-01-01 10:00:00\n",
			wantColumn: ColumnAmount,
			wantLine:   2,
		},
		{
			name:       "negative amount",
			data:       "user_id,amount,country,time\n1,-5,US,2026-01-01 10:00:00\n",
			wantColumn: ColumnAmount,
			wantLine:   2,
		},
		{
			name:       "non-finite amount",
			data:       "user_id,amount,country,time\n1,NaN,US,2026-01-01 10:00:00\n",
			wantColumn: ColumnAmount,
			wantLine:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(context.Background(), strings.NewReader(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedInput)

			var mie *common.MalformedInputError
			require.ErrorAs(t, err, &mie)
			assert.Equal(t, tt.wantColumn, mie.Column)
			assert.Equal(t, tt.wantLine, mie.Line)
		})
	}
}

func TestParseCSV_RaggedRow(t *testing.T) {
	data := "user_id,amount,country,time\n1,10,US\n"

	_, err := ParseCSV(context.Background(), strings.NewReader(data))
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestParseCSV_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseCSV(ctx, strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	src := NewCSVFile(path)
	first, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 4)

	// File sources can be loaded repeatedly.
	second, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = NewCSVFile(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	assert.Error(t, err)

	fromReader, err := NewCSVReader(strings.NewReader(sampleCSV)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, fromReader)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 1, 18, 10, 0, 30, 0, time.UTC)
	plus2 := time.FixedZone("", 2*60*60)

	tests := []struct {
		want  time.Time
		input string
	}{
		{input: "2026-01-18 10:00:30", want: want},
		{input: "2026-01-18T10:00:30Z", want: want},
		{input: "2026-01-18T10:00:30", want: want},
		{input: " 2026-01-18 10:00:30 ", want: want},
		{input: "2026-01-18 10:00", want: want.Add(-30 * time.Second)},
		{input: "2026-01-18", want: time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)},
		{input: "2026-01-18 10:00:30.25", want: want.Add(250 * time.Millisecond)},
		{input: "2026-01-18 10:00:00+02:00", want: time.Date(2026, 1, 18, 10, 0, 0, 0, plus2)},
		{input: "2026-01-18 10:00:30Z", want: want},
		{input: "2026/01/18 10:00:30", want: want},
		{input: "2026-01-18T10:00", want: want.Add(-30 * time.Second)},
		{input: "2026-01-18 12:00:30 +0200", want: want},
		{input: "20260118", want: time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseTime_Rejected(t *testing.T) {
	tests := []struct {
		want  error
		input string
	}{
		{input: "yesterday", want: ErrUnrecognizedTime},
		{input: "", want: ErrUnrecognizedTime},
		{input: "01/02/2026 10:00:00", want: ErrAmbiguousDate},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseTime(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseAmount(t *testing.T) {
	_, err := ParseAmount("-1")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseAmount("+Inf")
	assert.ErrorIs(t, err, ErrAmountNotFinite)

	amount, err := ParseAmount(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, amount)
}

func TestParseCSV_ZoneOffset(t *testing.T) {
	data := "user_id,amount,country,time\n1,10,US,2026-01-18 10:00:00+02:00\n"

	txns, err := ParseCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, time.Date(2026, 1, 18, 8, 0, 0, 0, time.UTC).Equal(txns[0].Time))
}

func TestFileSource(t *testing.T) {
	tests := []struct {
		want    any
		path    string
		wantErr bool
	}{
		{path: "a.csv", want: &CSVSource{}},
		{path: "a.CSV", want: &CSVSource{}},
		{path: "a.qfx", want: &OFXSource{}},
		{path: "a.ofx", want: &OFXSource{}},
		{path: "a.db", want: &SQLiteSource{}},
		{path: "a.sqlite3", want: &SQLiteSource{}},
		{path: "a.xlsx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, err := FileSource(tt.path, Options{DefaultCountry: "US"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}
}
