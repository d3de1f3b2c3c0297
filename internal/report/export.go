package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/Veraticus/flagrant/internal/model"
	"github.com/goccy/go-json"
)

type jsonTransaction struct {
	Time      time.Time         `json:"time"`
	Extra     map[string]string `json:"extra,omitempty"`
	UserID    string            `json:"user_id"`
	Country   string            `json:"country"`
	Reason    string            `json:"reason"`
	Rules     []model.Rule      `json:"rules"`
	Amount    float64           `json:"amount"`
	IsFlagged bool              `json:"is_flagged"`
}

type jsonReport struct {
	Summary      *Summary          `json:"summary,omitempty"`
	Transactions []jsonTransaction `json:"transactions"`
}

// WriteJSON writes rows, and the summary when non-nil, as one JSON document.
func WriteJSON(w io.Writer, rows []model.AnnotatedTransaction, summary *Summary) error {
	out := jsonReport{
		Summary:      summary,
		Transactions: make([]jsonTransaction, 0, len(rows)),
	}

	for _, a := range rows {
		rules := a.Rules
		if rules == nil {
			rules = []model.Rule{}
		}
		out.Transactions = append(out.Transactions, jsonTransaction{
			UserID:    a.UserID,
			Amount:    a.Amount,
			Country:   a.Country,
			Time:      a.Time,
			Extra:     a.Extra,
			IsFlagged: a.IsFlagged,
			Reason:    a.Reason(),
			Rules:     rules,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteCSV writes rows with the input columns followed by is_flagged and reason.
// Extra columns appear in name order between the required columns and the annotations.
// Times keep their offset and sub-second precision so the output loads back unchanged.
func WriteCSV(w io.Writer, rows []model.AnnotatedTransaction) error {
	txns := make([]model.Transaction, len(rows))
	for i, a := range rows {
		txns[i] = a.Transaction
	}

	return writeCSV(w, txns, []string{"is_flagged", "reason"}, func(i int) []string {
		return []string{strconv.FormatBool(rows[i].IsFlagged), rows[i].Reason()}
	})
}

// WriteTransactionsCSV writes unannotated rows in the format the CSV loader reads.
func WriteTransactionsCSV(w io.Writer, txns []model.Transaction) error {
	return writeCSV(w, txns, nil, nil)
}

func writeCSV(w io.Writer, txns []model.Transaction, trailing []string, trailer func(int) []string) error {
	var extraCols []string
	seen := make(map[string]bool)
	for _, txn := range txns {
		for k := range txn.Extra {
			if !seen[k] {
				seen[k] = true
				extraCols = append(extraCols, k)
			}
		}
	}
	slices.Sort(extraCols)

	cw := csv.NewWriter(w)

	header := append([]string{"user_id", "amount", "country", "time"}, extraCols...)
	if err := cw.Write(append(header, trailing...)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, txn := range txns {
		record := []string{
			txn.UserID,
			strconv.FormatFloat(txn.Amount, 'f', -1, 64),
			txn.Country,
			txn.Time.Format(time.RFC3339Nano),
		}
		for _, col := range extraCols {
			record = append(record, txn.Extra[col])
		}
		if trailer != nil {
			record = append(record, trailer(i)...)
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
