package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// SGML-style opening tags left without their closing bracket at end of line.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXSource reads bank and credit card statements from an OFX/QFX file.
// The statement account becomes the transaction's user.
type OFXSource struct {
	path           string
	defaultCountry string
}

// NewOFXFile creates a source for the OFX/QFX file at path.
func NewOFXFile(path, defaultCountry string) *OFXSource {
	return &OFXSource{path: path, defaultCountry: defaultCountry}
}

// Load parses the OFX file.
func (s *OFXSource) Load(ctx context.Context) ([]model.Transaction, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer f.Close()

	return ParseOFX(ctx, f, s.defaultCountry)
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseOFX reads every statement transaction from OFX data. Payee country is
// used when present, otherwise defaultCountry.
func ParseOFX(ctx context.Context, r io.Reader, defaultCountry string) ([]model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, &common.MalformedInputError{Column: "OFX", Err: err}
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			transactions = appendOFX(transactions, stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID), defaultCountry)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			transactions = appendOFX(transactions, stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID), defaultCountry)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func appendOFX(dst []model.Transaction, src []ofxgo.Transaction, accountID, defaultCountry string) []model.Transaction {
	for _, ofxTx := range src {
		dst = append(dst, convertOFX(ofxTx, accountID, defaultCountry, len(dst)+1))
	}
	return dst
}

// convertOFX maps an OFX transaction onto the row model. OFX signs debits
// negative; the absolute value is kept.
func convertOFX(ofxTx ofxgo.Transaction, accountID, defaultCountry string, line int) model.Transaction {
	amount, _ := ofxTx.TrnAmt.Float64()
	if amount < 0 {
		amount = -amount
	}

	country := defaultCountry
	if ofxTx.Payee != nil && ofxTx.Payee.Country != "" {
		country = string(ofxTx.Payee.Country)
	}

	extra := map[string]string{
		"fitid": string(ofxTx.FiTID),
		"name":  strings.TrimSpace(string(ofxTx.Name)),
		"type":  fmt.Sprintf("%v", ofxTx.TrnType),
	}
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		extra["name"] = string(ofxTx.Payee.Name)
	}
	if ofxTx.CheckNum != "" {
		extra["check_number"] = string(ofxTx.CheckNum)
	}

	return model.Transaction{
		UserID:  accountID,
		Amount:  amount,
		Country: country,
		Time:    ofxTx.DtPosted.Time,
		Extra:   extra,
		Line:    line,
	}
}
