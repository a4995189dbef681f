package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/validation"
	"github.com/aclindsa/ofxgo"
)

// DefaultOFXCategory fills the category of statement lines that carry none.
const DefaultOFXCategory = "Uncategorized"

// Columns produced by OFXSource.
const (
	ofxColumnTitle       = "Title"
	ofxColumnDescription = "Description"
	ofxColumnAmount      = "Amount"
	ofxColumnType        = "Type"
	ofxColumnDate        = "Date"
	ofxColumnCategory    = "Category"
	ofxColumnPayment     = "Payment Method"
	ofxColumnFITID       = "FITID"
)

var (
	severityPattern  = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	unclosedTag      = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	postedDatePrefix = regexp.MustCompile(`^\d{2}/\d{2} `)
)

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericNames = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// OFXSource reads bank and credit card statements from an OFX or QFX file.
// Negative amounts become expenses.
type OFXSource struct {
	reader   io.Reader
	category string
}

// NewOFXSource creates an OFX source. Lines without an inferred category get
// category, or DefaultOFXCategory when it is empty.
func NewOFXSource(r io.Reader, category string) *OFXSource {
	if category == "" {
		category = DefaultOFXCategory
	}
	return &OFXSource{reader: r, category: category}
}

// Load parses the statement file.
func (s *OFXSource) Load(ctx context.Context) (*Batch, error) {
	content, err := io.ReadAll(s.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var rows []Row
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			bankStmts++
			for _, tx := range stmt.BankTranList.Transactions {
				rows = append(rows, statementRow(tx, false))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			ccStmts++
			for _, tx := range stmt.BankTranList.Transactions {
				rows = append(rows, statementRow(tx, true))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"rows", len(rows),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	columns := []string{
		ofxColumnTitle, ofxColumnDescription, ofxColumnAmount, ofxColumnType,
		ofxColumnDate, ofxColumnCategory, ofxColumnPayment, ofxColumnFITID,
	}
	mapping := SuggestMapping(columns)
	mapping[ofxColumnFITID] = SkipField

	return &Batch{
		Columns:  columns,
		Rows:     rows,
		Mapping:  mapping,
		Defaults: validation.RawRecord{validation.FieldCategory: s.category},
	}, nil
}

// preprocessOFX fixes formatting issues common in bank exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTag.ReplaceAllString(content, "$1>")
}

func statementRow(tx ofxgo.Transaction, creditCard bool) Row {
	trnType := strings.ToUpper(fmt.Sprintf("%v", tx.TrnType))

	txnType := model.TypeIncome
	if tx.TrnAmt.Sign() < 0 {
		txnType = model.TypeExpense
	}
	amount := new(big.Rat).Abs(&tx.TrnAmt.Rat)

	row := Row{
		ofxColumnTitle:  merchantName(tx),
		ofxColumnAmount: amount.FloatString(2),
		ofxColumnType:   string(txnType),
		ofxColumnDate:   tx.DtPosted.Time,
		ofxColumnFITID:  string(tx.FiTID),
	}
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" {
		row[ofxColumnDescription] = memo
	}
	if category := inferCategory(trnType); category != "" {
		row[ofxColumnCategory] = category
	}
	if method := inferPaymentMethod(trnType, creditCard); method != "" {
		row[ofxColumnPayment] = string(method)
	}
	return row
}

// merchantName prefers the payee, then a non-generic NAME, then MEMO.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && genericNames[strings.ToUpper(name)] {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	return strings.TrimSpace(postedDatePrefix.ReplaceAllString(name, ""))
}

func inferCategory(trnType string) string {
	switch trnType {
	case "INT", "DIV":
		return "Interest"
	case "FEE", "SRVCHG":
		return "Bank Fees"
	case "ATM":
		return "Cash & ATM"
	}
	return ""
}

func inferPaymentMethod(trnType string, creditCard bool) model.PaymentMethod {
	if creditCard {
		return model.PaymentCard
	}
	switch trnType {
	case "POS":
		return model.PaymentCard
	case "ATM", "CASH":
		return model.PaymentCash
	case "DIRECTDEBIT", "REPEATPMT":
		return model.PaymentAutoDebit
	case "XFER", "DIRECTDEP":
		return model.PaymentBankTransfer
	}
	return ""
}
