package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankStatementOFX = `
OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>Info
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>POS
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>POS PURCHASE STARBUCKS #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240116120000[0:GMT]
<TRNAMT>2500.00
<FITID>2024011601
<NAME>ACME PAYROLL
<MEMO>March salary
</STMTTRN>
<STMTTRN>
<TRNTYPE>ATM
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-60.00
<FITID>2024012001
<NAME>DEBIT
<MEMO>ATM MAIN ST
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>1.23
<FITID>2024013101
<NAME>INTEREST PAID
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const creditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestOFXSource_LoadBankStatement(t *testing.T) {
	batch, err := NewOFXSource(strings.NewReader(bankStatementOFX), "").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 4)

	tests := []struct {
		want Row
		name string
	}{
		{
			name: "card purchase",
			want: Row{
				ofxColumnTitle:   "STARBUCKS #1234",
				ofxColumnAmount:  "25.50",
				ofxColumnType:    "EXPENSE",
				ofxColumnPayment: "CARD",
				ofxColumnFITID:   "2024011501",
			},
		},
		{
			name: "deposit",
			want: Row{
				ofxColumnTitle:       "ACME PAYROLL",
				ofxColumnDescription: "March salary",
				ofxColumnAmount:      "2500.00",
				ofxColumnType:        "INCOME",
				ofxColumnPayment:     "BANK_TRANSFER",
				ofxColumnFITID:       "2024011601",
			},
		},
		{
			name: "generic name falls back to memo",
			want: Row{
				ofxColumnTitle:       "ATM MAIN ST",
				ofxColumnDescription: "ATM MAIN ST",
				ofxColumnAmount:      "60.00",
				ofxColumnType:        "EXPENSE",
				ofxColumnCategory:    "Cash & ATM",
				ofxColumnPayment:     "CASH",
				ofxColumnFITID:       "2024012001",
			},
		},
		{
			name: "interest",
			want: Row{
				ofxColumnTitle:    "INTEREST PAID",
				ofxColumnAmount:   "1.23",
				ofxColumnType:     "INCOME",
				ofxColumnCategory: "Interest",
				ofxColumnFITID:    "2024013101",
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := batch.Rows[i]
			date, ok := row[ofxColumnDate].(time.Time)
			require.True(t, ok)
			assert.Equal(t, 2024, date.Year())
			assert.Equal(t, time.January, date.Month())

			delete(row, ofxColumnDate)
			assert.Equal(t, tt.want, row)
		})
	}

	assert.Equal(t, SkipField, batch.Mapping[ofxColumnFITID])
	assert.Equal(t, "paymentMethod", batch.Mapping[ofxColumnPayment])
	assert.Equal(t, DefaultOFXCategory, batch.Defaults["category"])
}

func TestOFXSource_ImportsThroughEngine(t *testing.T) {
	batch, err := NewOFXSource(strings.NewReader(creditCardOFX), "Shopping").Load(context.Background())
	require.NoError(t, err)

	creator := &fakeCreator{limit: 300}
	_, err = NewEngine(creator, WithTickInterval(0)).Import(context.Background(), batch.Request(testOwner, nil, nil), nil)
	require.NoError(t, err)

	require.Len(t, creator.drafts, 1)
	d := creator.drafts[0]
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", d.Title)
	assert.Equal(t, "45.99", d.Amount.StringFixed(2))
	assert.Equal(t, model.TypeExpense, d.Type)
	assert.Equal(t, "Shopping", d.Category)
	assert.Equal(t, model.PaymentCard, d.PaymentMethod)
	assert.Equal(t, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), d.Date)
}

func TestOFXSource_Invalid(t *testing.T) {
	for _, input := range []string{"", "not valid OFX"} {
		_, err := NewOFXSource(strings.NewReader(input), "").Load(context.Background())
		assert.Error(t, err)
	}
}

func TestMerchantName(t *testing.T) {
	tests := []struct {
		name string
		tx   ofxgo.Transaction
		want string
	}{
		{name: "payee wins", tx: ofxgo.Transaction{Name: "PURCHASE", Payee: &ofxgo.Payee{Name: "Corner Shop"}}, want: "Corner Shop"},
		{name: "prefix stripped", tx: ofxgo.Transaction{Name: "DEBIT CARD PURCHASE Bakery"}, want: "Bakery"},
		{name: "posted date stripped", tx: ofxgo.Transaction{Name: "CHECK CARD 03/14 Hardware Store"}, want: "Hardware Store"},
		{name: "generic uses memo", tx: ofxgo.Transaction{Name: "PAYMENT", Memo: "City Water"}, want: "City Water"},
		{name: "plain", tx: ofxgo.Transaction{Name: " Bookshop "}, want: "Bookshop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merchantName(tt.tx))
		})
	}
}
