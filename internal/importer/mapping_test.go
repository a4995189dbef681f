package importer

import (
	"testing"

	"github.com/Veraticus/spice-ledger/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapping(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    Mapping
		wantErr string
	}{
		{
			name:  "fields and skip",
			pairs: []string{"Description=title", " Amount = amount ", "Notes=SKIP"},
			want:  Mapping{"Description": "title", "Amount": "amount", "Notes": SkipField},
		},
		{
			name:  "empty",
			pairs: nil,
			want:  Mapping{},
		},
		{
			name:    "missing separator",
			pairs:   []string{"Amount"},
			wantErr: "expected Column=field",
		},
		{
			name:    "empty column",
			pairs:   []string{"=amount"},
			wantErr: "expected Column=field",
		},
		{
			name:    "unknown field",
			pairs:   []string{"Amount=price"},
			wantErr: `unknown field "price"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMapping(tt.pairs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestMapping(t *testing.T) {
	got := SuggestMapping([]string{"Title", "AMOUNT", "Payment Method", "recurring_interval", "Memo"})
	assert.Equal(t, Mapping{
		"Title":              validation.FieldTitle,
		"AMOUNT":             validation.FieldAmount,
		"Payment Method":     validation.FieldPaymentMethod,
		"recurring_interval": validation.FieldInterval,
	}, got)
}

func TestMapping_Apply(t *testing.T) {
	m := Mapping{"Name": "title", "Cost": "amount", "Note": SkipField, "Missing": "category"}
	row := Row{"Name": "Tea", "Cost": 4.5, "Note": "secret", "Extra": "x"}

	raw := m.apply(row, nil, validation.RawRecord{"category": "Drinks", "title": "fallback"})
	assert.Equal(t, validation.RawRecord{"title": "Tea", "amount": 4.5, "category": "Drinks"}, raw)
}

func TestMapping_ApplySameFieldTwice(t *testing.T) {
	m := Mapping{"Name": "title", "Memo": "title", "Cost": "amount"}
	row := Row{"Name": "A", "Memo": "B", "Cost": "3"}

	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{name: "source order, last column wins", columns: []string{"Memo", "Cost", "Name"}, want: "A"},
		{name: "reversed source order", columns: []string{"Name", "Cost", "Memo"}, want: "B"},
		{name: "no column order falls back to sorted names", columns: nil, want: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 50 {
				raw := m.apply(row, tt.columns, nil)
				require.Equal(t, tt.want, raw["title"])
			}
		})
	}
}

func TestMapping_ApplyBlankLaterColumnKeepsEarlierValue(t *testing.T) {
	m := Mapping{"Name": "title", "Memo": "title"}
	raw := m.apply(Row{"Name": "A", "Memo": "  "}, []string{"Name", "Memo"}, nil)
	assert.Equal(t, "A", raw["title"])
}

func TestMapping_MergeAndString(t *testing.T) {
	base := Mapping{"A": "title", "B": "amount"}
	merged := base.Merge(Mapping{"B": SkipField, "C": "date"})

	assert.Equal(t, "A=title, B=skip, C=date", merged.String())
	assert.Equal(t, "amount", base["B"], "merge must not modify the receiver")
}
