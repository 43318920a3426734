package domain

import "testing"

func TestDocTypeValid(t *testing.T) {
	tests := []struct {
		docType DocType
		want    bool
	}{
		{DocTypePurchaseOrder, true},
		{DocTypeSalesOrder, true},
		{DocTypeInvoice, true},
		{DocType("memo"), false},
		{DocType(""), false},
	}

	for _, tt := range tests {
		if got := tt.docType.Valid(); got != tt.want {
			t.Errorf("DocType(%q).Valid() = %v, want %v", tt.docType, got, tt.want)
		}
	}
}
