package advisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    float64
		wantErr bool
	}{
		{name: "bare number", text: "0.015", want: 0.015},
		{name: "number then prose", text: "0.02\nThis risks about 2% of the balance.", want: 0.02},
		{name: "markdown wrapped", text: "**0.5** BTC looks reasonable here.", want: 0.5},
		{name: "integer quantity", text: "12\nTwelve units keeps risk small.", want: 12},
		{name: "no number", text: "I cannot size this position.", wantErr: true},
		{name: "zero quantity", text: "0", wantErr: true},
		{name: "empty", text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuantity(tt.text)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoQuantity)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
