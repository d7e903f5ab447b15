package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"07701234567", "9647701234567"},
		{"+964 770 123 4567", "9647701234567"},
		{"00964-770-123-4567", "9647701234567"},
		{"٠٧٧٠١٢٣٤٥٦٧", "9647701234567"},
		{"+971 50 123 4567", "971501234567"},
		{"12345", ""},
		{"call me", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, broadcast.NormalizePhone(tt.in))
		})
	}
}

func TestParseRecipients(t *testing.T) {
	valid, invalid := broadcast.ParseRecipients([]string{
		"07701234567, +9647701234567",
		"971501234567;bad",
		"",
	})

	assert.Equal(t, []string{"9647701234567", "971501234567"}, valid)
	assert.Equal(t, []string{"bad"}, invalid)
}

func TestMessageValidate_DocumentFilename(t *testing.T) {
	m := broadcast.Message{Kind: "Document", MediaURL: "https://files.example.com/a/invoice-12.pdf?sig=1"}

	assert.NoError(t, m.Validate())
	assert.Equal(t, broadcast.KindDocument, m.Kind)
	assert.Equal(t, "invoice-12.pdf", m.Filename)
}
