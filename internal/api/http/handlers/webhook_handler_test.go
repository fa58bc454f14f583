package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeUserID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"whatsapp:+15551234567", "+15551234567"},
		{"whatsapp:+1 555 123 4567", "+15551234567"},
		{"5551234567", "+15551234567"},
		{"15551234567", "+15551234567"},
		{"+447700900123", "+447700900123"},
		{"tenant-42", "tenant-42"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, normalizeUserID(tc.in), tc.in)
	}
}

func TestSplitLongMessage_ShortMessageIsOnePart(t *testing.T) {
	parts := splitLongMessage("short reply", 1500)
	require.Equal(t, []string{"short reply"}, parts)
}

func TestSplitLongMessage_NumbersParts(t *testing.T) {
	paragraph := strings.Repeat("clause text ", 60) // ~720 chars
	message := strings.TrimSpace(strings.Repeat(paragraph+"\n\n", 4))

	parts := splitLongMessage(message, 1500)
	require.Greater(t, len(parts), 1)
	for i, part := range parts {
		require.True(t, strings.HasPrefix(part, "Part "), "part %d should carry a part prefix", i)
		require.LessOrEqual(t, len(part), 1500+len("Part 9/9:\n"))
	}
	require.Contains(t, parts[0], "Part 1/")
}
