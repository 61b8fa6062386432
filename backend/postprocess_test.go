package backend

import "testing"

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "New video! Building out a home server.",
			want:  "New video! Building out a home server.",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  New video!  \n",
			want:  "New video!",
		},
		{
			name:  "escaped newlines with wrapping quotes",
			input: `"New video!\n\nHome server build walkthrough #Homelab"`,
			want:  "New video!\n\nHome server build walkthrough #Homelab",
		},
		{
			name:  "escaped newlines without quotes",
			input: `New video!\n\nCheck out the build.`,
			want:  "New video!\n\nCheck out the build.",
		},
		{
			name:  "single quotes",
			input: `'New video!\n\nGreat content!'`,
			want:  "New video!\n\nGreat content!",
		},
		{
			name:  "mixed escape sequences",
			input: `Line 1\n\tTabbed line\r\nWindows newline`,
			want:  "Line 1\n\tTabbed line\r\nWindows newline",
		},
		{
			name:  "real newlines left alone",
			input: "New video!\n\nGreat content!",
			want:  "New video!\n\nGreat content!",
		},
		{
			name: "quotes without escapes left alone",
			// Quote stripping only fires on the escape-sequence symptom;
			// a legitimately quoted phrase stays quoted.
			input: `"Quoted title" is out now`,
			want:  `"Quoted title" is out now`,
		},
		{
			name:  "empty",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanResponse(tt.input); got != tt.want {
				t.Errorf("cleanResponse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
