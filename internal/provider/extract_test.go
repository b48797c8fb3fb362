package provider

import (
	"errors"
	"testing"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"items":[]}`,
			want:    `{"items":[]}`,
		},
		{
			name:    "fenced object",
			content: "```json\n{\"scriptEnglish\":\"hi\"}\n```",
			want:    `{"scriptEnglish":"hi"}`,
		},
		{
			name:    "chatter around array",
			content: "Sure! Here you go:\n[{\"title\":\"a\"}]\nHope this helps.",
			want:    `[{"title":"a"}]`,
		},
		{
			name:    "no json",
			content: "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			content: `{"items":[{"title":"a"}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.content)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrMalformedResponse) {
					t.Fatalf("expected MalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
