package link

import "testing"

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		link string
		want bool
	}{
		{"watch with scheme and www", "https://www.youtube.com/watch?v=XYZ789", true},
		{"watch without www", "https://youtube.com/watch?v=XYZ789", true},
		{"watch without scheme", "www.youtube.com/watch?v=XYZ789", true},
		{"watch bare", "youtube.com/watch?v=XYZ789", true},
		{"watch http", "http://www.youtube.com/watch?v=a_b-c", true},
		{"short link", "https://youtu.be/abc123", true},
		{"short link bare", "youtu.be/abc123", true},
		{"embed", "https://www.youtube.com/embed/abc123", true},
		{"embed bare", "youtube.com/embed/abc123", true},
		{"trailing query is accepted", "https://www.youtube.com/watch?v=abc123&t=42s", true},
		{"not a link", "not a link", false},
		{"empty", "", false},
		{"link not at start", "look: https://youtu.be/abc123", false},
		{"missing id", "https://www.youtube.com/watch?v=", false},
		{"other host", "https://vimeo.com/12345", false},
		{"channel page", "https://www.youtube.com/@somechannel", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.link); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.link, got, tt.want)
			}
		})
	}
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name   string
		link   string
		want   string
		wantOK bool
	}{
		{"watch", "https://www.youtube.com/watch?v=XYZ789", "XYZ789", true},
		{"short", "https://youtu.be/abc123", "abc123", true},
		{"embed", "youtube.com/embed/a-b_c", "a-b_c", true},
		{"stops at query", "https://www.youtube.com/watch?v=abc123&t=42s", "abc123", true},
		{"anywhere in text", "check this out https://youtu.be/abc123 thanks", "abc123", true},
		{"first of several", "youtu.be/first and youtu.be/second", "first", true},
		{"absent", "not a link", "", false},
		{"empty id", "youtu.be/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractID(tt.link)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractID(%q) = %q, %v, want %q, %v", tt.link, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindCandidates(t *testing.T) {
	text := "two videos: https://youtu.be/abc123 and https://www.example.com/page " +
		"plus https://youtu.be/abc123 again and youtube.com/embed/XYZ789"

	got := FindCandidates(text)
	want := []string{"https://youtu.be/abc123", "youtube.com/embed/XYZ789"}

	if len(got) != len(want) {
		t.Fatalf("FindCandidates() = %q, want %q", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FindCandidates()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := FindCandidates("   "); got != nil {
		t.Fatalf("expected no candidates for blank text, got %q", got)
	}
}
