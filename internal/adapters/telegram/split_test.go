package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessageRespectsLimit(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("a", 3000))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("b", 2000))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("c", 500))

	parts := SplitMessage(builder.String())
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	for i, part := range parts {
		if length := len([]rune(part)); length > MessageLimit {
			t.Fatalf("part %d exceeds limit: %d", i, length)
		}
	}
	if parts[0] != strings.Repeat("a", 3000) {
		t.Fatalf("unexpected content in first part")
	}
	if parts[1] != strings.Repeat("b", 2000)+"\n"+strings.Repeat("c", 500) {
		t.Fatalf("unexpected second part")
	}
}

func TestSplitKeepsLinesTogether(t *testing.T) {
	text := "12:00 AM | VENATUS\n01:00 AM | EGO\n02:00 AM | LIVERA"
	parts := Split(text, 20)
	want := []string{"12:00 AM | VENATUS", "01:00 AM | EGO", "02:00 AM | LIVERA"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %q", len(want), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("part %d: got %q want %q", i, parts[i], want[i])
		}
	}
}

func TestSplitCutsOverlongLine(t *testing.T) {
	parts := Split("ыыыыыыы", 3)
	if len(parts) != 3 || parts[0] != "ыыы" || parts[2] != "ы" {
		t.Fatalf("unexpected parts %q", parts)
	}
}

func TestSplitMessageShortText(t *testing.T) {
	text := "hello world"
	parts := SplitMessage(text)
	if len(parts) != 1 || parts[0] != text {
		t.Fatalf("unexpected parts %q", parts)
	}
	if SplitMessage("  \n ") != nil {
		t.Fatalf("blank text must produce no messages")
	}
}
