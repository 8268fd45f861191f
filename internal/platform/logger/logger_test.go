package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"pg_password", "hunter2", "host", "db.internal", "aws_secret_access_key", "abc"})
	if got := out[1]; got != "[REDACTED]" {
		t.Fatalf("pg_password: want=%q got=%v", "[REDACTED]", got)
	}
	if got := out[3]; got != "db.internal" {
		t.Fatalf("host: want=%q got=%v", "db.internal", got)
	}
	if got := out[5]; got != "[REDACTED]" {
		t.Fatalf("aws_secret_access_key: want=%q got=%v", "[REDACTED]", got)
	}
}

func TestSanitizeKVsTruncatesContent(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "é"
	}
	out := sanitizeKVs([]interface{}{"passage_content", long})
	s, ok := out[1].(string)
	if !ok {
		t.Fatalf("passage_content: expected string, got %T", out[1])
	}
	if want := maxContentRunes + len("..."); len([]rune(s)) != want {
		t.Fatalf("passage_content runes: want=%d got=%d", want, len([]rune(s)))
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"table", "pni-topics", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}
