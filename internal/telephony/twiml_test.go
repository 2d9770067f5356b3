package telephony

import (
	"strings"
	"testing"
)

func TestBuildStreamTwiML(t *testing.T) {
	doc, err := BuildStreamTwiML("wss://abc123.ngrok.io/ws", "+15551234567", "+15559876543")
	if err != nil {
		t.Fatalf("BuildStreamTwiML: %v", err)
	}

	for _, want := range []string{
		"<Connect>",
		`url="wss://abc123.ngrok.io/ws"`,
		`name="to_number"`,
		`value="+15551234567"`,
		`name="from_number"`,
		`value="+15559876543"`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestBuildStreamTwiMLDeterministic(t *testing.T) {
	first, err := BuildStreamTwiML("wss://example.com/ws", "+15551234567", "+15559876543")
	if err != nil {
		t.Fatalf("BuildStreamTwiML: %v", err)
	}
	second, err := BuildStreamTwiML("wss://example.com/ws", "+15551234567", "+15559876543")
	if err != nil {
		t.Fatalf("BuildStreamTwiML: %v", err)
	}
	if first != second {
		t.Errorf("same inputs produced different documents:\n%s\n---\n%s", first, second)
	}
}

func TestBuildStreamTwiMLEscapesValues(t *testing.T) {
	doc, err := BuildStreamTwiML(`wss://example.com/ws?a=1&b=2`, "+15551234567", "+15559876543")
	if err != nil {
		t.Fatalf("BuildStreamTwiML: %v", err)
	}
	if strings.Contains(doc, "a=1&b=2") {
		t.Errorf("ampersand not escaped:\n%s", doc)
	}
	if !strings.Contains(doc, "a=1&amp;b=2") {
		t.Errorf("expected escaped query string:\n%s", doc)
	}
}
