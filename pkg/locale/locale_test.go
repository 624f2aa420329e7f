package locale

import (
	"testing"
)

func TestLocalizerDefaultsToEnglish(t *testing.T) {
	l, err := NewLocalizer("")
	if err != nil {
		t.Fatal(err)
	}
	if text := l.T("StartChatting"); text != "Type a message to start chatting!" {
		t.Errorf("Unexpected English text %q", text)
	}
}

func TestLocalizerSpanish(t *testing.T) {
	l, err := NewLocalizer("es")
	if err != nil {
		t.Fatal(err)
	}
	if text := l.T("NoMessages"); text != "Sin mensajes" {
		t.Errorf("Unexpected Spanish text %q", text)
	}
}

func TestLocalizerFallsBackForUnknownLanguage(t *testing.T) {
	l, err := NewLocalizer("de")
	if err != nil {
		t.Fatal(err)
	}
	if text := l.T("SupportChatTitle"); text != "Support Chat" {
		t.Errorf("Expected English fallback, got %q", text)
	}
}

func TestFormatFillsTemplate(t *testing.T) {
	l, err := NewLocalizer("en")
	if err != nil {
		t.Fatal(err)
	}
	text := l.Format("ConversationAlert", map[string]interface{}{"ConversationID": "abc123", "Preview": "hello?"})
	if text != "New support chat abc123: hello?" {
		t.Errorf("Unexpected alert text %q", text)
	}
}

func TestUnknownIDIsReturned(t *testing.T) {
	l, err := NewLocalizer("en")
	if err != nil {
		t.Fatal(err)
	}
	if text := l.T("Missing"); text != "Missing" {
		t.Errorf("Expected id back, got %q", text)
	}
	var nilLocalizer *Localizer
	if text := nilLocalizer.T("NoMessages"); text != "NoMessages" {
		t.Errorf("Expected id back from nil localizer, got %q", text)
	}
}
