package ai

import (
	"bytes"
	"testing"
	"time"

	"github.com/docchat-app/docchat/internal/model/chat"
)

func docTurn(text string, doc *chat.Document) chat.Turn {
	return chat.Turn{
		ID:        "t1",
		SessionID: "s1",
		Role:      chat.RoleUser,
		Text:      text,
		Document:  doc,
		CreatedAt: time.Now().UTC(),
	}
}

func TestHistoryRoundTripsDocumentBytes(t *testing.T) {
	data := []byte("%PDF-1.4\x00\x01\x02 binary payload \xff")
	doc := &chat.Document{Name: "paper", DisplayName: "paper.pdf", Format: chat.FormatPDF, Data: data}

	msgs := HistoryFromTurns([]chat.Turn{docTurn("see attached", doc)})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if len(msgs[0].Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msgs[0].Blocks))
	}

	block, ok := msgs[0].Blocks[1].(DocumentBlock)
	if !ok {
		t.Fatalf("expected a document block, got %T", msgs[0].Blocks[1])
	}
	if !bytes.Equal(block.Data, data) {
		t.Fatal("document bytes did not round-trip exactly")
	}
	if block.Format != chat.FormatPDF {
		t.Fatalf("unexpected format: %q", block.Format)
	}
}

func TestHistoryDocumentOnlyUsesDefaultInstruction(t *testing.T) {
	doc := &chat.Document{Name: "paper", Format: chat.FormatPDF, Data: []byte("%PDF-")}

	msgs := HistoryFromTurns([]chat.Turn{docTurn("", doc)})
	if len(msgs) != 1 || len(msgs[0].Blocks) != 2 {
		t.Fatalf("unexpected shape: %+v", msgs)
	}

	text, ok := msgs[0].Blocks[0].(TextBlock)
	if !ok || text.Text != DefaultDocumentPrompt {
		t.Fatalf("expected the default instruction first, got %+v", msgs[0].Blocks[0])
	}
}

func TestHistoryResanitizesStoredNames(t *testing.T) {
	doc := &chat.Document{Name: "weird name!", Format: chat.FormatPDF, Data: []byte("%PDF-")}

	msgs := HistoryFromTurns([]chat.Turn{docTurn("look", doc)})
	block := msgs[0].Blocks[1].(DocumentBlock)
	if block.Name != "weird-name" {
		t.Fatalf("expected re-sanitized name, got %q", block.Name)
	}

	// Re-sanitizing a sanitized name must be a no-op.
	again := HistoryFromTurns([]chat.Turn{docTurn("look", &chat.Document{
		Name: block.Name, Format: chat.FormatPDF, Data: doc.Data,
	})})
	if got := again[0].Blocks[1].(DocumentBlock).Name; got != block.Name {
		t.Fatalf("sanitization drifted: %q -> %q", block.Name, got)
	}
}

func TestHistorySkipsEmptyAssistantTurns(t *testing.T) {
	turns := []chat.Turn{
		{Role: chat.RoleUser, Text: "hi"},
		{Role: chat.RoleAssistant, Text: ""},
		{Role: chat.RoleAssistant, Text: "Error: upstream failed"},
		{Role: chat.RoleUser, Text: "retry"},
	}

	msgs := HistoryFromTurns(turns)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for _, msg := range msgs {
		if len(msg.Blocks) != 1 {
			t.Fatalf("unexpected blocks: %+v", msg)
		}
	}
}

func TestHistoryPlainTextTurn(t *testing.T) {
	msgs := HistoryFromTurns([]chat.Turn{{Role: chat.RoleUser, Text: "just text"}})
	if len(msgs) != 1 || len(msgs[0].Blocks) != 1 {
		t.Fatalf("unexpected shape: %+v", msgs)
	}
	if text := msgs[0].Blocks[0].(TextBlock); text.Text != "just text" {
		t.Fatalf("unexpected text block: %+v", text)
	}
}
