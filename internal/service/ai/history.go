package ai

import "github.com/docchat-app/docchat/internal/model/chat"

// DefaultDocumentPrompt is substituted as the effective text whenever a turn
// carries a document and no text of its own.
const DefaultDocumentPrompt = "Summarize the key points of this document."

// HistoryFromTurns re-serializes stored turns into provider messages. The
// translation is deterministic and lossless: document bytes round-trip
// exactly, and names are re-sanitized (a no-op on already-sanitized names).
// Assistant turns with no content, left behind by failed cycles, are skipped.
func HistoryFromTurns(turns []chat.Turn) []Message {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		if t.Role == chat.RoleAssistant && t.Text == "" && t.Document == nil {
			continue
		}

		var blocks []Block
		switch {
		case t.Document == nil:
			blocks = []Block{TextBlock{Text: t.Text}}
		case t.Text == "":
			blocks = []Block{TextBlock{Text: DefaultDocumentPrompt}, documentBlock(t.Document)}
		default:
			blocks = []Block{TextBlock{Text: t.Text}, documentBlock(t.Document)}
		}

		msgs = append(msgs, Message{Role: t.Role, Blocks: blocks})
	}
	return msgs
}

func documentBlock(d *chat.Document) DocumentBlock {
	return DocumentBlock{
		Name:   chat.SanitizeName(d.Name),
		Format: d.Format,
		Data:   d.Data,
	}
}
