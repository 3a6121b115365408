package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/docchat-app/docchat/internal/config"
	"github.com/docchat-app/docchat/internal/model/chat"
	"github.com/docchat-app/docchat/internal/service/extract"
)

// arkProvider is the higher-level text path: documents are flattened into the
// prompt as extracted text before the call. Inference parameters are baked
// into the chat model at construction time.
type arkProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func newArk(ctx context.Context, cfg config.AIConfig) (*arkProvider, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create ark chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	return &arkProvider{chain: runnable}, nil
}

func (a *arkProvider) Invoke(ctx context.Context, req Request) (Stream, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("empty message history")
	}

	history := make([]*schema.Message, 0, len(req.Messages)-1)
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		text, err := flatten(msg.Blocks)
		if err != nil {
			return nil, err
		}
		if msg.Role == chat.RoleAssistant {
			history = append(history, schema.AssistantMessage(text, nil))
		} else {
			history = append(history, schema.UserMessage(text))
		}
	}

	query, err := flatten(req.Messages[len(req.Messages)-1].Blocks)
	if err != nil {
		return nil, err
	}

	stream, err := a.chain.Stream(ctx, map[string]any{
		"system":  req.System,
		"history": history,
		"query":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("stream ark chain output: %w", err)
	}

	return &arkStream{reader: stream}, nil
}

func (a *arkProvider) Close() error { return nil }

// flatten renders blocks as plain text, inlining document contents.
func flatten(blocks []Block) (string, error) {
	var b strings.Builder
	for _, blk := range blocks {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		switch v := blk.(type) {
		case TextBlock:
			b.WriteString(v.Text)
		case DocumentBlock:
			text, err := extract.PDFText(v.Data)
			if err != nil {
				return "", fmt.Errorf("extract document %s: %w", v.Name, err)
			}
			fmt.Fprintf(&b, "[Document %s]\n%s", v.Name, text)
		}
	}
	return b.String(), nil
}

type arkStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *arkStream) Recv() (string, error) {
	for {
		chunk, err := s.reader.Recv()
		if err != nil {
			// io.EOF passes through as the normal termination.
			return "", err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		return chunk.Content, nil
	}
}

func (s *arkStream) Close() {
	s.reader.Close()
}
