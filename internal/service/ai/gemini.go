package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/docchat-app/docchat/internal/config"
	"github.com/docchat-app/docchat/internal/model/chat"
)

// geminiProvider is the multi-modal path: documents travel as raw bytes in
// the request, no local extraction involved.
type geminiProvider struct {
	client    *genai.Client
	modelName string
}

func newGemini(ctx context.Context, cfg config.AIConfig) (*geminiProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiProvider{client: cl, modelName: cfg.Model}, nil
}

func (g *geminiProvider) Invoke(ctx context.Context, req Request) (Stream, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("empty message history")
	}

	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(float32(req.Temperature))
	m.SetMaxOutputTokens(int32(req.MaxTokens))
	if req.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	cs := m.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: geminiParts(msg.Blocks),
		})
	}

	last := req.Messages[len(req.Messages)-1]
	iter := cs.SendMessageStream(ctx, geminiParts(last.Blocks)...)
	return &geminiStream{iter: iter}, nil
}

func (g *geminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func geminiRole(role chat.Role) string {
	if role == chat.RoleAssistant {
		return "model"
	}
	return "user"
}

func geminiParts(blocks []Block) []genai.Part {
	parts := make([]genai.Part, 0, len(blocks))
	for _, b := range blocks {
		switch v := b.(type) {
		case TextBlock:
			parts = append(parts, genai.Text(v.Text))
		case DocumentBlock:
			parts = append(parts, genai.Blob{
				MIMEType: mimeForFormat(v.Format),
				Data:     v.Data,
			})
		}
	}
	return parts
}

func mimeForFormat(format string) string {
	if format == chat.FormatPDF {
		return "application/pdf"
	}
	return "application/octet-stream"
}

type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}

		if delta := candidateText(resp); delta != "" {
			return delta, nil
		}
	}
}

func (s *geminiStream) Close() {}

func candidateText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
