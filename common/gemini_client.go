package common

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// FragmentWriter produces additional filler sentences for the page synthesizer.
type FragmentWriter interface {
	FillerSentences(ctx context.Context, keyword string, n int) ([]string, error)
}

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.9)

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiClient) Close() {
	g.client.Close()
}

// FillerSentences asks the model for n short neutral sentences, one per line.
// The keyword itself is stripped from every sentence.
func (g *GeminiClient) FillerSentences(ctx context.Context, keyword string, n int) ([]string, error) {
	prompt := fmt.Sprintf(`
Write %d short, neutral, newspaper-style filler sentences loosely related to the topic "%s".
Do not use the word "%s" itself.
Return ONLY the sentences, one per line, without numbering or bullets.
	`, n, keyword, keyword)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	text, err := g.extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}

	sentences := ParseFillerLines(text, keyword)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return sentences, nil
}

func (g *GeminiClient) extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	return sb.String(), nil
}

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

// ParseFillerLines splits model output into clean sentences. Lines are stripped of
// list markers and every case-insensitive occurrence of keyword; empty lines are dropped.
func ParseFillerLines(text, keyword string) []string {
	var kw *regexp.Regexp
	if k := strings.TrimSpace(keyword); k != "" {
		kw = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k))
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Join(strings.Fields(line), " ")
		// Removing one occurrence can join its neighbours into another.
		for kw != nil {
			next := strings.Join(strings.Fields(kw.ReplaceAllString(line, "")), " ")
			if next == line {
				break
			}
			line = next
		}
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
