package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type GeminiService struct {
	ApiKey string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{ApiKey: apiKey}
}

// DraftQuoteEmail writes a short cover letter to accompany a quote email.
func (g *GeminiService) DraftQuoteEmail(ctx context.Context, clientName, title string, items []string, similar []string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("You are an assistant writing business emails for a freelancer sending a project quote.\n\n")
	prompt.WriteString("GUIDELINES:\n")
	prompt.WriteString("- Professional but warm tone, 3 short paragraphs maximum\n")
	prompt.WriteString("- Reference the project by name, summarize what is included, invite questions\n")
	prompt.WriteString("- Do not invent prices or dates that are not in the line items\n")
	prompt.WriteString("- Plain text only, no subject line, no signature placeholder\n\n")
	fmt.Fprintf(&prompt, "Client: %s\nProject: %s\nLine items:\n", clientName, title)
	for _, item := range items {
		fmt.Fprintf(&prompt, "- %s\n", item)
	}
	if len(similar) > 0 {
		prompt.WriteString("\nPast quotes by the same sender, for tone reference only:\n")
		for _, s := range similar {
			fmt.Fprintf(&prompt, "- %s\n", s)
		}
	}

	return g.generate(ctx, prompt.String())
}

// SummarizeRevisionNotes condenses revision notes for the email annotation.
func (g *GeminiService) SummarizeRevisionNotes(ctx context.Context, notes string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following quote revision notes in at most two sentences, plain text, keeping every concrete change (scope, price, timeline):

%s`, notes)

	return g.generate(ctx, prompt)
}

func (g *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	// gemini-2.5-flash is fast enough for interactive drafting
	url := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key=" + g.ApiKey

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode Gemini response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}
