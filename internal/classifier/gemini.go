package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/romariotrain/visiguard/internal/video/models"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"

	systemPrompt = `You are a content safety expert. Evaluate the sensitivity of a video. ` +
		`Classify it as either SAFE or FLAGGED based on potential harmful content, violence, or sensitive themes. ` +
		`If it sounds like a normal corporate, family, or educational video, it is SAFE. ` +
		`If it contains mentions of violence, illegal acts, or extreme adult themes, it is FLAGGED.`
)

// Gemini asks a Gemini model for a structured SAFE/FLAGGED classification.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Evaluate(ctx context.Context, title, description string) (models.Sensitivity, error) {
	prompt := fmt.Sprintf("Evaluate the sensitivity of the following video:\nTitle: %s\nDescription: %s", title, description)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"classification": {Type: genai.TypeString, Description: "Either SAFE or FLAGGED"},
				"reason":         {Type: genai.TypeString, Description: "Short reason for classification"},
			},
			Required: []string{"classification"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return ParseVerdict(resp.Text())
}

type verdictPayload struct {
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

// ParseVerdict decodes the model's JSON answer. Markdown code fences are tolerated.
func ParseVerdict(raw string) (models.Sensitivity, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty model response")
	}

	var p verdictPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return "", fmt.Errorf("parse verdict: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(p.Classification)) {
	case "FLAGGED":
		return models.FlaggedSensitivity, nil
	case "SAFE":
		return models.SafeSensitivity, nil
	default:
		return "", fmt.Errorf("unknown classification %q", p.Classification)
	}
}
