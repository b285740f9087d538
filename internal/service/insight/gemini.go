package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"habitflow/config"
	"habitflow/internal/apperr"
	"habitflow/internal/model"
)

const coachPrompt = `You are a helpful habit coach. Analyze the user's habit data.
Pick the habit with the strongest streak or completion for positive reinforcement,
pick a weak habit and give one concrete improvement nudge, and finish with a short
motivational quote unrelated to the habits. Keep it motivational and concise.

Here is the habit data: %s`

// GeminiClient calls the Gemini generateContent endpoint over plain HTTP and
// forces a structured JSON response matching model.Insight.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGeminiClient(cfg config.InsightConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func insightSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"positiveReinforcement": map[string]any{"type": "string"},
			"areasForImprovement":   map[string]any{"type": "string"},
			"motivationalQuote":     map[string]any{"type": "string"},
		},
		"required": []string{"positiveReinforcement", "areasForImprovement", "motivationalQuote"},
	}
}

func (c *GeminiClient) Generate(ctx context.Context, summaries []model.HabitSummary) (model.Insight, error) {
	data, err := json.Marshal(summaries)
	if err != nil {
		return model.Insight{}, err
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: fmt.Sprintf(coachPrompt, data)}},
			},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      1.0,
			ResponseMimeType: "application/json",
			ResponseSchema:   insightSchema(),
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return model.Insight{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.Insight{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Insight{}, apperr.Transportf("insight request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Generator returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return model.Insight{}, apperr.Transportf("generator status %d", resp.StatusCode)
	}

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return model.Insight{}, apperr.Schemaf("decode generator response")
	}
	if genResp.Error != nil {
		return model.Insight{}, apperr.Transportf("generator error: %s", genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return model.Insight{}, apperr.Schemaf("generator returned no candidates")
	}

	var text bytes.Buffer
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return ParseInsight(text.Bytes())
}

// ParseInsight validates the structured response. A missing field is a hard
// schema failure, never silently coerced.
func ParseInsight(raw []byte) (model.Insight, error) {
	var ins model.Insight
	if err := json.Unmarshal(raw, &ins); err != nil {
		return model.Insight{}, apperr.Schemaf("parse insight json")
	}
	if ins.PositiveReinforcement == "" || ins.AreasForImprovement == "" || ins.MotivationalQuote == "" {
		return model.Insight{}, apperr.Schemaf("insight missing required fields")
	}
	return ins, nil
}
