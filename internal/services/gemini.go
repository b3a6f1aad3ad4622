package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/anpag/escaipe-room/pkg/chat"
)

// maxToolRounds bounds the function-calling loop within one turn.
const maxToolRounds = 4

// inventoryTool lets the model ask whether the team holds an item
// before narrating a response that depends on it.
var inventoryTool = &genai.Tool{
	FunctionDeclarations: []*genai.FunctionDeclaration{{
		Name:        "check_inventory",
		Description: "Check whether the team currently holds a named item.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"item_name": {
					Type:        genai.TypeString,
					Description: "Exact item name, e.g. 'BigQuery Keycard'.",
				},
			},
			Required: []string{"item_name"},
		},
	}},
}

// GeminiService implements LLMService against the Gemini API
type GeminiService struct {
	client *genai.Client
	model  string // set once InitModel verifies availability
	logger *slog.Logger
}

// Ensure GeminiService implements LLMService interface
var _ LLMService = (*GeminiService)(nil)

// NewGeminiService creates a Gemini-backed generation service
func NewGeminiService(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, logger: logger}, nil
}

// InitModel verifies the configured model is available
func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list gemini models: %w", err)
		}
		// Model names come back fully qualified ("models/gemini-...").
		if m.Name == modelName || strings.HasSuffix(m.Name, "/"+modelName) {
			g.model = modelName
			g.logger.Info("Gemini model ready", "model", modelName)
			return nil
		}
	}
	return fmt.Errorf("gemini model not available: %s", modelName)
}

// Ping reports whether the service is ready to open sessions.
func (g *GeminiService) Ping(ctx context.Context) error {
	if g.client == nil {
		return fmt.Errorf("gemini client is not initialized")
	}
	if g.model == "" {
		return fmt.Errorf("gemini model is not initialized")
	}
	return nil
}

// NewSession opens a chat session with the object's persona and
// prior history preloaded.
func (g *GeminiService) NewSession(ctx context.Context, cfg SessionConfig) (ChatSession, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("session config missing model")
	}

	model := g.client.GenerativeModel(cfg.Model)
	if cfg.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(cfg.SystemInstruction)},
		}
	}
	if cfg.CheckInventory != nil {
		model.Tools = []*genai.Tool{inventoryTool}
	}

	cs := model.StartChat()
	cs.History = toGenaiHistory(cfg.History)

	return &geminiSession{
		chat:   cs,
		check:  cfg.CheckInventory,
		logger: g.logger.With("team_id", cfg.TeamID),
	}, nil
}

// Close releases the underlying API client
func (g *GeminiService) Close() error {
	return g.client.Close()
}

func toGenaiHistory(history []chat.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == chat.RoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

type geminiSession struct {
	chat   *genai.ChatSession
	check  InventoryChecker
	logger *slog.Logger
}

func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini send failed: %w", err)
	}

	// Answer function calls until the model produces text.
	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, s.answerCall(ctx, call))
		}

		resp, err = s.chat.SendMessage(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("gemini tool response failed: %w", err)
		}
	}

	reply := responseText(resp)
	if reply == "" {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return reply, nil
}

func (s *geminiSession) answerCall(ctx context.Context, call genai.FunctionCall) genai.Part {
	if call.Name != "check_inventory" || s.check == nil {
		s.logger.Warn("Unsupported function call from model", "name", call.Name)
		return genai.FunctionResponse{
			Name:     call.Name,
			Response: map[string]any{"error": "unknown function"},
		}
	}

	itemName, _ := call.Args["item_name"].(string)
	has, err := s.check(ctx, itemName)
	if err != nil {
		s.logger.Error("Inventory check failed", "item", itemName, "error", err)
		return genai.FunctionResponse{
			Name:     call.Name,
			Response: map[string]any{"error": "inventory unavailable"},
		}
	}

	s.logger.Debug("Inventory check", "item", itemName, "has_item", has)
	return genai.FunctionResponse{
		Name:     call.Name,
		Response: map[string]any{"item_name": itemName, "has_item": has},
	}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if call, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, call)
			}
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
