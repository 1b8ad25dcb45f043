package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Request describes the reply to produce.
type Request struct {
	State        string
	Intent       Intent
	CustomerText string
	Data         map[string]string
	// Seed keeps template choice stable per conversation (usually the phone).
	Seed string
}

// Generator never fails: when generation is impossible it answers from the
// templates.
type Generator interface {
	Generate(ctx context.Context, req Request) string
}

// TemplateGenerator answers from the templates only.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(_ context.Context, req Request) string {
	return Fallback(req)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	ShopContext string
}

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.6
)

// ChatGenerator phrases replies through an OpenAI-compatible chat
// completions endpoint.
type ChatGenerator struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New returns a ChatGenerator when an API key is configured, otherwise a
// TemplateGenerator.
func New(cfg Config, log *slog.Logger) Generator {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return TemplateGenerator{}
	}
	return NewChatGenerator(cfg, log)
}

func NewChatGenerator(cfg Config, log *slog.Logger) *ChatGenerator {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ChatGenerator{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log.With(slog.String("client", "reply_llm")),
	}
}

func (g *ChatGenerator) Generate(ctx context.Context, req Request) string {
	fallback := Fallback(req)
	content, err := g.callChat(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt(req, fallback, g.cfg.ShopContext)},
	})
	if err != nil {
		g.logger.Warn("reply generation failed, using template",
			slog.String("intent", string(req.Intent)), slog.Any("error", err))
		return fallback
	}
	return content
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *ChatGenerator) callChat(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response missing content")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm response missing content")
	}
	return content, nil
}

const systemPrompt = "Você é um atendente humano de uma oficina automotiva de funilaria. " +
	"Responda em pt-BR com tom natural, curto e cordial, em uma única mensagem, sem markdown. " +
	"Faça somente uma pergunta por vez quando faltar algo. " +
	"Siga o objetivo informado. Não invente preços, datas, prazos ou informações que não estejam nos dados."

var objectives = map[Intent]string{
	IntentAskPhoto:         "pedir uma foto do dano",
	IntentAwaitingApproval: "avisar que está aguardando aprovação do responsável",
	IntentNewQuote:         "iniciar um novo orçamento pedindo uma foto",
	IntentEstimateAskDate:  "informar o orçamento estimado e pedir uma data",
	IntentHumanReview:      "avisar que o caso será encaminhado para avaliação do responsável",
	IntentAskDate:          "pedir uma data (dd/mm) e período manhã ou tarde",
	IntentWeekFull:         "avisar que a semana está cheia e pedir outra data",
	IntentSuggestSlot:      "sugerir a próxima vaga disponível",
	IntentUnavailable:      "avisar que a data está indisponível e pedir outra",
	IntentPreReserved:      "confirmar a pré-reserva e avisar que o responsável vai validar",
	IntentClosed:           "avisar que o atendimento está finalizado",
	IntentCancelled:        "confirmar o cancelamento",
	IntentEscalated:        "avisar que o responsável vai entrar em contato",
}

func userPrompt(req Request, suggestion, shop string) string {
	keys := make([]string, 0, len(req.Data))
	for k := range req.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+req.Data[k])
	}
	if shop == "" {
		shop = "nao_informado"
	}
	state := req.State
	if state == "" {
		state = "desconhecido"
	}
	return strings.Join([]string{
		"Estado: " + state,
		"Objetivo: " + objectives[req.Intent],
		"Contexto da loja: " + shop,
		"Dados: " + strings.Join(pairs, ", "),
		"Resposta sugerida: " + suggestion,
		"Mensagem do cliente: " + req.CustomerText,
	}, "\n")
}
