// llmadapter.go implements the LLM-backed decision.Source (spec §6): one
// Anthropic Messages API call per perception this tick, translating the
// model's free-text choice into a concrete action.Action via feasibility
// resolution.
//
// Grounded on the teacher's internal/llm/client.go (Client, rate-limiting
// mu/callCount/resetAt, 30s http.Client timeout, request/response JSON
// shapes) kept almost verbatim — HTTP transport and backoff are exactly the
// kind of ambient concern that should stay teacher-shaped regardless of
// what the call is used for — and on cognition.go's
// buildTier2SystemPrompt/buildTier2UserPrompt/parseTier2Response idiom
// (system prompt states persona + response contract, user prompt carries
// situational data, response is JSON-array-embedded-in-prose that gets
// sliced out by bracket search before unmarshaling).
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/feasibility"
	"github.com/talgya/crossroads/internal/perception"
)

const (
	llmAPIURL     = "https://api.anthropic.com/v1/messages"
	llmAPIVersion = "2023-06-01"
	llmModel      = "claude-haiku-4-5-20251001"
)

// LLMClient wraps the Anthropic Messages API, rate-limited to maxPerMin
// calls, exactly as the teacher's llm.Client does.
type LLMClient struct {
	apiKey     string
	apiURL     string // overridable in tests; defaults to llmAPIURL
	httpClient *http.Client

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewLLMClient constructs a client. Returns nil if apiKey is empty (LLM
// decisions disabled — callers should fall back to Stub or
// RuleEngineAdapter).
func NewLLMClient(apiKey string) *LLMClient {
	if apiKey == "" {
		return nil
	}
	return &LLMClient{
		apiKey:     apiKey,
		apiURL:     llmAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxPerMin:  20,
	}
}

// Enabled reports whether the client has a usable API key.
func (c *LLMClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []llmMessage `json:"messages"`
}

type llmResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// complete sends one prompt and returns the model's text, honoring the
// per-minute call budget.
func (c *LLMClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm client not configured")
	}

	c.mu.Lock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		c.mu.Unlock()
		return "", fmt.Errorf("rate limit exceeded (%d calls/min)", c.maxPerMin)
	}
	c.callCount++
	c.mu.Unlock()

	body, err := json.Marshal(llmRequest{
		Model:     llmModel,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []llmMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", llmAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed llmResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return parsed.Content[0].Text, nil
}

// llmChoice is the shape one agent's decision takes in the model's JSON
// reply.
type llmChoice struct {
	Action string `json:"action"`
	Reason string `json:"reasoning"`
}

// LLMAdapter implements Source by asking an LLMClient, one call per agent,
// what that agent does this tick. A call failure, a malformed response, or
// a disabled client all degrade that single agent to NoAction rather than
// failing the tick — spec §6 reserves true escalation (tick abort) for
// clock/weather errors only.
type LLMAdapter struct {
	Client *LLMClient
}

// CollectDecisions fans out one goroutine per agent, each bounded by ctx's
// deadline (set by tickcycle's cfg.DecisionTimeout), and joins all of them
// before returning — spec §5's requirement that the decision source "may
// fan out to worker tasks" but still completes as one bounded unit before
// Resolution begins. decideOne never returns an error (a failed call just
// degrades to NoAction), so errgroup here only supplies the join, not error
// propagation: the context from errgroup.WithContext is never cancelled by
// a failing goroutine, so one agent's failure never cancels another's call.
// Results are collected into a map guarded by its own mutex.
func (a *LLMAdapter) CollectDecisions(ctx context.Context, tick uint64, perceptions map[agent.ID]perception.Perception) map[agent.ID]action.Action {
	out := make(map[agent.ID]action.Action, len(perceptions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for id, p := range perceptions {
		id, p := id, p
		g.Go(func() error {
			act := a.decideOne(gctx, tick, id, p)
			mu.Lock()
			out[id] = act
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return out
}

func (a *LLMAdapter) decideOne(ctx context.Context, tick uint64, id agent.ID, p perception.Perception) action.Action {
	fallback := action.Action{AgentID: id, Kind: action.NoAction, SubmittedTick: tick}
	if a.Client == nil || !a.Client.Enabled() {
		return fallback
	}

	text, err := a.Client.complete(ctx, systemPrompt(p), userPrompt(p), 200)
	if err != nil {
		return fallback
	}

	choice, err := parseChoice(text)
	if err != nil {
		return fallback
	}

	result := feasibility.Evaluate(choice.Action)
	act := fallback
	switch result.Outcome {
	case feasibility.Feasible:
		act = result.Resolved
	case feasibility.NeedsEvaluation:
		act = action.Action{Kind: action.Freeform, Params: action.Params{Message: result.Context}}
	default:
		act = action.Action{Kind: action.NoAction}
	}
	act.AgentID = id
	act.SubmittedTick = tick
	return act
}

func systemPrompt(p perception.Perception) string {
	return fmt.Sprintf(
		`You are an agent in a survival simulation. Tick %d, %s, season %s, weather %s.
Health %d, Energy %d, Hunger %d, Thirst %d. Carrying %s.
Respond with a single JSON object: {"action": "...", "reasoning": "..."}.
The action should be a short phrase describing what you do this tick (e.g. "gather wood", "rest", "drink water", "move to the river").`,
		p.Tick, p.TimeOfDay, p.Season, p.Weather,
		p.Self.Health, p.Self.Energy, p.Self.Hunger, p.Self.Thirst, p.Self.CarryLoad,
	)
}

func userPrompt(p perception.Perception) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are at %s.\n", p.Surroundings.LocationName)
	if len(p.Self.Goals) > 0 {
		fmt.Fprintf(&b, "Your goals: %s\n", strings.Join(p.Self.Goals, "; "))
	}
	if len(p.RecentMemory) > 0 {
		b.WriteString("Recent memories:\n")
		for _, m := range p.RecentMemory {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	if len(p.Notifications) > 0 {
		b.WriteString("Notifications:\n")
		for _, n := range p.Notifications {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	b.WriteString("What do you do?")
	return b.String()
}

func parseChoice(response string) (llmChoice, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return llmChoice{}, fmt.Errorf("no JSON object found in response")
	}
	var choice llmChoice
	if err := json.Unmarshal([]byte(response[start:end+1]), &choice); err != nil {
		return llmChoice{}, fmt.Errorf("parse choice: %w", err)
	}
	if choice.Action == "" {
		return llmChoice{}, fmt.Errorf("empty action")
	}
	return choice, nil
}
