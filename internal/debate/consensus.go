// Package debate implements the multi-expert-vote-then-judge procedure that
// decides whether a causal edge exists between two events and its polarity.
package debate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/useCases"
)

// expertRole pairs an expert name with its static role description.
type expertRole struct {
	Name        string
	Description string
}

// The expert panel is fixed and ordered; prompts are issued sequentially.
var expertRoles = []expertRole{
	{"temporal", "Expert in temporal precedence and lag reasonableness in financial events."},
	{"discourse", "Expert in entity/discourse linking for financial text."},
	{"precondition", "Expert in financial preconditions and enabling constraints."},
	{"commonsense", "Expert in pragmatic market-specific causal logic."},
}

const judgeRole = "You are the judge that determines if a CAUSAL edge exists and its POLARITY (+1 bullish or -1 bearish)."

// Engine runs the consensus procedure against a completion backend.
type Engine struct {
	client useCases.Completer
	rounds int
	log    *slog.Logger
}

// NewEngine creates a consensus engine with the configured round count
// (minimum 1).
func NewEngine(client useCases.Completer, rounds int, log *slog.Logger) *Engine {
	if rounds < 1 {
		rounds = 1
	}
	return &Engine{client: client, rounds: rounds, log: log}
}

// RunDebate evaluates one (cause, effect) pair. Per round each expert is
// prompted once; only the final round's outputs are retained (explicit
// one-shot-per-round semantics). A single judge call then rules over the
// retained outputs. Malformed completion text degrades to neutral fallback
// votes and never raises; only transport/auth failures of the completion
// call return an error, which the caller treats as fatal to this one pair.
func (e *Engine) RunDebate(ctx context.Context, cause, effect *model.Event, metadata map[string]any) (*model.ConsensusResult, error) {
	var experts []model.ExpertOpinion
	for r := 0; r < e.rounds; r++ {
		experts = experts[:0]
		for _, role := range expertRoles {
			prompt := buildExpertPrompt(role.Description, cause.Summary, effect.Summary, metadata)
			text, err := e.client.Complete(ctx, prompt)
			if err != nil {
				return nil, fmt.Errorf("expert %s completion: %w", role.Name, err)
			}
			op := parseExpert(text)
			op.Role = role.Name
			if op.Rationale == parseErrorRationale {
				e.log.Warn("expert response failed to parse", "role", role.Name)
			}
			experts = append(experts, op)
		}
	}

	jprompt := buildJudgePrompt(experts, cause.Summary, effect.Summary)
	jtext, err := e.client.Complete(ctx, jprompt)
	if err != nil {
		return nil, fmt.Errorf("judge completion: %w", err)
	}
	judge := parseJudge(jtext)
	if judge.Rationale == parseErrorRationale {
		e.log.Warn("judge response failed to parse")
	}

	return &model.ConsensusResult{
		Experts: append([]model.ExpertOpinion{}, experts...),
		Judge:   judge,
	}, nil
}

const parseErrorRationale = "parse_error"

// Wire shapes use float64 throughout so integral fields serialized as
// "1.0" still parse; values are truncated to ints afterwards.
type expertWire struct {
	Vote       float64 `json:"vote"`
	Polarity   float64 `json:"polarity"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type judgeWire struct {
	Edge       float64 `json:"edge"`
	Polarity   float64 `json:"polarity"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

func parseExpert(text string) model.ExpertOpinion {
	var w expertWire
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &w); err != nil {
		return model.ExpertOpinion{Vote: 0, Polarity: 0, Confidence: 0, Rationale: parseErrorRationale}
	}
	return model.ExpertOpinion{
		Vote:       int(w.Vote),
		Polarity:   int(w.Polarity),
		Confidence: w.Confidence,
		Rationale:  w.Rationale,
	}
}

func parseJudge(text string) model.JudgeDecision {
	var w judgeWire
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &w); err != nil {
		return model.JudgeDecision{Edge: 0, Polarity: 0, Confidence: 0, Rationale: parseErrorRationale}
	}
	return model.JudgeDecision{
		Edge:       int(w.Edge),
		Polarity:   int(w.Polarity),
		Confidence: w.Confidence,
		Rationale:  w.Rationale,
	}
}

func buildExpertPrompt(role, summaryCause, summaryEffect string, metadata map[string]any) string {
	meta, _ := json.Marshal(metadata)
	var b strings.Builder
	b.WriteString("You are the " + role + "\n")
	b.WriteString("Decide if CAUSE (A) could causally influence EFFECT (B).\n")
	b.WriteString("Respond as JSON:{\n")
	b.WriteString("  \"vote\": 0 or 1,\n")
	b.WriteString("  \"polarity\": -1 or 1 or 0,\n")
	b.WriteString("  \"confidence\": 0..1,\n")
	b.WriteString("  \"rationale\": \"one sentence\"\n")
	b.WriteString("}\n")
	b.WriteString("A: " + summaryCause + "\n")
	b.WriteString("B: " + summaryEffect + "\n")
	b.WriteString("Metadata: " + string(meta) + "\n")
	b.WriteString("Output ONLY the JSON.")
	return b.String()
}

func buildJudgePrompt(experts []model.ExpertOpinion, summaryCause, summaryEffect string) string {
	expertJSON, _ := json.Marshal(experts)
	var b strings.Builder
	b.WriteString(judgeRole + "\n")
	b.WriteString("Return JSON:{\n")
	b.WriteString("  \"edge\": 0 or 1,\n")
	b.WriteString("  \"polarity\": -1 or 1 or 0,\n")
	b.WriteString("  \"confidence\": 0..1,\n")
	b.WriteString("  \"rationale\": \"short reason\"\n")
	b.WriteString("}\n")
	b.WriteString("Experts: " + string(expertJSON) + "\n")
	b.WriteString("A: " + summaryCause + "\n")
	b.WriteString("B: " + summaryEffect + "\n")
	b.WriteString("Output ONLY the JSON.")
	return b.String()
}
