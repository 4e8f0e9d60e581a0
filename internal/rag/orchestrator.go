package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docutor/internal/llm"
	"docutor/internal/memory"
	"docutor/internal/vectorstore"
)

const systemPrompt = `You are a helpful document tutor. Answer the user's question using the provided context from their uploaded documents and the conversation so far. If the context does not contain enough information, say so instead of guessing.`

// Retriever is the slice of the vector index the query path needs.
type Retriever interface {
	GetOrCreateCollection(ctx context.Context, ownerID int64) (*vectorstore.Collection, error)
	Query(ctx context.Context, coll *vectorstore.Collection, queryText string, k int) ([]vectorstore.SearchResult, error)
}

// Memory is the slice of the conversation store the query path needs.
type Memory interface {
	RecentHistory(ctx context.Context, sessionID string, k int) ([]memory.QA, error)
	RecordTurn(ctx context.Context, sessionID string, ownerID int64, question, answer string) error
}

// Orchestrator runs one query end to end: retrieve, assemble, generate,
// record, respond.
type Orchestrator struct {
	index    Retriever
	memory   Memory
	gateway  llm.Gateway
	topK     int
	historyK int
}

func NewOrchestrator(index Retriever, mem Memory, gw llm.Gateway, topK, historyK int) *Orchestrator {
	if topK <= 0 {
		topK = 4
	}
	if historyK <= 0 {
		historyK = 10
	}
	return &Orchestrator{index: index, memory: mem, gateway: gw, topK: topK, historyK: historyK}
}

type AnswerRequest struct {
	OwnerID   int64  `json:"-"`
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type AnswerResponse struct {
	Answer    string                    `json:"answer"`
	SessionID string                    `json:"session_id"`
	Sources   []vectorstore.SearchResult `json:"sources,omitempty"`
	Model     string                    `json:"model"`
	Tokens    int                       `json:"tokens"`
}

// Answer handles one conversational query. Retrieval failures degrade to an
// empty context — a user with no documents yet is an expected state, not an
// error. Generation failures surface to the caller and record nothing.
func (o *Orchestrator) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	results := o.retrieve(ctx, req.OwnerID, req.Question)

	history, err := o.memory.RecentHistory(ctx, req.SessionID, o.historyK)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	resp, err := o.gateway.Chat(ctx, llm.ChatRequest{
		Messages: assemble(req.Question, history, results),
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)

	// The answer must be durable before the caller sees it, or the next turn
	// loses this exchange.
	if err := o.memory.RecordTurn(ctx, req.SessionID, req.OwnerID, req.Question, answer); err != nil {
		return nil, err
	}

	return &AnswerResponse{
		Answer:    answer,
		SessionID: req.SessionID,
		Sources:   results,
		Model:     resp.Model,
		Tokens:    resp.TotalTokens,
	}, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, ownerID int64, question string) []vectorstore.SearchResult {
	coll, err := o.index.GetOrCreateCollection(ctx, ownerID)
	if err != nil {
		slog.Warn("retrieval unavailable, answering without context",
			"owner_id", ownerID, "error", err)
		return nil
	}

	results, err := o.index.Query(ctx, coll, question, o.topK)
	if err != nil {
		slog.Warn("retrieval failed, answering without context",
			"owner_id", ownerID, "error", err)
		return nil
	}
	return results
}

// assemble builds the chat messages: system instruction, the recent history
// as alternating turns oldest first, then the question grounded in retrieved
// chunks. Turns without an answer are excluded.
func assemble(question string, history []memory.QA, results []vectorstore.SearchResult) []llm.Message {
	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}

	for _, qa := range history {
		if qa.Answer == "" {
			continue
		}
		msgs = append(msgs,
			llm.Message{Role: "user", Content: qa.Question},
			llm.Message{Role: "assistant", Content: qa.Answer},
		)
	}

	msgs = append(msgs, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Context:\n%s\nQuestion: %s", buildContext(results), question),
	})
	return msgs
}

func buildContext(results []vectorstore.SearchResult) string {
	if len(results) == 0 {
		return "(no documents found)\n"
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[Source %d: %s] (score: %.3f)\n%s\n\n", i+1, r.SourceFilename, r.Score, r.Text)
	}
	return sb.String()
}
