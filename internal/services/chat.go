package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/ferag-backend/internal/data/repos"
	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/graph/naming"
	"github.com/yungbote/ferag-backend/internal/observability"
	"github.com/yungbote/ferag-backend/internal/pkg/dbctx"
	"github.com/yungbote/ferag-backend/internal/platform/apierr"
	"github.com/yungbote/ferag-backend/internal/platform/llm"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

const (
	chatMaxTokens = 1024

	chatInstruction = "Answer the user's question using only the knowledge graph context below. " +
		"If the context does not contain the answer, say so."
)

// GraphQuerier runs SELECT queries against a dataset.
type GraphQuerier interface {
	Select(ctx context.Context, dataset, query string) (*fuseki.SelectResult, error)
}

type ChatAnswer struct {
	Answer      string `json:"answer"`
	ContextUsed int    `json:"context_used"`
}

type ChatService interface {
	Ask(ctx context.Context, userID, ragID uint, question string) (*ChatAnswer, error)
}

type chatService struct {
	log     *logger.Logger
	rags    repos.RagRepo
	graph   GraphQuerier
	llm     llm.Completer
	metrics *observability.Metrics
}

func NewChatService(log *logger.Logger, rags repos.RagRepo, graph GraphQuerier, completer llm.Completer, metrics *observability.Metrics) ChatService {
	return &chatService{
		log:     log.With("service", "ChatService"),
		rags:    rags,
		graph:   graph,
		llm:     completer,
		metrics: metrics,
	}
}

// Ask answers question from the RAG's prod dataset. The model sees only the
// context built from the question's keywords.
func (s *chatService) Ask(ctx context.Context, userID, ragID uint, question string) (*ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apierr.BadRequest("invalid_question", errors.New("question is required"))
	}
	inst, err := visibleRag(dbctx.Context{Ctx: ctx}, s.rags, ragID, userID)
	if err != nil {
		return nil, err
	}
	dataset := inst.FusekiDataset
	if dataset == "" {
		if dataset, err = naming.Prod(ragID); err != nil {
			return nil, err
		}
	}

	graphCtx, err := BuildContext(ctx, s.graph, dataset, question)
	if err != nil {
		return nil, storeFailure("build chat context", err)
	}

	start := time.Now()
	answer, err := s.llm.Complete(ctx, BuildPrompt(graphCtx, question), llm.CompletionOptions{
		MaxTokens:   chatMaxTokens,
		Temperature: 0,
	})
	s.metrics.ObserveLLM("chat", err, time.Since(start))
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return nil, apierr.New(http.StatusBadGateway, "empty_answer", errors.New("LLM returned an empty response"))
	}
	if err != nil {
		s.log.Warn("chat completion failed", "rag_id", ragID, "error", err)
		return nil, apierr.New(http.StatusBadGateway, "llm_error", fmt.Errorf("LLM error: %w", err))
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, apierr.New(http.StatusBadGateway, "empty_answer", errors.New("LLM returned an empty response"))
	}
	return &ChatAnswer{Answer: answer, ContextUsed: len(graphCtx)}, nil
}

func BuildPrompt(graphCtx, question string) string {
	return chatInstruction + "\n\n--- Graph context ---\n" + graphCtx + "\n\n--- Question ---\n" + question
}
