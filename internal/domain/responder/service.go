package responder

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/yanqian/review-responder/internal/domain/faq"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
	"github.com/yanqian/review-responder/pkg/pacer"
)

// Service drafts replies to customer reviews grounded on FAQ matches.
type Service struct {
	cfg       Config
	retriever Retriever
	llm       LLM
	pacer     *pacer.Pacer
	logger    *slog.Logger
}

// NewService wires up the responder.
func NewService(cfg Config, retriever Retriever, llm LLM, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg.withDefaults(),
		retriever: retriever,
		llm:       llm,
		pacer:     pacer.New(),
		logger:    logger.With("component", "responder.service"),
	}
}

// Respond generates a three-paragraph reply. Model failures degrade to a
// canned reply that still lists relevant FAQ answers.
func (s *Service) Respond(ctx context.Context, req Request) (Response, error) {
	review := strings.TrimSpace(req.Review)
	if review == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "review cannot be empty", nil)
	}
	voice := strings.TrimSpace(req.BrandVoice)
	if voice == "" {
		voice = s.cfg.DefaultBrandVoice
	}

	matches := s.lookupMatches(ctx, review)
	resp := Response{
		ID:        uuid.NewString(),
		Sentiment: SentimentNeutral,
		Matches:   matches,
	}

	if err := s.pacer.Wait(ctx, s.cfg.Pacing); err != nil {
		return Response{}, err
	}
	resp.Sentiment = s.analyzeSentiment(ctx, review)

	rules := rulesFor(req.Rating, resp.Sentiment, s.cfg.Brand)
	grounding := matches
	if len(grounding) > s.cfg.ContextSize {
		grounding = grounding[:s.cfg.ContextSize]
	}
	prompt := buildReplyPrompt(promptInput{
		Review:     review,
		Rating:     req.Rating,
		Sentiment:  resp.Sentiment,
		BrandVoice: voice,
		Brand:      s.cfg.Brand,
		Rules:      rules,
		Matches:    grounding,
	})

	raw, err := s.llm.Chat(ctx, []Message{{Role: "system", Content: prompt}}, CompletionOptions{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err == nil && strings.TrimSpace(raw) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		s.logger.Warn("reply generation failed, using fallback", "rating", req.Rating, "error", err)
		resp.Reply = fallbackReply(req.Rating, matches)
		resp.Source = SourceFallback
		return resp, nil
	}

	resp.Reply = formatReply(raw)
	resp.Source = SourceLLM
	return resp, nil
}

func (s *Service) lookupMatches(ctx context.Context, review string) []faq.Match {
	if s.retriever == nil {
		return []faq.Match{}
	}
	result, err := s.retriever.FindMatches(ctx, review, faq.SearchOptions{})
	if err != nil {
		s.logger.Warn("faq lookup failed, replying without context", "error", err)
		return []faq.Match{}
	}
	if result.Matches == nil {
		return []faq.Match{}
	}
	return result.Matches
}

func (s *Service) analyzeSentiment(ctx context.Context, review string) Sentiment {
	raw, err := s.llm.Chat(ctx, []Message{
		{Role: "system", Content: sentimentPrompt},
		{Role: "user", Content: review},
	}, CompletionOptions{Model: s.cfg.SentimentModel, MaxTokens: 10})
	if err != nil {
		s.logger.Warn("sentiment analysis failed", "error", err)
		return SentimentNeutral
	}
	return parseSentiment(raw)
}
