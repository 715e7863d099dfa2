package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/core/ports"
)

const (
	stageDetectTranslate = "detect_translate"
	stageDomainCheck     = "domain_check"
	stageRefusal         = "refusal"
	stageRewrite         = "rewrite"
	stageRetrieve        = "retrieve"
	stageFilter          = "filter"
	stageAnswer          = "answer"
	stageBackTranslate   = "back_translate"
)

// PipelineOptions toggles policy-configurable pipeline behavior.
type PipelineOptions struct {
	// FilterResults enables the per-result relevance filter between
	// retrieval and answer synthesis.
	FilterResults bool
}

// Pipeline is the query-processing state machine. One Ask call is one run;
// runs share nothing but the read-only collaborators, so any number of them
// may execute concurrently.
type Pipeline struct {
	llm       ports.ModelProvider
	retriever ports.Retriever
	gate      *RelevanceGate
	opts      PipelineOptions
	logger    *slog.Logger
}

func NewPipeline(llm ports.ModelProvider, retriever ports.Retriever, gate *RelevanceGate, opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		llm:       llm,
		retriever: retriever,
		gate:      gate,
		opts:      opts,
		logger:    logger,
	}
}

// run carries the per-invocation state. Owned by a single Ask call.
type run struct {
	query      domain.Query
	tally      domain.UsageTally
	inDomain   bool
	results    []domain.RankedResult
	answerText string
	trace      []domain.State
}

func (p *Pipeline) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}

	r := &run{query: domain.Query{RawText: question}}
	state := domain.StateReceived
	r.trace = append(r.trace, state)

	for state != domain.StateFinalized {
		next, err := p.advance(ctx, state, r)
		if err != nil {
			p.logger.Error("pipeline run aborted", "state", string(state), "error", err)
			return nil, err
		}
		p.logger.Debug("pipeline transition", "from", string(state), "to", string(next))
		state = next
		r.trace = append(r.trace, state)
	}

	return &domain.Answer{
		Text:           r.answerText,
		Language:       r.query.DetectedLanguage,
		OutOfDomain:    !r.inDomain,
		Tally:          r.tally,
		RetrievedCount: len(r.results),
		Trace:          r.trace,
	}, nil
}

// advance executes the single transition out of state. The branch at
// DomainChecked is the only fork in the machine; every other state has
// exactly one successor.
func (p *Pipeline) advance(ctx context.Context, state domain.State, r *run) (domain.State, error) {
	switch state {
	case domain.StateReceived:
		return p.detectAndTranslate(ctx, r)
	case domain.StateLanguageDetected:
		return p.checkDomain(ctx, r)
	case domain.StateDomainChecked:
		if !r.inDomain {
			return p.refuse(ctx, r)
		}
		return p.rewrite(ctx, r)
	case domain.StateQueryRewritten:
		return p.retrieve(ctx, r)
	case domain.StateRetrieved:
		return p.filter(ctx, r)
	case domain.StateFiltered:
		return p.answer(ctx, r)
	case domain.StateAnswered, domain.StateOutOfDomainAnswered:
		return p.finalize(ctx, r)
	default:
		return "", domain.WrapError(domain.ErrPipeline, "advance", fmt.Errorf("unexpected state %q", state))
	}
}

func (p *Pipeline) detectAndTranslate(ctx context.Context, r *run) (domain.State, error) {
	completion, err := p.llm.Complete(ctx, buildDetectTranslatePrompt(r.query.RawText))
	if err != nil {
		return "", domain.WrapError(domain.ErrPipeline, stageDetectTranslate, err)
	}
	r.tally.RecordUsage(completion.Usage, stageDetectTranslate)

	language, translation, err := parseDetectTranslate(completion.Text)
	if err != nil {
		return "", err
	}
	r.query.DetectedLanguage = language
	if language == workingLanguage {
		// Keep the user's own wording when no translation is needed.
		r.query.TranslatedText = r.query.RawText
	} else {
		r.query.TranslatedText = translation
	}
	return domain.StateLanguageDetected, nil
}

func (p *Pipeline) checkDomain(ctx context.Context, r *run) (domain.State, error) {
	inDomain, usage, err := p.gate.IsInDomain(ctx, r.query.TranslatedText)
	if err != nil {
		return "", domain.WrapError(domain.ErrPipeline, stageDomainCheck, err)
	}
	r.tally.RecordUsage(usage, stageDomainCheck)
	r.inDomain = inDomain
	return domain.StateDomainChecked, nil
}

func (p *Pipeline) refuse(ctx context.Context, r *run) (domain.State, error) {
	completion, err := p.llm.Complete(ctx, buildRefusalPrompt(r.query.TranslatedText))
	if err != nil {
		return "", domain.WrapError(domain.ErrPipeline, stageRefusal, err)
	}
	r.tally.RecordUsage(completion.Usage, stageRefusal)
	r.answerText = strings.TrimSpace(completion.Text)
	return domain.StateOutOfDomainAnswered, nil
}

func (p *Pipeline) rewrite(ctx context.Context, r *run) (domain.State, error) {
	completion, err := p.llm.Complete(ctx, buildRewritePrompt(r.query.TranslatedText))
	switch {
	case err == nil && strings.TrimSpace(completion.Text) != "":
		r.tally.RecordUsage(completion.Usage, stageRewrite)
		r.query.RewrittenText = firstLine(completion.Text)
	case err != nil && isTimeout(err):
		return "", domain.WrapError(domain.ErrPipeline, stageRewrite, err)
	default:
		// A failed rewrite only costs match quality; search with the
		// translated query instead of aborting.
		p.logger.Warn("query rewrite failed, using translated query", "error", err)
		r.query.RewrittenText = r.query.TranslatedText
	}
	return domain.StateQueryRewritten, nil
}

func (p *Pipeline) retrieve(ctx context.Context, r *run) (domain.State, error) {
	results, err := p.retriever.Retrieve(ctx, r.query.RewrittenText)
	if err != nil {
		return "", fmt.Errorf("%s: %w", stageRetrieve, err)
	}
	r.results = results
	r.tally.Record(estimateTokens(r.query.RewrittenText), domain.UsageOverhead, stageRetrieve)
	return domain.StateRetrieved, nil
}

// filter asks a binary relevance question per result against the original
// translated query; the rewritten form is deliberately not used here to
// avoid compounding rewrite drift.
func (p *Pipeline) filter(ctx context.Context, r *run) (domain.State, error) {
	if !p.opts.FilterResults || len(r.results) == 0 {
		return domain.StateFiltered, nil
	}

	kept := make([]domain.RankedResult, 0, len(r.results))
	for _, result := range r.results {
		completion, err := p.llm.Complete(ctx, buildFilterPrompt(r.query.TranslatedText, result.Source.Content))
		if err != nil {
			if isTimeout(err) {
				return "", domain.WrapError(domain.ErrPipeline, stageFilter, err)
			}
			p.logger.Warn("relevance filter call failed, keeping result", "chunk_id", result.ChunkID, "error", err)
			kept = append(kept, result)
			continue
		}
		r.tally.RecordUsage(completion.Usage, stageFilter)
		if isAffirmative(completion.Text) {
			kept = append(kept, result)
		}
	}

	if len(kept) == 0 {
		// An overly strict filter must not turn a retrievable answer into
		// "insufficient information"; fall back to the unfiltered set.
		p.logger.Warn("relevance filter emptied result set, using unfiltered results", "results", len(r.results))
		return domain.StateFiltered, nil
	}
	r.results = kept
	return domain.StateFiltered, nil
}

func (p *Pipeline) answer(ctx context.Context, r *run) (domain.State, error) {
	contexts := make([]retrievedContext, 0, len(r.results))
	for _, result := range r.results {
		contexts = append(contexts, retrievedContext{
			Header:  result.Source.Header,
			Content: result.Source.Content,
			URL:     result.Source.SourceURL,
		})
	}

	completion, err := p.llm.Complete(ctx, buildAnswerPrompt(r.query.TranslatedText, contexts))
	if err != nil {
		return "", domain.WrapError(domain.ErrPipeline, stageAnswer, err)
	}
	r.tally.RecordUsage(completion.Usage, stageAnswer)
	r.answerText = extractAnswer(completion.Text)
	return domain.StateAnswered, nil
}

func (p *Pipeline) finalize(ctx context.Context, r *run) (domain.State, error) {
	if r.query.DetectedLanguage == workingLanguage {
		return domain.StateFinalized, nil
	}

	completion, err := p.llm.Complete(ctx, buildBackTranslatePrompt(r.answerText, r.query.DetectedLanguage))
	if err != nil {
		return "", domain.WrapError(domain.ErrPipeline, stageBackTranslate, err)
	}
	r.tally.RecordUsage(completion.Usage, stageBackTranslate)
	r.answerText = strings.TrimSpace(completion.Text)
	return domain.StateFinalized, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// estimateTokens approximates the embedding cost of a query; the embedding
// provider does not report token counts.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}
