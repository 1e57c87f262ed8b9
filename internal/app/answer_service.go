package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/store"
	"docuchat/internal/websearch"
)

// Generator streams a completion for a prompt.
type Generator interface {
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

// WebSearcher fetches web snippets for a question.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// QueryEmbeddingCache remembers query embeddings across turns.
type QueryEmbeddingCache interface {
	Get(ctx context.Context, embedModel, text string) ([]float32, bool, error)
	Set(ctx context.Context, embedModel, text string, vec []float32) error
}

const answerPromptTemplate = `
Based on the following information sources, answer the user's question.
If using information from web search, explicitly mention that the information comes from the web.
If using information from local documents, mention that as well.
If you find conflicting information between sources, acknowledge this and explain the differences.

%s

User Question: %s
Answer (please format in markdown):
`

const noContextFallback = "No relevant information found in local documents or web search."

// AnswerService answers a question by merging local retrieval with a
// web search into one prompt and streaming the completion. Web search
// runs on every question; its results complement the local documents
// rather than replace them.
type AnswerService struct {
	store      store.Store
	embedder   Embedder
	generator  Generator
	searcher   WebSearcher
	embedCache QueryEmbeddingCache // nil = cache disabled
	embedModel string
	topK       int
	threshold  float64
}

func NewAnswerService(
	st store.Store,
	embedder Embedder,
	generator Generator,
	searcher WebSearcher,
	embedCache QueryEmbeddingCache,
	embedModel string,
	topK int,
	threshold float64,
) *AnswerService {
	if topK <= 0 {
		topK = 4
	}
	return &AnswerService{
		store:      st,
		embedder:   embedder,
		generator:  generator,
		searcher:   searcher,
		embedCache: embedCache,
		embedModel: embedModel,
		topK:       topK,
		threshold:  threshold,
	}
}

type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Answer retrieves context for the question and streams the generated
// reply through onToken. The returned sources name the document files
// and web result titles that actually went into the prompt; a source
// that failed or matched nothing contributes neither context nor a
// source entry. Only a generation failure is returned as an error.
func (s *AnswerService) Answer(ctx context.Context, question string, onToken func(chunk string) error) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	// Local retrieval and web search are independent; run both at
	// once and join before prompt assembly.
	var (
		wg         sync.WaitGroup
		localHits  []model.ScoredChunk
		webResults []websearch.Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		hits, err := s.retrieveLocal(ctx, question)
		if err != nil {
			log.Printf("local retrieval failed, continuing without documents: %v", err)
			return
		}
		localHits = hits
	}()
	go func() {
		defer wg.Done()
		results, err := s.searcher.Search(ctx, question)
		if err != nil {
			log.Printf("web search failed, continuing without web results: %v", err)
			return
		}
		webResults = results
	}()
	wg.Wait()

	contextBlock, sources := buildContext(localHits, webResults)
	prompt := fmt.Sprintf(answerPromptTemplate, contextBlock, question)

	messages := []ai.ChatMessage{{Role: "user", Content: prompt}}
	full, err := s.generator.StreamComplete(ctx, messages, onToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if sources == nil {
		// The sources frame carries an empty array, never null.
		sources = []string{}
	}
	return &AnswerResult{Answer: full, Sources: sources}, nil
}

// retrieveLocal embeds the question and searches the store. The cache
// sits in front of the embedder; cache trouble only costs the shortcut.
func (s *AnswerService) retrieveLocal(ctx context.Context, question string) ([]model.ScoredChunk, error) {
	vec, err := s.embedQuestion(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}
	return s.store.Search(ctx, vec, s.topK, s.threshold)
}

func (s *AnswerService) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if s.embedCache != nil {
		if vec, hit, err := s.embedCache.Get(ctx, s.embedModel, question); err == nil && hit {
			return vec, nil
		} else if err != nil {
			log.Printf("embedding cache read failed: %v", err)
		}
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	if s.embedCache != nil {
		if err := s.embedCache.Set(ctx, s.embedModel, question, vec); err != nil {
			log.Printf("embedding cache write failed: %v", err)
		}
	}
	return vec, nil
}

// buildContext assembles the prompt context from whatever the two
// sources produced, and the matching source list: document names for
// local hits, result titles for web hits, distinct, in retrieval order.
func buildContext(localHits []model.ScoredChunk, webResults []websearch.Result) (string, []string) {
	var (
		parts   []string
		sources []string
	)

	if len(localHits) > 0 {
		texts := make([]string, len(localHits))
		for i, hit := range localHits {
			texts[i] = hit.Chunk.Content
			name := hit.DocumentName
			if name == "" {
				name = "Local documents"
			}
			sources = appendDistinct(sources, name)
		}
		parts = append(parts, "Information from local documents:\n"+strings.Join(texts, "\n"))
	}

	var snippets []string
	for _, r := range webResults {
		text := strings.TrimSpace(r.Snippet)
		if text == "" {
			continue
		}
		snippets = append(snippets, text)
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = "Web search"
		}
		sources = appendDistinct(sources, title)
	}
	if len(snippets) > 0 {
		parts = append(parts, "Information from web search:\n"+strings.Join(snippets, "\n"))
	}

	if len(parts) == 0 {
		return noContextFallback, sources
	}
	return strings.Join(parts, "\n\n---\n\n"), sources
}

func appendDistinct(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
