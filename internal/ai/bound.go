package ai

import "context"

// BoundOllama pairs a client with fixed chat and embedding models so
// callers do not thread configuration through every call.
type BoundOllama struct {
	client *OllamaClient
	chat   ChatConfig
	embed  EmbeddingConfig
}

func NewBoundOllama(client *OllamaClient, chat ChatConfig, embed EmbeddingConfig) *BoundOllama {
	return &BoundOllama{client: client, chat: chat, embed: embed}
}

func (b *BoundOllama) StreamComplete(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error) {
	return b.client.StreamComplete(ctx, b.chat, messages, onChunk)
}

func (b *BoundOllama) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.client.Embed(ctx, b.embed, text)
}

func (b *BoundOllama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return b.client.EmbedBatch(ctx, b.embed, texts)
}
