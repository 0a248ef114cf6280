package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/metrics"
)

// Token budgets for the two request phases.
const (
	chunkPredict = 200
	finalPredict = 500
)

// Classifier implements filing.Classifier against a generation Client. Long
// documents are split into word chunks, summarized independently, and
// consolidated in one final request.
type Classifier struct {
	client     *Client
	chunkWords int
	logger     *zap.Logger
}

// NewClassifier builds a Classifier. chunkWords defaults to 8000.
func NewClassifier(client *Client, chunkWords int, logger *zap.Logger) *Classifier {
	if chunkWords <= 0 {
		chunkWords = 8000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{client: client, chunkWords: chunkWords, logger: logger}
}

var _ filing.Classifier = (*Classifier)(nil)

// Classify produces a structured impact assessment. The returned impact is
// always an integer in [-100, 100]; an error means the external call itself
// failed and the caller should fall back to the heuristic.
func (c *Classifier) Classify(ctx context.Context, req filing.ClassifyRequest) (filing.Classification, error) {
	words := strings.Fields(req.Text)

	var replyText string
	var err error
	if len(words) > c.chunkWords {
		replyText, err = c.classifyChunked(ctx, req, words)
	} else {
		replyText, err = c.client.Generate(ctx, buildSinglePrompt(req), finalPredict)
	}
	if err != nil {
		metrics.ObserveAIRequest("error")
		return filing.Classification{}, err
	}

	result := parseReply(replyText)
	if len(result.Reasons) == 1 && result.Reasons[0] == unparsedReason {
		metrics.ObserveAIRequest("parse_fallback")
	} else {
		metrics.ObserveAIRequest("ok")
	}
	return result, nil
}

// classifyChunked runs the two-phase flow: summarize each chunk, then
// consolidate the summaries with the structured fields.
func (c *Classifier) classifyChunked(ctx context.Context, req filing.ClassifyRequest, words []string) (string, error) {
	chunks := splitWords(words, c.chunkWords)
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		c.logger.Debug("summarizing chunk",
			zap.Int("chunk", i+1),
			zap.Int("chunks", len(chunks)),
			zap.String("form_type", req.FormType),
			zap.String("company", req.Company),
		)
		summary, err := c.client.Generate(ctx, buildChunkPrompt(req, chunk), chunkPredict)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		summaries = append(summaries, strings.TrimSpace(summary))
	}
	return c.client.Generate(ctx, buildConsolidationPrompt(req, summaries), finalPredict)
}

func splitWords(words []string, size int) []string {
	var chunks []string
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
