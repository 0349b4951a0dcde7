package embed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Memora/internal/core"
)

// Service embeds text through the configured provider in batches, retrying
// transient failures with exponential backoff. When a batch cannot be
// embedded at all it degrades to the deterministic local fallback so
// ingestion never stalls on a flaky provider.
type Service struct {
	provider  core.EmbeddingProvider
	fallback  *FallbackProvider
	batchSize int

	newBackOff func() backoff.BackOff
}

const defaultBatchSize = 16

// maxConcurrentBatches caps in-flight provider calls; the provider's own
// rate limiter spaces the requests within that cap.
const maxConcurrentBatches = 4

func NewService(provider core.EmbeddingProvider, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		provider:   provider,
		fallback:   NewFallbackProvider(provider.Dimensions()),
		batchSize:  batchSize,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second
	return bo
}

// EmbedTexts returns one vector per input text plus the source each vector
// came from (the provider name, or FallbackName for degraded batches).
// Batches embed concurrently; a cancelled context is the only error.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, []string, error) {
	vectors := make([][]float32, len(texts))
	sources := make([]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		g.Go(func() error {
			vecs, err := s.embedBatch(gctx, batch)
			source := s.provider.Name()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("embed: provider %s failed, using fallback for %d texts: %v", s.provider.Name(), len(batch), err)
				vecs, _ = s.fallback.EmbedTexts(gctx, batch)
				source = FallbackName
			}
			for i := range batch {
				vectors[start+i] = vecs[i]
				sources[start+i] = source
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectors, sources, nil
}

// EmbedQuery embeds a single search query, degrading to the fallback the
// same way EmbedTexts does.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, string, error) {
	vecs, sources, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, "", err
	}
	return vecs[0], sources[0], nil
}

// Dimensions reports the vector width every embedding from this service has.
func (s *Service) Dimensions() int { return s.provider.Dimensions() }

func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vecs [][]float32

	operation := func() error {
		out, err := s.provider.EmbedTexts(ctx, batch)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(out) != len(batch) {
			return backoff.Permanent(fmt.Errorf("provider returned %d vectors for %d texts", len(out), len(batch)))
		}
		want := s.provider.Dimensions()
		for _, vec := range out {
			if len(vec) != want {
				return backoff.Permanent(fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(vec), want))
			}
		}
		vecs = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return vecs, nil
}

// isRetryable treats rate limiting and transient upstream conditions as
// worth retrying; anything else fails the batch immediately.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "quota", "timeout", "deadline", "unavailable", "503", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
