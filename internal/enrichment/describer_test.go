package enrichment_test

import (
	"context"
	"errors"
	"testing"

	"lotsort/internal/enrichment"
	"lotsort/internal/groups"
	"lotsort/internal/logging"
	"lotsort/internal/services/llm"
)

func TestMissingAPIKeyIsServiceFailure(t *testing.T) {
	describer := enrichment.NewLLMDescriber(llm.NewClient(llm.Config{BaseURL: "http://127.0.0.1:1"}))
	orch := enrichment.New(describer, enrichment.Options{}, logging.NewNop())

	_, err := orch.Enrich(context.Background(), groups.Partition{lot("ring")})
	var batchErr *enrichment.BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected *BatchError, got %v", err)
	}
	if len(batchErr.Failures) != 1 || batchErr.Failures[0].Kind != enrichment.KindService {
		t.Fatalf("expected one service failure, got %+v", batchErr.Failures)
	}
	if !errors.Is(err, llm.ErrAPIKeyRequired) || !errors.Is(err, enrichment.ErrService) {
		t.Fatalf("expected error to carry ErrService and ErrAPIKeyRequired, got %v", err)
	}
}
