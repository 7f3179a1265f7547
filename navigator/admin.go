package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/patootie/navigator/internal/store"
)

// Generation describes one stored parser generation.
type Generation struct {
	ID        int64             `json:"id"`
	URL       string            `json:"url"`
	Sequence  int               `json:"sequence_number"`
	Rules     []json.RawMessage `json:"rules"`
	CreatedAt time.Time         `json:"created_at"`
	Current   bool              `json:"current"`
}

func generationOf(p *store.Parser, current bool) Generation {
	return Generation{
		ID:        p.ID,
		URL:       p.URL,
		Sequence:  p.Sequence,
		Rules:     p.Rules,
		CreatedAt: time.UnixMilli(p.CreatedAt),
		Current:   current,
	}
}

// List returns every generation cached for url, oldest first, with the
// current one marked. A URL that was never cached returns nil.
func (n *Navigator) List(ctx context.Context, url string) ([]Generation, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: list needs a URL", ErrUsage)
	}
	ps, err := n.store.Generations(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("navigator: list %s: %w", url, err)
	}
	if ps == nil {
		return nil, nil
	}
	out := make([]Generation, len(ps))
	for i, p := range ps {
		out[i] = generationOf(p, i == len(ps)-1)
	}
	return out, nil
}

// Pop deletes the current generation for url and returns it. The previous
// generation, if any, becomes current. A URL that was never cached
// returns nil.
func (n *Navigator) Pop(ctx context.Context, url string) (*Generation, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: pop needs a URL", ErrUsage)
	}
	p, err := n.store.Pop(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("navigator: pop %s: %w", url, err)
	}
	if p == nil {
		return nil, nil
	}
	g := generationOf(p, true)
	n.logger.Info("navigator: parser popped", "url", url, "sequence", p.Sequence, "id", p.ID)
	return &g, nil
}
