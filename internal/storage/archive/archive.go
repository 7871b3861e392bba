package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Report kinds, used as the top-level key segment
const (
	KindBacktest     = "backtests"
	KindOptimization = "optimizations"
	KindRisk         = "risk"
)

// Archive stores reports as <kind>/<id>.json
type Archive struct {
	store  Storage
	logger *zap.Logger
}

// New wraps a storage backend
func New(store Storage, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{store: store, logger: logger}
}

// Key returns the storage key for a report
func Key(kind, id string) (string, error) {
	for _, part := range []string{kind, id} {
		if part == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return "", fmt.Errorf("invalid archive key segment %q", part)
		}
	}
	return path.Join(kind, id+".json"), nil
}

// Save encodes v as indented JSON and returns the key it was written to
func (a *Archive) Save(ctx context.Context, kind, id string, v any) (string, error) {
	key, err := Key(kind, id)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s report: %w", kind, err)
	}
	if err := a.store.Put(ctx, key, data); err != nil {
		return "", err
	}
	a.logger.Info("report archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return key, nil
}

// Load decodes the report stored under kind/id into v
func (a *Archive) Load(ctx context.Context, kind, id string, v any) error {
	key, err := Key(kind, id)
	if err != nil {
		return err
	}
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// IDs lists the report ids of one kind
func (a *Archive) IDs(ctx context.Context, kind string) ([]string, error) {
	keys, err := a.store.List(ctx, kind+"/")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		rest := strings.TrimPrefix(k, kind+"/")
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(rest, ".json"))
	}
	return ids, nil
}
