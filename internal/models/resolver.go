// Package models maps caller-facing model names onto NVIDIA NIM model ids.
package models

import (
	"context"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/traian1744/openai-nim-proxy/internal/metrics"
	"github.com/traian1744/openai-nim-proxy/internal/schema"
)

// Source records which step produced a Resolution.
type Source string

const (
	SourceMapping  Source = "mapping"
	SourceProbe    Source = "probe"
	SourceFallback Source = "fallback"
)

// Prober reports whether the upstream serves model. A false result with a nil
// error means the model is unknown upstream.
type Prober interface {
	Probe(ctx context.Context, model string) (bool, error)
}

// Resolution is the outcome of resolving one requested name. Upstream is
// always set. ProbeErr holds a probe failure that was recovered by falling
// back.
type Resolution struct {
	Requested string
	Upstream  string
	Source    Source
	ProbeErr  error
}

type Resolver struct {
	mapping map[string]string
	tiers   Tiers
	prober  Prober
	logger  zerolog.Logger
}

// NewResolver copies mapping; later changes to the caller's map are not seen.
func NewResolver(mapping map[string]string, tiers Tiers, prober Prober, logger zerolog.Logger) *Resolver {
	return &Resolver{
		mapping: maps.Clone(mapping),
		tiers:   tiers,
		prober:  prober,
		logger:  logger,
	}
}

// Lookup resolves name from the mapping table alone.
func (r *Resolver) Lookup(name string) (Resolution, bool) {
	target, ok := r.mapping[name]
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Requested: name, Upstream: target, Source: SourceMapping}, true
}

// Resolve never fails: a mapping hit returns without network access, then
// the upstream is probed with name verbatim, and finally the tier heuristic
// decides.
func (r *Resolver) Resolve(ctx context.Context, name string) Resolution {
	res := r.resolve(ctx, name)
	metrics.ModelResolutionsTotal.WithLabelValues(string(res.Source)).Inc()
	return res
}

func (r *Resolver) resolve(ctx context.Context, name string) Resolution {
	if res, ok := r.Lookup(name); ok {
		return res
	}

	res := Resolution{Requested: name}
	if name != "" && r.prober != nil {
		found, err := r.prober.Probe(ctx, name)
		if err != nil {
			r.logger.Warn().Err(err).Str("model", name).Msg("Model probe failed, using fallback")
			res.ProbeErr = err
		} else if found {
			res.Upstream = name
			res.Source = SourceProbe
			return res
		}
	}

	res.Upstream = Fallback(name, r.tiers)
	res.Source = SourceFallback
	return res
}

// List returns the mapped names as OpenAI model objects, sorted by id.
func (r *Resolver) List(created int64) []schema.Model {
	names := slices.Sorted(maps.Keys(r.mapping))
	out := make([]schema.Model, 0, len(names))
	for _, name := range names {
		out = append(out, schema.Model{
			ID:      name,
			Object:  "model",
			Created: created,
			OwnedBy: "nvidia-nim-proxy",
		})
	}
	return out
}
