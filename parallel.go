package gotlm

import "golang.org/x/sync/errgroup"

// lookupWorkers bounds concurrent cache reads. Remote caches pay a round
// trip per key, so a handful of workers is enough to hide latency.
const lookupWorkers = 8

// parallelCacheLookup reads keys[text] for every text using a bounded pool.
// Misses come back in input order so batches stay deterministic.
func parallelCacheLookup(cache TranslationCache, texts []string, keys map[string]string) (map[string]string, []string) {
	values := make([]string, len(texts))
	found := make([]bool, len(texts))

	var g errgroup.Group
	g.SetLimit(lookupWorkers)
	for i, text := range texts {
		g.Go(func() error {
			values[i], found[i] = cache.Get(keys[text])
			return nil
		})
	}
	_ = g.Wait()

	hits := make(map[string]string, len(texts))
	var misses []string
	for i, text := range texts {
		if found[i] {
			hits[text] = values[i]
			continue
		}
		misses = append(misses, text)
	}
	return hits, misses
}
