// Package closemap provides a composite resource container: an immutable
// mapping whose values may themselves be closable resources, with a single
// recursive Close that releases everything reachable exactly once, in a
// deterministic order, while isolating failures so one resource cannot keep
// the rest from being released.
//
// # Overview
//
// The package is organized around four core concepts:
//
//  1. Map: the container itself, an insertion-ordered immutable mapping
//  2. Annotations: per-node policy markers (ignore, swallow, hooks, handlers)
//  3. Dispatch: how an individual value is released, open for extension by type
//  4. Guard: all-or-nothing construction that unwinds on partial failure
//
// # Basic Usage
//
// Build a container holding live resources, use it as an ordinary key/value
// store, and close it once when done:
//
//	m := closemap.FromEntries([]closemap.Entry{
//		{Key: "conn", Value: conn},       // anything with Close() error
//		{Key: "config", Value: cfg},      // plain values are left untouched
//		{Key: "workers", Value: pool},
//	})
//
//	defer m.CloseQuietly(nil)
//
// Close walks the structure depth-first, nested containers before their
// siblings' turn ends, invoking each value's close capability exactly once.
// Values without one are skipped.
//
// # Policy
//
// Policy markers attach as typed annotations and are inherited by
// everything beneath the node that carries them:
//
//	// never let a close error escape, report it instead
//	m := closemap.FromEntries(entries,
//		closemap.WithTag(closemap.TagSwallow, true),
//		closemap.WithTag(closemap.TagExHandler, func(err error) {
//			log.Printf("close: %v", err)
//		}),
//	)
//
// A node tagged ignore is pruned together with its whole subtree. Without
// swallow in effect, the first failure aborts the remaining traversal and is
// returned from Close.
//
// Container-like nodes may carry the same markers as ordinary entries under
// the reserved keys "ignore", "swallow", "fn", "before-close", "after-close"
// and "ex-handler"; an entry wins over the equivalent annotation. Values that
// are not containers take annotations through an explicit wrapper:
//
//	closemap.Annotate(buf, closemap.NewAnnotations(
//		closemap.Setting(closemap.TagFn, func(v any) error {
//			return v.(*Buffer).Flush()
//		}),
//	))
//
// # Dispatch by type
//
// Types that expose no close method can be taught to close process-wide:
//
//	closemap.RegisterCloserFor(func(p *redis.Pool) error {
//		return p.Shutdown()
//	})
//
// Registered procedures win over a native Close and apply to every
// subsequent close in the process.
//
// # Guarded construction
//
// Build guarantees no partially-initialized container leaks live resources:
// values marked with Track are closed in reverse order if construction fails
// partway through, and the original error is re-raised:
//
//	m, err := closemap.Build(func(b *closemap.BuildCtx) (*closemap.Map, error) {
//		server := closemap.Track(b, startServer())
//		consumer, err := startConsumer(server)
//		if err != nil {
//			return nil, err // server is closed before err is returned
//		}
//		closemap.Track(b, consumer)
//		return closemap.FromEntries([]closemap.Entry{
//			{Key: "server", Value: server},
//			{Key: "consumer", Value: consumer},
//		}), nil
//	})
//
// When construction succeeds, the tracking set travels with the returned
// container: closing it, directly or through a container it is nested in,
// discharges any tracked resource not already closed by the traversal.
//
// OpenAll and Let provide the same guarantee for a flat, named sequence of
// acquisition steps.
//
// # Concurrency
//
// Close runs synchronously on the calling goroutine. Ambient policy travels
// down the traversal as a value on the call stack, so closing independent
// containers concurrently is safe; concurrently closing containers that
// share backing resources is not defined.
package closemap
