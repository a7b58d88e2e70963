// Package storage writes finished seed data to object storage or a local
// directory.
//
// It wraps the MinIO Go client behind a small Client interface, which makes
// storage interactions easy to mock in unit tests (see core/storage/mocks).
// Both AWS S3 and self-hosted MinIO instances are supported.
//
// # Codecs
//
// A Codec turns one batch of records into a seed file. Records keep their
// fields in declaration order in every format:
//
//   - yaml: a sequence of mappings built from yaml.Node values.
//   - json: an array of objects.
//   - msgpack: an array of maps.
//
// # Sinks
//
// ObjectSink and DirSink implement reconcile.Sink. Each batch becomes one file
// named after the pluralized, snake-cased type name, so Category seeds land in
// categories.yaml. ObjectSink can also create its bucket and prune seed files
// left over from types that are no longer exported.
//
// # Usage
//
//	sink, err := storage.NewObjectSinkFromConfig(cfg.Storage)
//	if err := sink.EnsureBucket(ctx); err != nil {
//	    return err
//	}
//	plan, err := s.ApplyToSink(ctx, sink)
package storage
