// Package dataloader provides generic DataLoader utilities for loading
// limited related rows per parent key.
//
// This package is designed to work with any DataLoader implementation such as:
//   - github.com/graph-gophers/dataloader/v7
//   - github.com/vikstrous/dataloadgen
//
// # Basic Usage
//
// A GroupFunc loads the related rows of a batch of parent keys in one
// query, limited per parent. Groups and First adapt it to batch functions
// returning results aligned with the requested keys:
//
//	load := eagerlimit.Groups[int64](client, topComments) // GroupFunc
//	batch := dataloader.Groups(load)                     // BatchFunc[int64, []sqlgraph.Node]
//	loader := dataloadgen.NewLoader(batch)
//	comments, err := loader.Load(ctx, post.ID)
//
// # Has-one relations
//
//	latest := dataloader.First(eagerlimit.Groups[int64](client, latestComment))
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned by First for a key without a related row.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc is a function that loads a batch of entities by their keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// GroupFunc loads the related rows of a batch of parent keys, grouped by
// parent key. Keys without related rows may be missing from the map.
type GroupFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K][]V, error)

// Groups adapts a GroupFunc to a BatchFunc returning the group of every
// requested key. A failed load fails every key of the batch.
func Groups[K comparable, V any](fn GroupFunc[K, V]) BatchFunc[K, []V] {
	return func(ctx context.Context, keys []K) ([][]V, []error) {
		groups, err := fn(ctx, keys)
		if err != nil {
			return make([][]V, len(keys)), fill(len(keys), err)
		}
		return OrderGroupsByKeys(keys, groups), make([]error, len(keys))
	}
}

// First adapts a GroupFunc of a has-one relation to a BatchFunc returning
// the first row of every requested key, or ErrNotFound.
func First[K comparable, V any](fn GroupFunc[K, V]) BatchFunc[K, V] {
	return func(ctx context.Context, keys []K) ([]V, []error) {
		groups, err := fn(ctx, keys)
		if err != nil {
			return make([]V, len(keys)), fill(len(keys), err)
		}
		return FirstByKeys(keys, groups)
	}
}

func fill(n int, err error) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

// FirstByKeys returns the first entity of the group of every key.
func FirstByKeys[K comparable, V any](keys []K, groups map[K][]V) ([]V, []error) {
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if g := groups[key]; len(g) > 0 {
			result[i] = g[0]
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderGroupsByKeys reorders grouped entities to match the order of requested keys.
// Returns a slice of slices where each inner slice contains entities for that key.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}
