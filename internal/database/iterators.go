// Copyright 2026 Boring Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

type queryItemsIterator[T any] struct {
	pager             *runtime.Pager[azcosmos.QueryItemsResponse]
	docType           string
	singlePage        bool
	continuationToken string
	err               error
}

// newQueryItemsIterator is a failable push iterator for a paged query response.
func newQueryItemsIterator[T any](pager *runtime.Pager[azcosmos.QueryItemsResponse], docType string) *queryItemsIterator[T] {
	return &queryItemsIterator[T]{pager: pager, docType: docType}
}

// newQueryItemsSinglePageIterator is a failable push iterator for a paged
// query response that stops at the end of the first page and includes a
// continuation token if additional items are available.
func newQueryItemsSinglePageIterator[T any](pager *runtime.Pager[azcosmos.QueryItemsResponse], docType string) *queryItemsIterator[T] {
	return &queryItemsIterator[T]{pager: pager, docType: docType, singlePage: true}
}

// Items returns a push iterator that can be used directly in for/range loops.
// If an error occurs during paging, iteration stops and the error is recorded.
func (iter *queryItemsIterator[T]) Items(ctx context.Context) DBClientIteratorItem[T] {
	return func(yield func(string, *T) bool) {
		for iter.pager.More() {
			response, err := iter.pager.NextPage(ctx)
			if err != nil {
				iter.err = err
				return
			}
			if iter.singlePage && response.ContinuationToken != nil {
				iter.continuationToken = *response.ContinuationToken
			}
			for _, itemJSON := range response.Items {
				typedDoc, innerDoc, err := typedDocumentUnmarshal[T](itemJSON, iter.docType)
				if err != nil {
					iter.err = err
					return
				}
				if !yield(typedDoc.ID, innerDoc) {
					return
				}
			}
			if iter.singlePage {
				return
			}
		}
	}
}

// GetContinuationToken returns a continuation token that can be used to obtain
// the next page of results. This is only set when the iterator was created with
// newQueryItemsSinglePageIterator and additional items are available.
func (iter *queryItemsIterator[T]) GetContinuationToken() string {
	return iter.continuationToken
}

// GetError returns any error that occurred during iteration. Call this after the
// for/range loop that calls Items() to check if iteration completed successfully.
func (iter *queryItemsIterator[T]) GetError() error {
	return iter.err
}

// sliceIterator adapts an already-materialized result set to the
// DBClientIterator interface. The in-memory store returns these. The
// continuation token is the offset of the next unread item.
type sliceIterator[T any] struct {
	ids               []string
	items             []*T
	continuationToken string
}

func newSliceIterator[T any](ids []string, items []*T, maxItems int32, continuationToken *string) *sliceIterator[T] {
	var offset int
	if continuationToken != nil && *continuationToken != "" {
		// A garbled token means an empty result set rather than an
		// error, same as an exhausted Cosmos continuation.
		offset, _ = strconv.Atoi(*continuationToken)
	}
	if offset < 0 || offset > len(ids) {
		offset = len(ids)
	}

	ids = ids[offset:]
	items = items[offset:]

	var nextToken string
	if maxItems > 0 && int(maxItems) < len(ids) {
		ids = ids[:maxItems]
		items = items[:maxItems]
		nextToken = strconv.Itoa(offset + int(maxItems))
	}

	return &sliceIterator[T]{
		ids:               ids,
		items:             items,
		continuationToken: nextToken,
	}
}

func (iter *sliceIterator[T]) Items(ctx context.Context) DBClientIteratorItem[T] {
	return func(yield func(string, *T) bool) {
		for i, id := range iter.ids {
			if !yield(id, iter.items[i]) {
				return
			}
		}
	}
}

func (iter *sliceIterator[T]) GetContinuationToken() string {
	return iter.continuationToken
}

func (iter *sliceIterator[T]) GetError() error {
	return nil
}

// errorIterator yields nothing and reports err. List methods return these
// when they fail before the first page.
type errorIterator[T any] struct {
	err error
}

func (iter errorIterator[T]) Items(ctx context.Context) DBClientIteratorItem[T] {
	return func(yield func(string, *T) bool) {}
}

func (iter errorIterator[T]) GetContinuationToken() string {
	return ""
}

func (iter errorIterator[T]) GetError() error {
	return iter.err
}
