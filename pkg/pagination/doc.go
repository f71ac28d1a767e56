// Package pagination turns "fetch the whole collection" into bounded
// offset/limit page requests against Redmine collection endpoints.
//
// Redmine reports total_count, offset and limit on every collection
// response. The first page is always fetched on its own to learn the total;
// the remaining pages follow a FetchPlan.
//
// Two drivers share one contract:
//
//	seq := pagination.NewSequential(fetcher, true, pagination.DefaultConfig())
//	issues, err := seq.FetchAll(ctx, pagination.Window{})
//
//	bf := pagination.NewBatchFetcher(fetcher, true, pagination.DefaultConfig())
//	issues, err := bf.FetchAll(ctx, pagination.Window{})
//
// The batch fetcher runs the remaining pages with bounded concurrency
// (default 3 in flight) and reassembles them in ascending offset order.
// Both drivers are all-or-nothing: any page failure fails the call and no
// partial items are returned.
//
// The total count and the later pages are not read from one snapshot. Items
// created or deleted while a fetch is running can be missed or seen twice.
package pagination
