// Package harvest implements the scheme-record extraction pipeline: fetching
// pages (static or browser-rendered), running the ordered extraction strategy
// chain, normalizing fields, resolving the governing region, deduplicating on
// canonical keys, and orchestrating the whole crawl across seed sources.
package harvest
