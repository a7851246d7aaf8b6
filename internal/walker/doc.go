// Package walker enumerates the notebook tree into a stream of page items.
//
// It resolves the requested notebook by exact display name, descends
// section groups, applies the section filter and per-section page window,
// and registers every selected page's destination filename with the link
// resolver before emitting any page from that section. That ordering lets
// converter workers resolve links into a section regardless of dispatch
// order.
package walker
