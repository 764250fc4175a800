// Package pagination models the PokéAPI named-resource listing.
//
// The listing endpoint is offset based: a request carries limit and offset
// query parameters and the response enumerates entries with a name and the
// URL of their detail document.
//
// Example usage:
//
//	params := pagination.Params{Limit: 150, Offset: 0}
//	var page pagination.Page
//	err := apiClient.FetchJSON(ctx, listingURL, params.Values(), &page)
//	for _, entry := range page.Entries(params.Limit) {
//		// fetch entry.URL
//	}
//
// Exactly one page is fetched per run. Callers wanting more records raise
// the limit; Next and Previous are decoded but never followed.
package pagination
