// Package blendex provides a Go client for the blendex search blending service.
//
// A blendex server interleaves results from a primary and a secondary search
// backend into one paged window with merged facets. The client speaks its
// HTTP API.
//
//	client, _ := blendex.New("http://localhost:8080", blendex.WithAPIKey(key))
//	res, _ := client.Search().
//	    Query("dune").
//	    Where("format", "0/Book/").
//	    Between("year", 1960, 1980).
//	    Limit(20).
//	    Do(ctx)
//
// Parameters not known to the server are forwarded to the backends; a
// "secondary." prefix routes one to the secondary backend only:
//
//	client.Search().Query("dune").Param("secondary.sort", "title").Do(ctx)
package blendex
