// Package prerender runs the pre-rendering pipeline: it collects every URL
// to render from static routes and user hooks, lets a global hook rewrite
// the list, routes and renders each URL, writes the results and warns
// about contradictory or incomplete configuration.
//
// Stages run strictly in order and each one settles before the next
// starts. Concurrent work inside a stage shares a single limiter with the
// other stages so the configured cap holds for the whole run.
package prerender
