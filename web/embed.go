// Package web bundles the back-office templates and static assets into the
// binaries.
package web

import "embed"

// Templates holds the page layouts, partials, pages and the itinerary report.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html templates/reports/*.html
var Templates embed.FS

// Static holds the assets served under /static.
//
//go:embed static/css
var Static embed.FS
