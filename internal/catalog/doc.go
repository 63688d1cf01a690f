// Package catalog resolves item URLs into catalogs of stream variants.
//
// A Router validates the URL and hands it to the YouTube resolver for YouTube
// hosts or to the JSON manifest resolver for everything else. Every outbound
// request carries a browser-like identity. Resolution failures are classified
// as not-found (permanent) or transport (retry-worthy), and a catalog with no
// usable variant is rejected as having no streams.
package catalog
