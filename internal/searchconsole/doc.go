// Package searchconsole wraps the Google Search Console API behind a small
// facade. Every call opens its own authenticated session. Site-scoped
// operations that fail with a permission-class error are retried exactly once
// with the alternate site identifier form (URL prefix vs. sc-domain property).
package searchconsole
