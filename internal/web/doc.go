// Package web embeds the browser client: a single page that lists the
// library, filters it, and plays tracks through /getcontent.
package web
