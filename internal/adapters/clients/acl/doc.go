// Package acl translates between the remote quote mirror's wire format and
// domain quotes.
//
// The mirror is a JSONPlaceholder-style posts collection. A listed post
// becomes a [domain.Quote] whose text is the post title and whose category is
// the configured mirror category; a pushed quote becomes a post whose body
// records the original category:
//
//	GET  /posts  -> [{"id":1,"title":"...","body":"...","userId":1}, ...]
//	POST /posts  <- {"title":"<text>","body":"Category: <category>","userId":1}
//
// List requests are retried by the client; a push is sent once per cycle and
// a failed push is left for the next cycle.
//
// Mirror DTOs never leave this package. Transport failures are mapped onto
// the domain taxonomy by [Translate]:
//   - 404 to [domain.ErrNotFound]
//   - 409 to [domain.ErrConflict]
//   - 400/422 to [domain.ErrValidation]
//   - 401/403 to [domain.ErrForbidden]
//   - 5xx, network errors, [clients.ErrCircuitOpen] and
//     [clients.ErrMaxRetriesExceeded] to [domain.ErrUnavailable]
package acl
