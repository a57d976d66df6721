// Package acl is the translation boundary between upstream HTTP services and
// the domain. Adapters embed [BaseAdapter] to make requests, and everything
// that can go wrong on the wire comes back as a domain error: statuses map
// through [MapHTTPError], body-level codes through [MapExternalCode], and
// transport failures, open circuits, and exhausted retries collapse into
// [domain.ErrUnavailable].
//
// The anthropic package is the one adapter built on this layer today. Its
// wire DTOs stay unexported there; the application services only ever see
// domain types and domain errors, so a Messages API change stops at the
// adapter.
//
// [DecodeResponse] and [DecodeResponseForService] handle response decoding,
// and [TranslateSlice] and [TranslateMap] fan a per-item [Translator] over
// collections, naming the failing element. [ValidateRequired] and
// [ValidatePositive] cover the field checks translators repeat most.
package acl
