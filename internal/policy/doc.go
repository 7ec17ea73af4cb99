// Package policy resolves the effective greylisting and SPF settings of a
// single message.
//
// Settings live in a directory tree of small "NAME = value" files. The root
// __default__ file is merged first; the OTHERCONFIGS setting then names the
// dimensions (envelope_sender, envelope_recipient, client_address) whose
// more specific files are merged on top, general to specific. Later files
// override earlier ones key by key. Dimensions are processed until
// OTHERCONFIGS stops naming new ones, so a file may enable further
// dimensions.
package policy
