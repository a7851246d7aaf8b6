// Package convert renders parsed page trees as destination markdown.
//
// Each page gets a fixed-order metadata header followed by the converted
// body. Embedded images and files are persisted through a caller-supplied
// attach function and referenced with @attachment(path) tokens; links to
// other exported pages become @note(filename) tokens, and links to pages
// outside the exported scope degrade to their text plus a broken-link
// marker.
package convert
