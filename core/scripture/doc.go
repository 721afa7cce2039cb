// Package scripture defines the scripture document model: documents with
// metadata, ordered sections, verses and per-verse commentaries.
//
// Documents are decoded leniently. A document that is not valid JSON, or whose
// top-level shape is wrong, fails to decode. Malformed sections and verses
// inside an otherwise valid document are skipped and reported as Issues so the
// rest of the document survives. Missing optional fields default to the empty
// string or to a named sentinel; they are never errors.
//
// Identity:
//
//   - A document is identified by Metadata.Slug, falling back to the stem of
//     its source file name and finally to UnknownSlug.
//   - Section numbers and verse numbers are Ordinals: JSON numbers or strings,
//     kept in their source spelling.
//
// Commentaries come in two shapes, a bare string or an object with author and
// commentary fields. Both decode into the Commentary variant; unrecognised
// shapes decode to an empty PlainText commentary.
package scripture
