// Package photo models uploaded jewelry photos and resolves their capture time.
//
// Every uploaded file becomes an immutable Item carrying a UUID, the raw image
// payload, and a concrete capture instant. The ExifResolver prefers the EXIF
// DateTimeOriginal tag, then DateTimeDigitized, and silently falls back to the
// file modification time (or the ingestion clock) so an Item never lacks a
// timestamp. Ingester resolves a whole batch concurrently and only returns once
// every file has been resolved.
package photo
