// Package audio normalizes retrieved payloads into the canonical codec (MP3, 192 kbit/s) and tags them.
//
// [Normalizer] sniffs the container with mimetype. Input that is already
// audio/mpeg is moved into place untouched; anything else is passed to an
// [Encoder], by default [FFmpegEncoder]. A run that leaves an empty or
// missing output is reported as [shared.ErrNormalization].
//
// [Tagger] writes title, artist and album frames with id3v2.
package audio
