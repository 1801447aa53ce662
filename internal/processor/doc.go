// Package processor turns a list of Korean words into an Anki deck. For each
// word it synthesizes audio, looks up the Russian translation and fetches an
// image inside a per-word scratch directory. Any hard failure drops the
// word; the deck is written with whatever succeeded.
package processor
