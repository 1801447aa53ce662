// Package audio synthesizes pronunciation recordings for Korean words.
//
// Three providers are available: the keyless Google Translate TTS endpoint
// (default, MP3), OpenAI's speech API (MP3) and Gemini TTS models (PCM
// wrapped into WAV). A provider can be paired with a fallback that writes
// the same file format.
package audio
