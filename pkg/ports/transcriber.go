package ports

import "context"

// Transcriber converts audio into text. It is a black box: the engine feeds
// the transcript into the normal text-turn path and no conversation logic
// depends on audio beyond this call.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
