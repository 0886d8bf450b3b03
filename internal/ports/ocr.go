package ports

import "context"

// OCRReader extracts text from a PNG image. A reader returned by a pool may be
// shared between tasks but must not be used concurrently by two of them.
type OCRReader interface {
	ReadText(ctx context.Context, image []byte) (string, error)
	Languages() []string
}

type OCRReaderProvider interface {
	Reader(ctx context.Context, languages []string) (OCRReader, error)
}
