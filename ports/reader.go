package ports

import (
	"context"

	"stixdc/domain/science"
)

// FrameReaderPort loads a science frame from wherever it is stored.
// The correction core only ever sees the in-memory arrays.
type FrameReaderPort interface {
	ReadFrame(ctx context.Context) (*science.Frame, error)
}

// FrameWriterPort stores a science frame, e.g. to build fixtures or
// convert between file formats
type FrameWriterPort interface {
	WriteFrame(ctx context.Context, frame *science.Frame) error
}
