package translate

import (
	"context"

	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

// Backend translates one line of plain text. It is never handed a URL.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError)
}
