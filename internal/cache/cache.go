package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"

	"github.com/autolink/autolink/internal/patterns"
	"github.com/autolink/autolink/internal/scanner"
)

// Store caches scan results. Scans are deterministic for a given text,
// category list and custom pattern, so the key covers exactly those.
type Store interface {
	Get(ctx context.Context, key string) (scanner.Result, bool, error)
	Set(ctx context.Context, key string, result scanner.Result) error
	Close() error
}

// Key derives the cache key for a scan request.
func Key(text string, categories []patterns.Category, customPattern string) string {
	h := sha256.New()
	writeField(h, customPattern)
	writeField(h, strconv.Itoa(len(categories)))
	for _, c := range categories {
		writeField(h, string(c))
	}
	writeField(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

// Fields are length-prefixed so adjacent values cannot collide.
func writeField(w io.Writer, value string) {
	_, _ = w.Write([]byte(strconv.Itoa(len(value))))
	_, _ = w.Write([]byte{':'})
	_, _ = w.Write([]byte(value))
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (scanner.Result, bool, error) {
	return scanner.Result{}, false, nil
}

func (Nop) Set(context.Context, string, scanner.Result) error { return nil }

func (Nop) Close() error { return nil }
