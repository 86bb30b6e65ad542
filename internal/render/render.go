// Package render sets up the interface for rendering a generation result to
// target language source text. It also supports registering the handlers of
// those renderers (which are in other packages).
package render

import (
	"fmt"
	"sync"

	"github.com/gostdlib/base/context"

	"github.com/y0rk9s/cangen/internal/generate"
)

// Lang represents a target language we can render codecs for.
type Lang uint8

const (
	Unknown Lang = 0
	C       Lang = 1
)

// Supported is languages that we have registered support for.
var Supported = map[Lang]Renderer{}

// Renderer renders the source artifacts for one language. baseName is the
// database file name without extension; it prefixes every generated
// identifier.
type Renderer interface {
	Render(ctx context.Context, res *generate.Result, baseName string) ([]File, error)
}

// File is one rendered artifact.
type File struct {
	// Name is the file name the artifact should be written under.
	Name string
	// Content is the rendered source text.
	Content []byte
}

// Render renders res for a set of languages. Languages render concurrently;
// the first error wins and cancels the rest.
func Render(ctx context.Context, res *generate.Result, baseName string, langs ...Lang) ([]File, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, l := range langs {
		_, ok := Supported[l]
		if !ok {
			return nil, fmt.Errorf("language %v is not supported", langs[i])
		}
	}

	out := make([]File, 0, 2*len(langs))
	wg := sync.WaitGroup{}
	mu := sync.Mutex{}
	errCh := make(chan error, 1)

	for i := 0; i < len(langs); i++ {
		r := Supported[langs[i]]

		wg.Add(1)
		go func() {
			defer wg.Done()
			files, err := r.Render(ctx, res, baseName)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				cancel()
				return
			}
			mu.Lock()
			out = append(out, files...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	return out, nil
}
