// Package browser opens track pages in the system web browser.
package browser

import (
	"context"
	"io"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/pkg/browser"
	zlog "github.com/rs/zerolog/log"
)

// Opener opens http(s) URLs with the platform browser.
type Opener struct {
	open func(u string) error
}

// New creates an Opener. Output of the launched browser process is discarded
// so it does not interleave with the terminal prompt.
func New() *Opener {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &Opener{open: browser.OpenURL}
}

// Open opens u. Only absolute http and https URLs are accepted.
func (o *Opener) Open(ctx context.Context, u *url.URL) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if u == nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return false, errors.Newf("refusing to open non-web url: %v", u)
	}

	if err := o.open(u.String()); err != nil {
		return false, errors.Wrap(err, "failed to launch browser")
	}
	zlog.Debug().Msgf("opened in browser: url=%s", u)
	return true, nil
}
