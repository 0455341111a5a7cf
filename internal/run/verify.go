package run

import (
	"context"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/germinate/internal/report"
)

// VerifyResult holds the digests of two independent runs of one
// architecture.
type VerifyResult struct {
	Arch   string
	First  string
	Second string
}

// Match reports whether both runs produced the same result.
func (v VerifyResult) Match() bool {
	return v.First == v.Second
}

// Verify germinates every architecture twice from scratch and compares the
// result digests. Nothing is written. ErrNondeterministic is returned,
// together with the digests, when any pair differs.
func (o *Orchestrator) Verify(ctx context.Context) ([]VerifyResult, error) {
	archs := o.config.Archive.Architectures
	results := make([]VerifyResult, len(archs))

	g, gctx := errgroup.WithContext(ctx)
	for i, arch := range archs {
		results[i].Arch = arch
		for pass, dst := range []*string{&results[i].First, &results[i].Second} {
			g.Go(func() (err error) {
				defer zerr.Defer(func(perr error) { err = zerr.With(perr, "arch", arch) })

				germ, err := o.Germinate(gctx, arch)
				if err != nil {
					return zerr.With(err, "pass", pass+1)
				}
				*dst = report.Digest(germ.Result())
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, v := range results {
		if !v.Match() {
			o.log.Errorw("Digests differ between runs", "arch", v.Arch, "first", v.First, "second", v.Second)
			return results, zerr.With(zerr.Wrap(ErrNondeterministic, "digests differ"), "arch", v.Arch)
		}
		o.log.Infow("Germination is deterministic", "arch", v.Arch, "digest", v.First)
	}
	return results, nil
}
