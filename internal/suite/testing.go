package suite

import (
	"context"
	"strings"
	"testing"
)

// RunTests runs every suite of the catalog as a subtest named after the suite,
// with one nested subtest per case, so that go test -run can select them.
func RunTests(t *testing.T, catalog *Catalog, runner *Runner) {
	t.Helper()
	ctx := context.Background()

	for _, s := range catalog.Suites() {
		t.Run(s.Name, func(t *testing.T) {
			sess := runner.Begin(s)
			for _, c := range s.Cases {
				t.Run(string(c.Name), func(t *testing.T) {
					res := sess.RunCase(ctx, c)
					switch res.Status {
					case StatusSkip:
						t.Skip(strings.Join(res.Messages, "; "))
					case StatusFail:
						t.Log(res.Description)
						for _, m := range res.Messages {
							t.Error(m)
						}
					}
				})
			}
			if rep := sess.End(); rep.Error != "" {
				t.Error(rep.Error)
			}
		})
	}
}
