package suite

import (
	"fmt"

	"github.com/slipstream/providercheck/internal/cassette"
)

// Kind categorizes why a case failed.
type Kind string

const (
	KindAssertion Kind = "assertion"
	KindContract  Kind = "contract"
	KindCassette  Kind = "cassette"
	KindAdapter   Kind = "adapter"
	KindConfig    Kind = "config"
)

// Failure is one failed check within a case.
type Failure struct {
	Kind    Kind
	Message string
}

func (f Failure) String() string {
	return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
}

// classify attributes an error returned by an adapter call. Errors raised by the
// cassette store anywhere in the wrapped chain are reported against the store.
func classify(err error) Kind {
	if cassette.IsCassetteError(err) {
		return KindCassette
	}
	return KindAdapter
}
