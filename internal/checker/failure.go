package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Failure kinds raised by the checks themselves.
const (
	KindValueMismatch = "ValueMismatch"
	KindNotObserved   = "NotObserved"
	KindTimeout       = "Timeout"
	KindPanic         = "Panic"
	KindError         = "Error"

	// Driver classifications whose Go types carry no useful name.
	KindKafka   = "KafkaError"
	KindNetwork = "NetworkError"
)

// Failure is an error tagged with an explicit kind. The runner reports it
// as "<kind>: <message>".
type Failure struct {
	kind string
	msg  string
}

// Failf returns a Failure of the given kind.
func Failf(kind, format string, args ...any) error {
	return &Failure{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string { return f.msg }

// Kind returns the failure classification.
func (f *Failure) Kind() string { return f.kind }

type kinded interface {
	Kind() string
}

// KindOf classifies err. An error in the chain exposing Kind() wins,
// deadline and network timeouts are Timeout, broker protocol errors are
// KafkaError, other socket errors are NetworkError, and anything else is
// named after the Go type of the innermost error without its package
// qualifier.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return KindKafka
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}

	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}

	name := fmt.Sprintf("%T", root)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "errorString", "wrapError", "wrapErrors", "joinError":
		return KindError
	}
	return name
}

func describe(err error) string {
	return fmt.Sprintf("%s: %s", KindOf(err), err.Error())
}
