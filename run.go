package fwenable

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/Schleppy/fwenable/internal/ctxlog"
)

// Run validates conf and performs the standard and specific requests it asks
// for, in that order. Validation failures happen before e is called. A nil d
// pauses between the two requests with the default bounds.
func Run(ctx context.Context, conf Config, e Enabler, d Delayer, out io.Writer) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	if out == nil {
		out = io.Discard
	}
	if d == nil {
		d = RandomDelay{Min: DefaultMinDelay, Max: DefaultMaxDelay, Out: out}
	}
	log := ctxlog.FromContext(ctx)

	doStandard, doSpecific := conf.Standard(), conf.Specific()
	log.Debug("Run planned.", "standard", doStandard, "specific", doSpecific)

	if doStandard {
		fmt.Fprintln(out, "Requesting standard rules.")
		if err := e.Enable(ctx, StandardRequest()); err != nil {
			return errors.WithMessage(err, "standard rules")
		}
	}

	if doSpecific {
		if doStandard {
			if err := d.Delay(ctx); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, "Requesting specific rules.")
		if err := e.Enable(ctx, SpecificRequest(conf.Slots())); err != nil {
			return errors.WithMessage(err, "specific rules")
		}
	}
	return nil
}
