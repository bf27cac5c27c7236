package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stylefx/internal/effect"
)

// TimingResult is a parsed timing expression.
type TimingResult struct {
	Expression string  `json:"expression"`
	DurationMs float64 `json:"duration_ms"`
	DelayMs    float64 `json:"delay_ms"`
	Easing     string  `json:"easing,omitempty"`
	TotalMs    float64 `json:"total_ms"`
	Canonical  string  `json:"canonical"`
}

// NewTimingCommand creates the timing command.
func NewTimingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timing <expression>",
		Short: "Parse a timing expression",
		Long: `Parse a timing expression the way effects and scenarios read it and
print its duration, delay and easing in milliseconds.

Exit codes:
  0 - Expression is valid
  1 - Expression cannot be parsed or violates the timing contract

Examples:
  stylefx timing 1s
  stylefx timing "1s 250ms ease-out"
  stylefx timing "300ms 0ms cubic-bezier(0,0,.2,1)" --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTiming(rootOpts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runTiming(opts *RootOptions, expr string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	t, err := effect.ParseTiming(expr)
	if err == nil {
		err = t.Validate()
	}
	if err != nil {
		code := ErrCodeGeneric
		var effErr *effect.Error
		if errors.As(err, &effErr) {
			code = string(effErr.Code)
		}
		_ = formatter.Error(code, err.Error(), map[string]string{"expression": expr})
		return WrapExitError(ExitFailure, "invalid timing", err)
	}

	result := TimingResult{
		Expression: expr,
		DurationMs: t.Duration,
		DelayMs:    t.Delay,
		Easing:     t.Easing,
		TotalMs:    t.Total(),
		Canonical:  t.String(),
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "duration: %sms\n", effect.FormatMillis(result.DurationMs))
	fmt.Fprintf(w, "delay:    %sms\n", effect.FormatMillis(result.DelayMs))
	if result.Easing != "" {
		fmt.Fprintf(w, "easing:   %s\n", result.Easing)
	}
	fmt.Fprintf(w, "settles:  %sms\n", effect.FormatMillis(result.TotalMs))
	return nil
}
